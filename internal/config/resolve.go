package config

import "fmt"

// Snapshot is a persisted configuration image: the definition version it was
// saved under, plus its values keyed by key name.
type Snapshot struct {
	Version string
	Values  map[string]any
}

// Resolve reconciles a persisted snapshot against a definition and returns
// the effective values by key name.
//
// A nil snapshot resolves to defaults only. When the snapshot version
// matches the declared version, persisted values that fail the key's
// Validate check fall back to the key's default. When the versions differ,
// the definition's policy applies: PolicyClobber discards the snapshot,
// PolicyPreserve keeps values purely by matching key name (no type
// re-validation), and PolicyError fails with ErrVersionMismatch.
//
// Keys with neither a usable persisted value nor a default provider are
// absent from the result.
func Resolve(def *Definition, snap *Snapshot) (map[string]any, error) {
	var persisted map[string]any
	sameVersion := false

	if snap != nil {
		if snap.Version == def.Version() {
			sameVersion = true
			persisted = snap.Values
		} else {
			switch def.Policy() {
			case PolicyClobber:
				// Start over from defaults.
			case PolicyPreserve:
				persisted = snap.Values
			case PolicyError:
				return nil, fmt.Errorf("%w: owner %q persisted %q, declared %q",
					ErrVersionMismatch, def.Owner(), snap.Version, def.Version())
			}
		}
	}

	values := make(map[string]any, def.Len())
	for _, k := range def.Keys() {
		if v, ok := persisted[k.Name()]; ok {
			if !sameVersion || k.Validate(v) {
				values[k.Name()] = v
				continue
			}
			// Invalid value under the declared version: fall through to the
			// default.
		}
		if v, ok := k.TryDefault(); ok {
			values[k.Name()] = v
		}
	}

	return values, nil
}
