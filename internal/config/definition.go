package config

import (
	"fmt"
	"regexp"
)

// MismatchPolicy decides how a persisted snapshot whose version differs from
// the declared version is handled.
type MismatchPolicy int

const (
	// PolicyPreserve keeps persisted values whose key names still exist in
	// the current definition and drops the rest. Matching is purely by key
	// name; type compatibility is not re-validated.
	PolicyPreserve MismatchPolicy = iota

	// PolicyClobber discards all persisted values and starts from defaults.
	PolicyClobber

	// PolicyError treats the mismatch as fatal for the owning mod.
	PolicyError
)

// String returns the policy name as used in manifests.
func (p MismatchPolicy) String() string {
	switch p {
	case PolicyPreserve:
		return "preserve"
	case PolicyClobber:
		return "clobber"
	case PolicyError:
		return "error"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a policy name to a MismatchPolicy. The empty string
// parses to PolicyPreserve, the default.
func ParsePolicy(s string) (MismatchPolicy, error) {
	switch s {
	case "", "preserve":
		return PolicyPreserve, nil
	case "clobber":
		return PolicyClobber, nil
	case "error":
		return PolicyError, nil
	default:
		return PolicyPreserve, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// Definition is a frozen, ordered collection of keys owned by one mod.
// Key insertion order is preserved for deterministic serialization.
type Definition struct {
	owner   string
	version string
	policy  MismatchPolicy
	keys    []Key
	index   map[string]int
}

// Owner returns the owning mod's name.
func (d *Definition) Owner() string { return d.owner }

// Version returns the declared semantic version.
func (d *Definition) Version() string { return d.version }

// Policy returns the version-mismatch policy.
func (d *Definition) Policy() MismatchPolicy { return d.policy }

// Len returns the number of keys.
func (d *Definition) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order.
func (d *Definition) Keys() []Key {
	out := make([]Key, len(d.keys))
	copy(out, d.keys)
	return out
}

// Key looks up a key by name.
func (d *Definition) Key(name string) (Key, bool) {
	i, ok := d.index[name]
	if !ok {
		return Key{}, false
	}
	return d.keys[i], true
}

// Builder accumulates keys for one definition. A builder is single-use:
// Build freezes the result and the builder cannot be reused.
type Builder struct {
	owner   string
	version string
	policy  MismatchPolicy
	keys    []Key
	built   bool
}

// NewBuilder starts a definition for the named owner at the given version.
func NewBuilder(owner, version string) *Builder {
	return &Builder{owner: owner, version: version}
}

// Policy sets the version-mismatch policy. Default is PolicyPreserve.
func (b *Builder) Policy(p MismatchPolicy) *Builder {
	b.policy = p
	return b
}

// Add appends keys in order. Duplicate names are reported by Build.
func (b *Builder) Add(keys ...Key) *Builder {
	b.keys = append(b.keys, keys...)
	return b
}

// Build validates the accumulated keys and freezes them into a Definition.
func (b *Builder) Build() (*Definition, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	b.built = true

	if b.owner == "" {
		return nil, ErrMissingOwner
	}
	if !semverPattern.MatchString(b.version) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, b.version)
	}

	index := make(map[string]int, len(b.keys))
	for i, k := range b.keys {
		if k.Name() == "" {
			return nil, ErrEmptyKeyName
		}
		if _, exists := index[k.Name()]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, k.Name())
		}
		index[k.Name()] = i
	}

	keys := make([]Key, len(b.keys))
	copy(keys, b.keys)

	return &Definition{
		owner:   b.owner,
		version: b.version,
		policy:  b.policy,
		keys:    keys,
		index:   index,
	}, nil
}
