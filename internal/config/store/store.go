// Package store persists mod configuration snapshots.
//
// The orchestrator treats store failures as per-mod and non-fatal: a mod
// whose snapshot cannot be read proceeds with defaults.
package store

import "github.com/dshills/modhost/internal/config"

// Store reads and writes persisted configuration for one definition at a
// time, keyed by the definition's owner.
type Store interface {
	// Load returns the persisted snapshot for the definition's owner, or
	// nil when nothing has been saved yet.
	Load(def *config.Definition) (*config.Snapshot, error)

	// Save writes the definition's declared version and the given values.
	Save(def *config.Definition, values map[string]any) error
}
