package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/modhost/internal/config"
)

// TOMLStore persists one TOML file per mod under a state directory.
type TOMLStore struct {
	dir string
}

// NewTOMLStore creates a store rooted at dir. The directory is created on
// first save.
func NewTOMLStore(dir string) *TOMLStore {
	return &TOMLStore{dir: dir}
}

// Dir returns the state directory.
func (s *TOMLStore) Dir() string {
	return s.dir
}

// Path returns the snapshot file path for the named owner.
func (s *TOMLStore) Path(owner string) string {
	return filepath.Join(s.dir, owner+".toml")
}

// tomlSnapshot is the on-disk shape of one mod's configuration.
type tomlSnapshot struct {
	Version string         `toml:"version"`
	Values  map[string]any `toml:"values"`
}

// Load reads the owner's snapshot. A missing file is not an error: it
// returns a nil snapshot so the caller resolves defaults.
func (s *TOMLStore) Load(def *config.Definition) (*config.Snapshot, error) {
	data, err := os.ReadFile(s.Path(def.Owner()))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config for %q: %w", def.Owner(), err)
	}

	var snap tomlSnapshot
	if err := toml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse config for %q: %w", def.Owner(), err)
	}
	if snap.Values == nil {
		snap.Values = make(map[string]any)
	}

	return &config.Snapshot{Version: snap.Version, Values: snap.Values}, nil
}

// Save writes the definition's version and the given values.
func (s *TOMLStore) Save(def *config.Definition, values map[string]any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := toml.Marshal(tomlSnapshot{
		Version: def.Version(),
		Values:  values,
	})
	if err != nil {
		return fmt.Errorf("encode config for %q: %w", def.Owner(), err)
	}

	if err := os.WriteFile(s.Path(def.Owner()), data, 0o644); err != nil {
		return fmt.Errorf("write config for %q: %w", def.Owner(), err)
	}
	return nil
}
