package mod

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/modhost/internal/config"
	"github.com/dshills/modhost/internal/mod/lua"
)

// ManifestSuffix identifies a mod manifest file inside an artifact directory.
const ManifestSuffix = ".mod.json"

// DefaultMain is the entry script used when a manifest omits "main".
const DefaultMain = "init.lua"

var (
	namePattern    = regexp.MustCompile(`^[a-z]$|^[a-z][a-z0-9-]*[a-z0-9]$`)
	versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)
)

// ConfigProperty declares one configuration key in a manifest.
type ConfigProperty struct {
	Type        string `json:"type"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Internal    bool   `json:"internal,omitempty"`
}

// Manifest describes a mod: identity, entry point, dependencies, requested
// capabilities, and declared configuration keys.
type Manifest struct {
	Name         string                    `json:"name"`
	Version      string                    `json:"version"`
	DisplayName  string                    `json:"displayName,omitempty"`
	Description  string                    `json:"description,omitempty"`
	Author       string                    `json:"author,omitempty"`
	License      string                    `json:"license,omitempty"`
	Homepage     string                    `json:"homepage,omitempty"`
	Main         string                    `json:"main,omitempty"`
	Dependencies []string                  `json:"dependencies,omitempty"`
	Capabilities []string                  `json:"capabilities,omitempty"`
	Config       map[string]ConfigProperty `json:"config,omitempty"`
	ConfigPolicy string                    `json:"configPolicy,omitempty"`

	// Dir is the artifact directory the manifest was loaded from.
	Dir string `json:"-"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", filepath.Base(path), err)
	}
	m.Dir = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", filepath.Base(path), err)
	}
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = DefaultMain
	}
}

// Validate checks the manifest fields for well-formedness.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("missing name")
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("invalid name %q: must be lowercase letters, digits, and hyphens", m.Name)
	}
	if m.Version == "" {
		return fmt.Errorf("missing version")
	}
	if !versionPattern.MatchString(m.Version) {
		return fmt.Errorf("invalid version %q: must be semantic (e.g. 1.0.0)", m.Version)
	}
	if !strings.HasSuffix(m.Main, ".lua") {
		return fmt.Errorf("invalid main %q: must be a .lua file", m.Main)
	}
	for _, c := range m.Capabilities {
		if !lua.KnownCapabilities[lua.Capability(c)] {
			return fmt.Errorf("unknown capability %q", c)
		}
	}
	for name, prop := range m.Config {
		if name == "" {
			return fmt.Errorf("config key with empty name")
		}
		if _, err := config.ParseType(prop.Type); err != nil {
			return fmt.Errorf("config key %q: %w", name, err)
		}
	}
	if _, err := config.ParsePolicy(m.ConfigPolicy); err != nil {
		return err
	}
	return nil
}

// MainPath returns the absolute path to the entry script.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.Dir, m.Main)
}

// Policy returns the parsed version-mismatch policy. Validate guarantees it
// parses; the zero value is the preserve default.
func (m *Manifest) Policy() config.MismatchPolicy {
	p, _ := config.ParsePolicy(m.ConfigPolicy)
	return p
}

// configKeys converts the manifest's config block into typed keys, sorted by
// name so the order is stable across loads (JSON object order is not).
func (m *Manifest) configKeys() ([]config.Key, error) {
	names := make([]string, 0, len(m.Config))
	for name := range m.Config {
		names = append(names, name)
	}
	sort.Strings(names)

	keys := make([]config.Key, 0, len(names))
	for _, name := range names {
		prop := m.Config[name]
		typ, err := config.ParseType(prop.Type)
		if err != nil {
			return nil, fmt.Errorf("config key %q: %w", name, err)
		}

		opts := []config.KeyOption{}
		if prop.Description != "" {
			opts = append(opts, config.WithDescription(prop.Description))
		}
		if prop.Optional {
			opts = append(opts, config.Optional())
		}
		if prop.Internal {
			opts = append(opts, config.Internal())
		}
		if prop.Default != nil {
			def := coerceJSONValue(typ, prop.Default)
			opts = append(opts, config.WithDefaultValue(def))
		}
		keys = append(keys, config.NewKey(name, typ, opts...))
	}
	return keys, nil
}

// coerceJSONValue adjusts JSON-decoded values to the representation the key
// type expects. encoding/json decodes every number as float64; integral
// values declared as int become int64.
func coerceJSONValue(typ config.Type, v any) any {
	if typ != config.TypeInt {
		return v
	}
	f, ok := v.(float64)
	if !ok || f != float64(int64(f)) {
		return v
	}
	return int64(f)
}
