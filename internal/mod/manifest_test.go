package mod

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/modhost/internal/config"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "test.mod.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{
		"name": "greeter",
		"version": "1.2.0",
		"description": "says hello",
		"dependencies": ["base-lib"],
		"capabilities": ["filesystem.read"],
		"config": {
			"greeting": {"type": "string", "default": "hello"},
			"repeat": {"type": "int", "default": 2}
		},
		"configPolicy": "clobber"
	}`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if m.Name != "greeter" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.Main != DefaultMain {
		t.Errorf("Main = %q, want default %q", m.Main, DefaultMain)
	}
	if m.Dir != dir {
		t.Errorf("Dir = %q, want %q", m.Dir, dir)
	}
	if got := m.MainPath(); got != filepath.Join(dir, "init.lua") {
		t.Errorf("MainPath() = %q", got)
	}
	if m.Policy() != config.PolicyClobber {
		t.Errorf("Policy() = %v, want clobber", m.Policy())
	}
}

func TestManifest_Validate(t *testing.T) {
	valid := func() *Manifest {
		return &Manifest{Name: "good-mod", Version: "1.0.0", Main: "init.lua"}
	}

	tests := []struct {
		name    string
		mutate  func(*Manifest)
		wantErr bool
	}{
		{"valid", func(m *Manifest) {}, false},
		{"single letter name", func(m *Manifest) { m.Name = "x" }, false},
		{"missing name", func(m *Manifest) { m.Name = "" }, true},
		{"uppercase name", func(m *Manifest) { m.Name = "Bad" }, true},
		{"name ending in hyphen", func(m *Manifest) { m.Name = "bad-" }, true},
		{"name starting with digit", func(m *Manifest) { m.Name = "9lives" }, true},
		{"missing version", func(m *Manifest) { m.Version = "" }, true},
		{"loose version", func(m *Manifest) { m.Version = "1.0" }, true},
		{"prerelease version", func(m *Manifest) { m.Version = "2.0.0-beta.1" }, false},
		{"non-lua main", func(m *Manifest) { m.Main = "init.py" }, true},
		{"unknown capability", func(m *Manifest) { m.Capabilities = []string{"network"} }, true},
		{"known capability", func(m *Manifest) { m.Capabilities = []string{"shell"} }, false},
		{"bad config type", func(m *Manifest) {
			m.Config = map[string]ConfigProperty{"x": {Type: "strange"}}
		}, true},
		{"bad policy", func(m *Manifest) { m.ConfigPolicy = "explode" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestManifest_ConfigKeys(t *testing.T) {
	m := &Manifest{
		Name:    "m",
		Version: "1.0.0",
		Main:    "init.lua",
		Config: map[string]ConfigProperty{
			"zeta":  {Type: "string", Default: "z"},
			"alpha": {Type: "int", Default: float64(3)},
			"gap":   {Type: "bool", Optional: true},
		},
	}

	keys, err := m.configKeys()
	if err != nil {
		t.Fatalf("configKeys() error = %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("got %d keys, want 3", len(keys))
	}

	// Sorted by name regardless of JSON object order.
	want := []string{"alpha", "gap", "zeta"}
	for i, k := range keys {
		if k.Name() != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, k.Name(), want[i])
		}
	}

	// JSON numbers arrive as float64; int keys store int64 defaults.
	if v, ok := keys[0].TryDefault(); !ok || v != int64(3) {
		t.Errorf("alpha default = %v (%T), want int64(3)", v, v)
	}
	if !keys[1].IsOptional() {
		t.Error("gap should be optional")
	}
	if !keys[1].Validate(nil) {
		t.Error("optional key should accept nil")
	}
}

func TestLoadManifest_BadJSON(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `{not json`)
	if _, err := LoadManifest(path); err == nil {
		t.Fatal("LoadManifest() of malformed JSON succeeded")
	}
}
