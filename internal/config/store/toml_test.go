package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/modhost/internal/config"
)

func testDefinition(t *testing.T) *config.Definition {
	t.Helper()
	def, err := config.NewBuilder("sample-mod", "1.0.0").
		Add(
			config.NewKey("greeting", config.TypeString, config.WithDefaultValue("hi")),
			config.NewKey("retries", config.TypeInt, config.WithDefaultValue(int64(3))),
		).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return def
}

func TestTOMLStore_LoadMissingFile(t *testing.T) {
	st := NewTOMLStore(t.TempDir())
	def := testDefinition(t)

	snap, err := st.Load(def)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap != nil {
		t.Fatalf("Load() = %+v, want nil for a missing file", snap)
	}
}

func TestTOMLStore_SaveThenLoad(t *testing.T) {
	st := NewTOMLStore(filepath.Join(t.TempDir(), "state"))
	def := testDefinition(t)

	in := map[string]any{
		"greeting": "hello",
		"retries":  int64(5),
	}
	if err := st.Save(def, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	snap, err := st.Load(def)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap == nil {
		t.Fatal("Load() = nil after Save")
	}
	if snap.Version != "1.0.0" {
		t.Errorf("snapshot version = %q, want 1.0.0", snap.Version)
	}
	if snap.Values["greeting"] != "hello" {
		t.Errorf("greeting = %v, want hello", snap.Values["greeting"])
	}
	if snap.Values["retries"] != int64(5) {
		t.Errorf("retries = %v (%T), want int64(5)", snap.Values["retries"], snap.Values["retries"])
	}
}

func TestTOMLStore_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	st := NewTOMLStore(dir)
	def := testDefinition(t)

	if err := os.WriteFile(st.Path(def.Owner()), []byte("= not toml ="), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := st.Load(def); err == nil {
		t.Fatal("Load() of corrupt file succeeded, want error")
	}
}

func TestTOMLStore_Path(t *testing.T) {
	st := NewTOMLStore("/var/lib/modhost")
	want := filepath.Join("/var/lib/modhost", "sample-mod.toml")
	if got := st.Path("sample-mod"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}
