package mod

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeArtifact creates one mod artifact directory with a manifest and an
// entry script.
func writeArtifact(t *testing.T, root, name, script string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name": "` + name + `", "version": "1.0.0"}`
	if err := os.WriteFile(filepath.Join(dir, name+ManifestSuffix), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "init.lua"), []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoader_Discover(t *testing.T) {
	root := t.TempDir()
	writeArtifact(t, root, "alpha", `-- alpha`)
	writeArtifact(t, root, "beta", `-- beta`)

	// A loose file at the top level is not an artifact.
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(WithPaths(root))
	infos, err := l.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d artifacts, want 2", len(infos))
	}
	for _, info := range infos {
		if info.Err != nil {
			t.Errorf("%s: unexpected error %v", info.Dir, info.Err)
		}
		if info.Name == "" || info.Hash == "" {
			t.Errorf("%s: incomplete info %+v", info.Dir, info)
		}
	}
}

func TestLoader_Discover_NoManifest(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	infos, err := NewLoader(WithPaths(root)).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("got %d artifacts, want 1", len(infos))
	}
	if !errors.Is(infos[0].Err, ErrNoManifest) {
		t.Errorf("Err = %v, want ErrNoManifest", infos[0].Err)
	}
}

func TestLoader_Discover_MultipleManifests(t *testing.T) {
	root := t.TempDir()
	dir := writeArtifact(t, root, "twice", `-- twice`)
	if err := os.WriteFile(filepath.Join(dir, "extra.mod.json"), []byte(`{"name":"twice","version":"1.0.0"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	infos, err := NewLoader(WithPaths(root)).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("got %d artifacts, want 1", len(infos))
	}
	if !errors.Is(infos[0].Err, ErrMultipleManifests) {
		t.Errorf("Err = %v, want ErrMultipleManifests", infos[0].Err)
	}
}

func TestLoader_Discover_MissingPathSkipped(t *testing.T) {
	infos, err := NewLoader(WithPaths(filepath.Join(t.TempDir(), "nope"))).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("got %d artifacts from a missing path", len(infos))
	}
}

func TestLoader_Discover_MissingEntryScript(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "headless")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name": "headless", "version": "1.0.0"}`
	if err := os.WriteFile(filepath.Join(dir, "headless.mod.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	infos, err := NewLoader(WithPaths(root)).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(infos) != 1 || infos[0].Err == nil {
		t.Fatalf("expected a hash failure for a missing entry script, got %+v", infos)
	}
}
