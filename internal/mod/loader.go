package mod

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/modhost/internal/ctxlog"
)

// Info is the discovery result for one mod artifact. Err is set when the
// artifact could not be resolved to a usable manifest; such artifacts are
// reported but never loaded.
type Info struct {
	Name         string
	Dir          string
	ManifestPath string
	Manifest     *Manifest
	Hash         string
	Err          error
}

// Loader discovers mod artifacts in the configured search paths.
type Loader struct {
	paths []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths replaces the default search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a loader with default search paths unless overridden.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{paths: DefaultModPaths()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultModPaths returns the standard mod directories in priority order.
func DefaultModPaths() []string {
	var paths []string
	if cfgDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(cfgDir, "modhost", "mods"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".modhost", "mods"))
	}
	return paths
}

// Paths returns the search paths in use.
func (l *Loader) Paths() []string {
	out := make([]string, len(l.paths))
	copy(out, l.paths)
	return out
}

// Discover scans the search paths for mod artifacts. Each child directory of
// a search path is one artifact and must contain exactly one *.mod.json
// manifest; artifacts with no manifest, several manifests, or an invalid one
// are returned with Err set rather than dropped.
//
// The only fatal error is a search path that exists but cannot be read.
// Missing paths are skipped.
func (l *Loader) Discover(ctx context.Context) ([]*Info, error) {
	log := ctxlog.FromContext(ctx)

	var infos []*Info
	for _, root := range l.paths {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("scan mod path %s: %w", root, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			info := l.inspect(filepath.Join(root, entry.Name()))
			if info.Err != nil {
				log.Warn("mod artifact rejected",
					slog.String("dir", info.Dir),
					slog.Any("error", info.Err))
			}
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// inspect resolves one artifact directory to its manifest and entry hash.
func (l *Loader) inspect(dir string) *Info {
	info := &Info{Dir: dir}

	manifests, err := filepath.Glob(filepath.Join(dir, "*"+ManifestSuffix))
	if err != nil {
		info.Err = fmt.Errorf("%w: %v", ErrNoManifest, err)
		return info
	}

	switch {
	case len(manifests) == 0:
		info.Err = ErrNoManifest
		return info
	case len(manifests) > 1:
		info.Err = fmt.Errorf("%w: found %d", ErrMultipleManifests, len(manifests))
		return info
	}
	info.ManifestPath = manifests[0]

	manifest, err := LoadManifest(info.ManifestPath)
	if err != nil {
		info.Err = err
		return info
	}
	info.Manifest = manifest
	info.Name = manifest.Name

	hash, err := hashFile(manifest.MainPath())
	if err != nil {
		info.Err = fmt.Errorf("hash entry script: %w", err)
		return info
	}
	info.Hash = hash

	return info
}

// hashFile returns the hex SHA-256 of a file's contents.
func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
