package extension

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/zjrosen/registrar/internal/log"
)

// Loader reads extension manifests from <dir>/<extension>/extension.yaml.
type Loader struct {
	dir  string
	host *semver.Version
}

// NewLoader creates a loader for dir that admits extensions whose engine
// constraint accepts hostVersion.
func NewLoader(dir, hostVersion string) (*Loader, error) {
	v, err := semver.NewVersion(hostVersion)
	if err != nil {
		return nil, fmt.Errorf("host version %q: %w", hostVersion, err)
	}
	return &Loader{dir: dir, host: v}, nil
}

// Dir returns the extensions directory.
func (l *Loader) Dir() string {
	return l.dir
}

// HostVersion returns the version manifests are checked against.
func (l *Loader) HostVersion() *semver.Version {
	return l.host
}

// Scan reads every extension directory in name order. Malformed, incompatible
// and duplicate extensions are logged and skipped. A missing directory yields
// no extensions.
func (l *Loader) Scan() ([]*Manifest, error) {
	if l.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read extensions dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []*Manifest
	seen := make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(l.dir, entry.Name())
		m, err := l.LoadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			log.Warn(log.CatExtension, "Skipping extension", "dir", dir, "error", err)
			continue
		}
		if prev, dup := seen[m.Name]; dup {
			log.Warn(log.CatExtension, "Skipping duplicate extension", "name", m.Name, "dir", dir, "first", prev)
			continue
		}
		seen[m.Name] = dir
		out = append(out, m)
	}
	return out, nil
}

// LoadDir reads, validates and compatibility-checks the manifest in dir.
func (l *Loader) LoadDir(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is inside the configured extensions dir
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := m.CompatibleWith(l.host); err != nil {
		return nil, err
	}
	m.Dir = dir
	return m, nil
}

// ExtensionDir maps a path inside the extensions directory to the directory
// of the extension containing it. ok is false for paths outside any extension.
func (l *Loader) ExtensionDir(path string) (string, bool) {
	rel, err := filepath.Rel(l.dir, path)
	if err != nil {
		return "", false
	}
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	if first == "." || first == ".." || first == "" {
		return "", false
	}
	return filepath.Join(l.dir, first), true
}
