// Package filesource reads catalog entities from a directory of yaml manifests.
package filesource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
)

// Name is the source label of entities read from manifests.
const Name = "file"

// Source holds the entities of every *.yaml file in a directory. A file may
// contain several documents separated by "---".
type Source struct {
	dir   string
	value *reactive.Value[[]*catalog.Entity]
}

// New creates a source for dir. Nothing is read until Reload.
func New(dir string) *Source {
	return &Source{dir: dir, value: reactive.NewValue[[]*catalog.Entity](nil)}
}

// Dir returns the manifest directory.
func (s *Source) Dir() string {
	return s.dir
}

// Reader exposes the entity list for EntityRegistry.AddComputedSource.
func (s *Source) Reader() reactive.Reader[[]*catalog.Entity] {
	return s.value
}

// Reload re-reads the directory and publishes the result. Malformed files and
// documents are logged and skipped. A missing directory yields no entities.
// Returns the number of entities read.
func (s *Source) Reload() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("read entities dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []*catalog.Entity
	seen := make(map[string]string)
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		entities, err := readFile(path)
		if err != nil {
			log.Warn(log.CatCatalog, "Skipping entity manifest", "path", path, "error", err)
		}
		for _, e := range entities {
			if prev, dup := seen[e.UID()]; dup {
				log.Warn(log.CatCatalog, "Duplicate entity uid in manifests", "uid", e.UID(), "path", path, "first", prev)
				continue
			}
			seen[e.UID()] = path
			out = append(out, e)
		}
	}

	s.value.Set(out)
	log.Debug(log.CatCatalog, "Reloaded entity manifests", "dir", s.dir, "files", len(names), "entities", len(out))
	return len(out), nil
}

// readFile decodes every document in path. Valid documents before a
// malformed one are kept.
func readFile(path string) ([]*catalog.Entity, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is inside the configured entities dir
	if err != nil {
		return nil, err
	}

	var out []*catalog.Entity
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for i := 0; ; i++ {
		var e catalog.Entity
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("document %d: %w", i, err)
		}
		if err := normalize(&e); err != nil {
			log.Warn(log.CatCatalog, "Skipping entity", "path", path, "document", i, "error", err)
			continue
		}
		out = append(out, &e)
	}
}

func normalize(e *catalog.Entity) error {
	if e.APIVersion == "" || e.Kind == "" {
		return errors.New("apiVersion and kind are required")
	}
	if e.Metadata.Name == "" {
		return errors.New("metadata.name is required")
	}
	e.Metadata.Source = Name
	if e.Metadata.UID == "" {
		e.Metadata.UID = catalog.StableUID(Name, e.KindData().String()+"/"+e.Metadata.Name)
	}
	if e.Status.Phase == "" {
		e.Status.Phase = catalog.PhaseAvailable
	}
	return nil
}
