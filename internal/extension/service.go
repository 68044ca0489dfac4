package extension

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/registry"
	"github.com/zjrosen/registrar/internal/tracing"
)

// Info describes a loaded extension.
type Info struct {
	Name        string
	Version     string
	Description string
	Builtin     bool
	Dir         string
	Bindings    int
}

// Service loads extensions into a hub and keeps track of them.
type Service struct {
	hub    *registry.Hub
	host   *Host
	loader *Loader
	tracer trace.Tracer

	mu     sync.Mutex
	loaded map[string]*Extension
	dirs   map[string]string // extension dir -> name
}

// NewService creates a service. loader may be nil when only built-ins are used.
func NewService(hub *registry.Hub, host *Host, loader *Loader, tracer trace.Tracer) *Service {
	if tracer == nil {
		tracer = tracing.Noop().Tracer()
	}
	return &Service{
		hub:    hub,
		host:   host,
		loader: loader,
		tracer: tracer,
		loaded: make(map[string]*Extension),
		dirs:   make(map[string]string),
	}
}

// Load registers ext with the hub.
func (s *Service) Load(ctx context.Context, ext *Extension) error {
	ctx, span := s.tracer.Start(ctx, tracing.SpanExtensionLoad, trace.WithAttributes(
		attribute.String(tracing.AttrExtension, ext.ID()),
		attribute.Int(tracing.AttrBindings, len(ext.Bindings())),
	))
	defer span.End()

	if _, err := s.hub.Load(ctx, ext); err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("load extension %s: %w", ext.ID(), err)
	}

	s.mu.Lock()
	s.loaded[ext.ID()] = ext
	if ext.Manifest.Dir != "" {
		s.dirs[ext.Manifest.Dir] = ext.ID()
	}
	s.mu.Unlock()

	log.Info(log.CatExtension, "Loaded extension", "name", ext.ID(), "version", ext.Manifest.Version, "builtin", ext.Builtin)
	return nil
}

// Unload deregisters the extension called name. Unknown names are ignored.
func (s *Service) Unload(ctx context.Context, name string) {
	s.mu.Lock()
	ext, ok := s.loaded[name]
	if ok {
		delete(s.loaded, name)
		if ext.Manifest.Dir != "" {
			delete(s.dirs, ext.Manifest.Dir)
		}
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.hub.Unload(ctx, name)
	log.Info(log.CatExtension, "Unloaded extension", "name", name)
}

// LoadAll scans the extensions directory and loads every valid extension.
// Extensions that fail to load are logged and skipped; the count of loaded
// extensions is returned.
func (s *Service) LoadAll(ctx context.Context) (int, error) {
	if s.loader == nil {
		return 0, nil
	}
	manifests, err := s.loader.Scan()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range manifests {
		if err := s.Load(ctx, s.host.FromManifest(m)); err != nil {
			log.ErrorErr(log.CatExtension, "Extension failed to load", err, "dir", m.Dir)
			continue
		}
		n++
	}
	return n, nil
}

// Reload re-reads the extension in dir: the loaded version is unloaded and the
// manifest loaded again. A removed or invalid manifest leaves it unloaded.
func (s *Service) Reload(ctx context.Context, dir string) error {
	if s.loader == nil {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, tracing.SpanExtensionReload)
	defer span.End()

	s.mu.Lock()
	prev, had := s.dirs[dir]
	s.mu.Unlock()
	if had {
		s.Unload(ctx, prev)
	}

	m, err := s.loader.LoadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info(log.CatExtension, "Extension removed", "dir", dir)
			return nil
		}
		tracing.RecordError(span, err)
		return err
	}
	if other := s.Extension(m.Name); other != nil {
		return fmt.Errorf("extension %s already loaded from %q: %w", m.Name, other.Manifest.Dir, registry.ErrAlreadyRegistered)
	}
	return s.Load(ctx, s.host.FromManifest(m))
}

// HandleChanges reloads every extension containing one of paths, once each.
// Used by the extensions directory watcher.
func (s *Service) HandleChanges(ctx context.Context, paths []string) {
	if s.loader == nil {
		return
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		if dir, ok := s.loader.ExtensionDir(p); ok {
			dirs[dir] = true
		}
	}
	ordered := make([]string, 0, len(dirs))
	for d := range dirs {
		ordered = append(ordered, d)
	}
	sort.Strings(ordered)
	for _, dir := range ordered {
		if err := s.Reload(ctx, dir); err != nil {
			log.Warn(log.CatExtension, "Extension reload failed", "dir", dir, "error", err)
		}
	}
}

// Extension returns the loaded extension called name, or nil.
func (s *Service) Extension(name string) *Extension {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded[name]
}

// List describes loaded extensions sorted by name.
func (s *Service) List() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Info, 0, len(s.loaded))
	for _, ext := range s.loaded {
		m := ext.Manifest
		out = append(out, Info{
			Name:        m.Name,
			Version:     m.Version,
			Description: m.Description,
			Builtin:     ext.Builtin,
			Dir:         m.Dir,
			Bindings:    len(ext.Bindings()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
