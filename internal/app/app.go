// Package app wires registrar together: the contribution hub, the catalog,
// hotbars, persistence, extensions and the directory watchers.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/catalog/filesource"
	"github.com/zjrosen/registrar/internal/config"
	"github.com/zjrosen/registrar/internal/contrib"
	"github.com/zjrosen/registrar/internal/extension"
	"github.com/zjrosen/registrar/internal/flags"
	"github.com/zjrosen/registrar/internal/hotbar"
	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/pubsub"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/registry"
	"github.com/zjrosen/registrar/internal/store"
	"github.com/zjrosen/registrar/internal/tracing"
	"github.com/zjrosen/registrar/internal/ui/catalogview"
	"github.com/zjrosen/registrar/internal/watcher"
)

// Persisted document names.
const (
	DocHotbars     = "hotbars"
	DocLocal       = "local-entities"
	DocPreferences = "preferences"
)

// Change names published on the change broker.
const (
	ChangeContributions catalogview.Change = "contributions"
	ChangeCatalog       catalogview.Change = "catalog"
	ChangeCategories    catalogview.Change = "categories"
	ChangeActive        catalogview.Change = "active"
	ChangeHotbar        catalogview.Change = "hotbar"
)

const shutdownTimeout = 5 * time.Second

// App owns every long-lived service. Reads are safe from any goroutine;
// writes to the registry go through Do.
type App struct {
	Config     config.Config
	Flags      *flags.Registry
	Hub        *registry.Hub
	Stores     contrib.Stores
	Entities   *catalog.EntityRegistry
	Categories *catalog.CategoryRegistry
	Hotbar     *hotbar.Store
	Local      *catalog.LocalSource
	Files      *filesource.Source
	Actions    *extension.Actions
	Extensions *extension.Service

	// DB is nil when catalog persistence is disabled.
	DB *store.DB

	provider      *tracing.Provider
	changes       *pubsub.Broker[catalogview.Change]
	contributions reactive.Notifier

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	disposers reactive.Disposers
	watchers  []*watcher.Watcher
	wg        sync.WaitGroup

	done      chan struct{}
	quitOnce  sync.Once
	closeOnce sync.Once
	closed    bool
}

// New builds the application from cfg, restores persisted state and loads the
// built-in and directory extensions. Watchers are not started.
func New(ctx context.Context, cfg config.Config, version string) (*App, error) {
	cfg.Resolve()
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	provider := tracing.Noop()
	if cfg.Tracing.Enabled {
		p, err := tracing.NewProvider(ctx, cfg.Tracing)
		if err != nil {
			return nil, fmt.Errorf("start tracing: %w", err)
		}
		provider = p
	}
	tracer := provider.Tracer()

	hub := registry.NewHub(
		registry.WithCollisionPolicy(cfg.CollisionPolicy()),
		registry.WithTracer(tracer),
	)
	appCtx, cancel := context.WithCancel(context.Background())
	a := &App{
		Config:     cfg,
		Flags:      flags.WithDefaults(cfg.Flags),
		Hub:        hub,
		Stores:     contrib.StoresOf(hub),
		Entities:   catalog.NewEntityRegistry(catalog.WithTracer(tracer)),
		Categories: catalog.NewCategoryRegistry(catalog.General, catalog.KubernetesCluster),
		Hotbar:     hotbar.NewStore(cfg.Hotbar.Slots),
		Local:      catalog.NewLocalSource(),
		Files:      filesource.New(cfg.EntitiesDir),
		Actions:    extension.NewActions(),
		provider:   provider,
		changes:    pubsub.NewBroker[catalogview.Change](),
		ctx:        appCtx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	if err := a.init(ctx, version); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, version string) error {
	if a.Flags.Enabled(flags.FlagCELFilters) {
		for _, expr := range a.Config.Catalog.Filters {
			f, err := catalog.CompileFilter(expr)
			if err != nil {
				return fmt.Errorf("catalog filter %q: %w", expr, err)
			}
			a.disposers.Add(a.Entities.AddCatalogFilter(f))
		}
	}

	a.disposers.Add(a.Entities.AddComputedSource(catalog.LocalSourceName, a.Local.Reader()))
	a.disposers.Add(a.Entities.AddComputedSource(filesource.Name, a.Files.Reader()))
	if _, err := a.Files.Reload(); err != nil {
		log.ErrorErr(log.CatCatalog, "Reading entity manifests failed", err, "dir", a.Files.Dir())
	}

	a.registerActions()

	loader, err := extension.NewLoader(a.Config.ExtensionsDir, a.Config.HostVersion)
	if err != nil {
		return fmt.Errorf("extension loader: %w", err)
	}
	host := &extension.Host{Entities: a.Entities, Categories: a.Categories, Actions: a.Actions}
	a.Extensions = extension.NewService(a.Hub, host, loader, a.provider.Tracer())

	builtins := []*extension.Extension{
		extension.Core(extension.CoreDeps{Entities: a.Entities, Hotbar: a.Hotbar, Actions: a.Actions, Version: version}),
		extension.CatalogNav(a.Categories, a.Entities, version),
	}
	for _, ext := range builtins {
		if err := a.Extensions.Load(ctx, ext); err != nil {
			return err
		}
	}
	n, err := a.Extensions.LoadAll(ctx)
	if err != nil {
		log.ErrorErr(log.CatExtension, "Scanning extensions failed", err, "dir", a.Config.ExtensionsDir)
	}

	if a.Flags.Enabled(flags.FlagCatalogPersistence) {
		if err := a.openStore(ctx); err != nil {
			return err
		}
	}

	a.publishChanges()
	log.Info(log.CatApp, "Registrar ready",
		"extensions", n,
		"entities", len(a.Entities.Entities()),
		"producers", len(a.Hub.Producers()),
		"persistence", a.DB != nil)
	return nil
}

// registerActions installs the host actions extensions refer to by name.
func (a *App) registerActions() {
	a.Actions.Register(extension.ActionQuit, func(context.Context, *catalog.Entity) error {
		a.Quit()
		return nil
	})
	a.Actions.Register(extension.ActionRefresh, func(ctx context.Context, _ *catalog.Entity) error {
		return a.Refresh(ctx)
	})
}

// openStore opens the database, restores persisted documents and saves them
// again whenever they change.
func (a *App) openStore(ctx context.Context) error {
	db, err := store.Open(a.Config.DatabasePath())
	if err != nil {
		return err
	}
	a.DB = db

	prefs := &preferences{entities: a.Entities}
	docs := []struct {
		name string
		p    store.Persistable
		src  reactive.Source
	}{
		{DocHotbars, a.Hotbar, a.Hotbar},
		{DocLocal, a.Local, a.Local.Reader()},
		{DocPreferences, prefs, a.Entities.Active()},
	}
	for _, d := range docs {
		if _, err := db.Restore(ctx, d.name, d.p); err != nil {
			// A corrupt document is replaced on the next save.
			log.ErrorErr(log.CatStore, "Restoring document failed", err, "name", d.name)
		}
		a.disposers.Add(db.AutoSave(a.ctx, d.name, d.p, d.src))
	}
	a.disposers.Add(prefs.apply())
	return nil
}

func (a *App) publishChanges() {
	// Producer loads and every contribution store feed one notifier, so a batch
	// touching several stores publishes a single event.
	for _, src := range append(a.Stores.Sources(), a.Hub) {
		a.disposers.Add(a.contributions.Forward(src))
	}
	for _, s := range []struct {
		src    reactive.Source
		change catalogview.Change
	}{
		{&a.contributions, ChangeContributions},
		{a.Entities, ChangeCatalog},
		{a.Categories, ChangeCategories},
		{a.Entities.Active(), ChangeActive},
		{a.Hotbar, ChangeHotbar},
	} {
		change := s.change
		a.disposers.Add(s.src.Changes().Subscribe(func() {
			a.changes.Publish(pubsub.UpdatedEvent, change)
		}))
	}
}

// Do runs fn with exclusive write access to the registry.
func (a *App) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	return fn(ctx)
}

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("application closed")

// Changes delivers an event after every batch that changed registry state.
func (a *App) Changes() pubsub.Subscriber[catalogview.Change] {
	return a.changes
}

// Done is closed once the app.quit action runs.
func (a *App) Done() <-chan struct{} {
	return a.done
}

// Quit signals Done. Safe to call more than once.
func (a *App) Quit() {
	a.quitOnce.Do(func() { close(a.done) })
}

// Refresh re-reads the entity manifests and rescans the extensions directory.
// Callers hold the write lock.
func (a *App) Refresh(ctx context.Context) error {
	var errs []error
	if _, err := a.Files.Reload(); err != nil {
		errs = append(errs, err)
	}
	for _, info := range a.Extensions.List() {
		if !info.Builtin {
			a.Extensions.Unload(ctx, info.Name)
		}
	}
	if _, err := a.Extensions.LoadAll(ctx); err != nil {
		errs = append(errs, err)
	}
	log.Info(log.CatApp, "Catalog refreshed", "entities", len(a.Entities.Entities()))
	a.changes.Publish(pubsub.ReloadedEvent, ChangeCatalog)
	return errors.Join(errs...)
}

// Watch starts the entity manifest watcher and, with the hot reload flag, the
// extensions watcher. Batches of changed paths are applied through Do.
func (a *App) Watch() error {
	if err := os.MkdirAll(a.Config.EntitiesDir, 0o750); err != nil {
		return fmt.Errorf("create entities dir: %w", err)
	}
	files := watcher.DefaultConfig(a.Config.EntitiesDir)
	files.DebounceDur = a.Config.Watch.Debounce
	if err := a.watch(files, func(ctx context.Context, paths []string) error {
		log.Debug(log.CatWatcher, "Entity manifests changed", "paths", len(paths))
		_, err := a.Files.Reload()
		return err
	}); err != nil {
		return err
	}

	if !a.Flags.Enabled(flags.FlagExtensionHotReload) {
		return nil
	}
	if err := os.MkdirAll(a.Config.ExtensionsDir, 0o750); err != nil {
		return fmt.Errorf("create extensions dir: %w", err)
	}
	exts := watcher.DefaultConfig(a.Config.ExtensionsDir)
	exts.Recursive = true
	exts.DebounceDur = a.Config.Watch.Debounce
	return a.watch(exts, func(ctx context.Context, paths []string) error {
		a.Extensions.HandleChanges(ctx, paths)
		return nil
	})
}

func (a *App) watch(cfg watcher.Config, apply func(ctx context.Context, paths []string) error) error {
	w, err := watcher.New(cfg)
	if err != nil {
		return err
	}
	batches, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}
	a.watchers = append(a.watchers, w)
	log.Info(log.CatWatcher, "Watching directory", "dir", cfg.Dir)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-a.ctx.Done():
				return
			case paths, ok := <-batches:
				if !ok {
					return
				}
				err := a.Do(a.ctx, func(ctx context.Context) error { return apply(ctx, paths) })
				if err != nil && !errors.Is(err, ErrClosed) {
					log.ErrorErr(log.CatWatcher, "Applying changes failed", err, "dir", cfg.Dir)
				}
			}
		}
	}()
	return nil
}

// Close stops the watchers, unloads every producer, closes the database and
// flushes traces. Safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(a.shutdown)
}

func (a *App) shutdown() {
	a.cancel()
	for _, w := range a.watchers {
		if err := w.Stop(); err != nil {
			log.ErrorErr(log.CatWatcher, "Stopping watcher failed", err)
		}
	}
	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.disposers.Dispose()
	a.Hub.Close(ctx)
	a.changes.Close()
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.ErrorErr(log.CatStore, "Closing database failed", err)
		}
	}
	if err := a.provider.Shutdown(ctx); err != nil {
		log.ErrorErr(log.CatApp, "Flushing traces failed", err)
	}
	log.Info(log.CatApp, "Registrar stopped")
}

// preferences persists the active entity. A restored uid that is not in the
// catalog yet stays pending until the entity shows up, unless another entity
// is activated first.
type preferences struct {
	entities *catalog.EntityRegistry

	mu      sync.Mutex
	pending string
	waiting reactive.Disposers
}

type preferencesDoc struct {
	ActiveEntity string `json:"activeEntity,omitempty"`
}

func (p *preferences) Load(data []byte) error {
	var doc preferencesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode preferences: %w", err)
	}
	p.mu.Lock()
	p.pending = doc.ActiveEntity
	p.mu.Unlock()
	return nil
}

func (p *preferences) ToJSON() ([]byte, error) {
	var doc preferencesDoc
	if e := p.entities.ActiveEntity(); e != nil {
		doc.ActiveEntity = e.UID()
	} else {
		doc.ActiveEntity = p.pendingUID()
	}
	return json.Marshal(doc)
}

func (p *preferences) pendingUID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// apply activates the restored entity, or starts waiting for it. The returned
// disposer stops the wait.
func (p *preferences) apply() reactive.Disposer {
	uid := p.pendingUID()
	if uid == "" || p.restore() {
		return func() {}
	}
	log.Debug(log.CatApp, "Previously active entity not in catalog, waiting for it", "uid", uid)

	onEntities := p.entities.Changes().Subscribe(func() { p.restore() })
	onActive := p.entities.Active().Changes().Subscribe(func() {
		if e := p.entities.ActiveEntity(); e != nil {
			log.Debug(log.CatApp, "Dropping pending active entity", "uid", uid, "active", e.UID())
			p.stop()
		}
	})
	p.mu.Lock()
	p.waiting.Add(onEntities)
	p.waiting.Add(onActive)
	p.mu.Unlock()
	return p.stop
}

// restore activates the pending entity if the catalog has it.
func (p *preferences) restore() bool {
	uid := p.pendingUID()
	if uid == "" {
		return false
	}
	e, ok := p.entities.GetByID(uid)
	if !ok {
		return false
	}
	p.stop()
	p.entities.SetActiveEntity(e)
	log.Info(log.CatApp, "Restored active entity", "uid", uid)
	return true
}

func (p *preferences) stop() {
	p.mu.Lock()
	p.pending = ""
	waiting := p.waiting
	p.waiting = nil
	p.mu.Unlock()
	waiting.Dispose()
}
