package extension

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/contrib"
	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/registry"
)

// ErrUnknownAction is returned when a contribution names an action the host
// does not provide.
var ErrUnknownAction = errors.New("unknown action")

// Action is a host operation manifests can reference by name.
type Action func(ctx context.Context, e *catalog.Entity) error

// Actions maps action names to host operations. Safe for concurrent use.
type Actions struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewActions creates an empty action table.
func NewActions() *Actions {
	return &Actions{actions: make(map[string]Action)}
}

// Register adds or replaces an action.
func (a *Actions) Register(name string, fn Action) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions[name] = fn
}

// Names returns registered action names in order.
func (a *Actions) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.actions))
	for n := range a.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run invokes the named action. The action is resolved at call time so
// extensions loaded before the host registers its actions still work.
func (a *Actions) Run(ctx context.Context, name string, e *catalog.Entity) error {
	a.mu.RLock()
	fn, ok := a.actions[name]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownAction)
	}
	return fn(ctx, e)
}

func (a *Actions) bind(name string) func(ctx context.Context) error {
	if name == "" {
		return nil
	}
	return func(ctx context.Context) error { return a.Run(ctx, name, nil) }
}

// Host is what extensions contribute into besides the token stores.
type Host struct {
	Entities   *catalog.EntityRegistry
	Categories *catalog.CategoryRegistry
	Actions    *Actions
}

// Extension is a producer backed by a manifest or by built-in code.
type Extension struct {
	Manifest *Manifest
	Builtin  bool

	bindings []registry.Binding
}

// ID returns the extension name; it doubles as the producer id.
func (e *Extension) ID() string {
	return e.Manifest.Name
}

// Bindings implements registry.Producer.
func (e *Extension) Bindings() []registry.Binding {
	return e.bindings
}

// FromManifest builds a producer with static bindings for everything m
// contributes.
func (h *Host) FromManifest(m *Manifest) *Extension {
	c := m.Contributes
	ext := &Extension{Manifest: m}

	if len(c.Commands) > 0 {
		items := make([]*registry.Contribution[contrib.Command], len(c.Commands))
		for i, d := range c.Commands {
			scope := d.Scope
			if scope == "" {
				scope = contrib.ScopeGlobal
			}
			items[i] = registry.NewChild(d.ID, d.Parent, contrib.Command{Title: d.Title, Scope: scope, Run: h.Actions.bind(d.Action)})
		}
		ext.bindings = append(ext.bindings, registry.Static(contrib.Commands, items...))
	}
	if len(c.SidebarItems) > 0 {
		items := make([]*registry.Contribution[contrib.SidebarItem], len(c.SidebarItems))
		for i, d := range c.SidebarItems {
			items[i] = registry.New(d.ID, contrib.SidebarItem{Title: d.Title, Icon: d.Icon, Order: d.Order, Target: d.Target})
		}
		ext.bindings = append(ext.bindings, registry.Static(contrib.SidebarItems, items...))
	}
	if len(c.MenuItems) > 0 {
		items := make([]*registry.Contribution[contrib.MenuItem], len(c.MenuItems))
		for i, d := range c.MenuItems {
			items[i] = registry.NewChild(d.ID, d.Parent, contrib.MenuItem{Label: d.Label, Accelerator: d.Accelerator, Run: h.Actions.bind(d.Action)})
		}
		ext.bindings = append(ext.bindings, registry.Static(contrib.MenuItems, items...))
	}
	if len(c.StatusBarItems) > 0 {
		items := make([]*registry.Contribution[contrib.StatusBarItem], len(c.StatusBarItems))
		for i, d := range c.StatusBarItems {
			align := d.Align
			if align == "" {
				align = contrib.AlignLeft
			}
			items[i] = registry.New(d.ID, contrib.StatusBarItem{Text: d.Text, Align: align, Tooltip: d.Tooltip})
		}
		ext.bindings = append(ext.bindings, registry.Static(contrib.StatusBarItems, items...))
	}
	if len(c.EntityMenuItems) > 0 {
		items := make([]*registry.Contribution[contrib.EntityMenuItem], len(c.EntityMenuItems))
		for i, d := range c.EntityMenuItems {
			item := contrib.EntityMenuItem{Title: d.Title, Icon: d.Icon, Kinds: d.Kinds}
			if d.Action != "" {
				action := d.Action
				item.Run = func(ctx context.Context, e *catalog.Entity) error { return h.Actions.Run(ctx, action, e) }
			}
			items[i] = registry.New(d.ID, item)
		}
		ext.bindings = append(ext.bindings, registry.Static(contrib.EntityMenuItems, items...))
	}
	if len(c.Categories) > 0 && h.Categories != nil {
		ext.bindings = append(ext.bindings, h.Categories.Binding(c.Categories...))
	}
	if len(c.Entities) > 0 && h.Entities != nil {
		ext.bindings = append(ext.bindings, h.Entities.Source("entities", reactive.Static(manifestEntities(m))))
	}

	log.Debug(log.CatExtension, "Built extension producer", "name", m.Name, "bindings", len(ext.bindings))
	return ext
}

// manifestEntities copies the declared entities, labelling their source and
// deriving uids for entities declared without one.
func manifestEntities(m *Manifest) []*catalog.Entity {
	source := "extension:" + m.Name
	out := make([]*catalog.Entity, 0, len(m.Contributes.Entities))
	for _, e := range m.Contributes.Entities {
		c := e.Clone()
		c.Metadata.Source = source
		if c.Metadata.UID == "" {
			c.Metadata.UID = catalog.StableUID(source, c.Metadata.Name)
		}
		if c.Status.Phase == "" {
			c.Status.Phase = catalog.PhaseAvailable
		}
		out = append(out, c)
	}
	return out
}
