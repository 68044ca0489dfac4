package extension

import (
	"context"
	"fmt"
	"strings"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/contrib"
	"github.com/zjrosen/registrar/internal/hotbar"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/registry"
)

// Built-in extension names.
const (
	CoreName       = "core"
	CatalogNavName = "catalog-nav"
)

// Host actions the built-ins refer to.
const (
	ActionQuit    = "app.quit"
	ActionRefresh = "catalog.refresh"
)

// memo keeps one contribution per id and reuses it while key is unchanged, so
// recomputed lists only differ where something actually changed.
type memo[T any] struct {
	byID map[string]memoEntry[T]
}

type memoEntry[T any] struct {
	key string
	c   *registry.Contribution[T]
}

func (m *memo[T]) get(id, key string, build func() T) *registry.Contribution[T] {
	if m.byID == nil {
		m.byID = make(map[string]memoEntry[T])
	}
	if e, ok := m.byID[id]; ok && e.key == key {
		return e.c
	}
	c := registry.New(id, build())
	m.byID[id] = memoEntry[T]{key: key, c: c}
	return c
}

// CoreDeps are the host services the core extension acts on.
type CoreDeps struct {
	Entities *catalog.EntityRegistry
	Hotbar   *hotbar.Store // optional
	Actions  *Actions
	Version  string
}

// Core builds the core extension: application commands, commands that only
// exist while an entity is active, the active-entity status item and the
// default entity actions.
func Core(d CoreDeps) *Extension {
	version := d.Version
	if version == "" {
		version = "0.0.0"
	}
	m := &Manifest{Name: CoreName, Version: version, Description: "Core commands and status"}
	ext := &Extension{Manifest: m, Builtin: true}

	quit := registry.New("core.quit", contrib.Command{Title: "Quit", Scope: contrib.ScopeGlobal, Run: d.Actions.bind(ActionQuit)})
	refresh := registry.New("core.refresh", contrib.Command{Title: "Refresh catalog", Scope: contrib.ScopeGlobal, Run: d.Actions.bind(ActionRefresh)})
	clearActive := registry.New("core.clear-active", contrib.Command{
		Title: "Clear active entity",
		Scope: contrib.ScopeGlobal,
		Run: func(context.Context) error {
			d.Entities.ClearActiveEntity()
			return nil
		},
	})

	var cmdMemo memo[contrib.Command]
	commandDeps := []reactive.Source{d.Entities.Active()}
	if d.Hotbar != nil {
		commandDeps = append(commandDeps, d.Hotbar)
	}
	ext.bindings = append(ext.bindings, registry.Func(contrib.Commands, func() ([]*registry.Contribution[contrib.Command], error) {
		items := []*registry.Contribution[contrib.Command]{quit, refresh}
		active := d.Entities.ActiveEntity()
		if active == nil {
			return items, nil
		}
		items = append(items, clearActive)
		if d.Hotbar != nil && !pinned(d.Hotbar, active.UID()) {
			items = append(items, cmdMemo.get("core.pin-active", active.UID()+"|"+active.Metadata.Name, func() contrib.Command {
				return contrib.Command{
					Title: fmt.Sprintf("Pin %s to hotbar", active.Metadata.Name),
					Scope: contrib.ScopeEntity,
					Run: func(context.Context) error {
						return d.Hotbar.AddToHotbar(active)
					},
				}
			}))
		}
		return items, nil
	}, commandDeps...))

	var statusMemo memo[contrib.StatusBarItem]
	ext.bindings = append(ext.bindings, registry.Func(contrib.StatusBarItems, func() ([]*registry.Contribution[contrib.StatusBarItem], error) {
		text := "No active entity"
		if e := d.Entities.ActiveEntity(); e != nil {
			text = "● " + e.Metadata.Name
		}
		item := statusMemo.get("core.active-entity", text, func() contrib.StatusBarItem {
			return contrib.StatusBarItem{Text: text, Align: contrib.AlignLeft, Tooltip: "Active entity"}
		})
		return []*registry.Contribution[contrib.StatusBarItem]{item}, nil
	}, d.Entities.Active()))

	entityItems := []*registry.Contribution[contrib.EntityMenuItem]{
		registry.New("core.entity.open", contrib.EntityMenuItem{
			Title: "Open",
			Run: func(ctx context.Context, e *catalog.Entity) error {
				_, err := d.Entities.Run(ctx, e)
				return err
			},
		}),
	}
	if d.Hotbar != nil {
		entityItems = append(entityItems, registry.New("core.entity.pin", contrib.EntityMenuItem{
			Title: "Pin to hotbar",
			Run: func(_ context.Context, e *catalog.Entity) error {
				return d.Hotbar.AddToHotbar(e)
			},
		}))
	}
	ext.bindings = append(ext.bindings,
		registry.Static(contrib.EntityMenuItems, entityItems...),
		registry.Static(contrib.MenuItems,
			registry.New("core.file", contrib.MenuItem{Label: "File"}),
			registry.NewChild("core.file.refresh", "core.file", contrib.MenuItem{Label: "Refresh", Accelerator: "r", Run: d.Actions.bind(ActionRefresh)}),
			registry.NewChild("core.file.quit", "core.file", contrib.MenuItem{Label: "Quit", Accelerator: "q", Run: d.Actions.bind(ActionQuit)}),
		),
	)
	return ext
}

func pinned(h *hotbar.Store, uid string) bool {
	for _, it := range h.Items() {
		if it != nil && it.UID == uid {
			return true
		}
	}
	return false
}

// CatalogNav builds the navigation extension: one sidebar item per visible
// category with its visible entity count, after an "All" item.
func CatalogNav(categories *catalog.CategoryRegistry, entities *catalog.EntityRegistry, version string) *Extension {
	if version == "" {
		version = "0.0.0"
	}
	m := &Manifest{Name: CatalogNavName, Version: version, Description: "Sidebar navigation by category"}
	ext := &Extension{Manifest: m, Builtin: true}

	var sideMemo memo[contrib.SidebarItem]
	ext.bindings = append(ext.bindings, registry.Func(contrib.SidebarItems, func() ([]*registry.Contribution[contrib.SidebarItem], error) {
		all := entities.Entities()
		title := fmt.Sprintf("All (%d)", len(all))
		items := []*registry.Contribution[contrib.SidebarItem]{
			sideMemo.get("catalog-nav.all", title, func() contrib.SidebarItem {
				return contrib.SidebarItem{Title: title, Icon: "≡", Order: 0}
			}),
		}

		counts := make(map[catalog.KindData]int)
		for _, e := range all {
			counts[e.KindData()]++
		}
		for i, c := range categories.FilteredItems() {
			title := fmt.Sprintf("%s (%d)", c.Metadata.Name, counts[c.KindData()])
			order := i + 1
			key := fmt.Sprintf("%s|%s|%d", title, c.Metadata.Icon, order)
			id := "catalog-nav." + strings.ToLower(c.Kind) + "." + c.APIVersion
			items = append(items, sideMemo.get(id, key, func() contrib.SidebarItem {
				return contrib.SidebarItem{Title: title, Icon: c.Metadata.Icon, Order: order, Target: c.ID()}
			}))
		}
		return items, nil
	}, categories, entities))
	return ext
}
