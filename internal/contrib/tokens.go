// Package contrib declares the closed set of contribution tokens registrar
// understands and the payload each one carries.
package contrib

import (
	"context"
	"slices"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/registry"
)

// Command scopes.
const (
	ScopeGlobal = "global"
	ScopeEntity = "entity"
)

// Status bar alignment.
const (
	AlignLeft  = "left"
	AlignRight = "right"
)

// Command is an invocable action shown in the command palette.
type Command struct {
	Title string
	Scope string
	Run   func(ctx context.Context) error `json:"-"`
}

// SidebarItem is a navigation entry. Target is usually a category id.
type SidebarItem struct {
	Title  string
	Icon   string
	Order  int
	Target string
}

// MenuItem is an application menu entry; nesting uses the contribution ParentID.
type MenuItem struct {
	Label       string
	Accelerator string
	Run         func(ctx context.Context) error `json:"-"`
}

// StatusBarItem is a piece of text in the status bar.
type StatusBarItem struct {
	Text    string
	Align   string
	Tooltip string
}

// EntityMenuItem is an action offered on catalog entities. Empty Kinds means every kind.
type EntityMenuItem struct {
	Title string
	Icon  string
	Kinds []string
	Run   func(ctx context.Context, e *catalog.Entity) error `json:"-"`
}

// AppliesTo reports whether the item is offered for e.
func (m EntityMenuItem) AppliesTo(e *catalog.Entity) bool {
	if e == nil {
		return false
	}
	return len(m.Kinds) == 0 || slices.Contains(m.Kinds, e.Kind)
}

var (
	Commands        = registry.NewToken[Command]("commands")
	SidebarItems    = registry.NewToken[SidebarItem]("sidebarItems")
	MenuItems       = registry.NewToken[MenuItem]("menuItems")
	StatusBarItems  = registry.NewToken[StatusBarItem]("statusBarItems")
	EntityMenuItems = registry.NewToken[EntityMenuItem]("entityMenuItems")
)

// TokenNames lists every token name in display order.
func TokenNames() []string {
	return []string{
		Commands.Name(),
		SidebarItems.Name(),
		MenuItems.Name(),
		StatusBarItems.Name(),
		EntityMenuItems.Name(),
	}
}

// Stores groups the hub's stores for the closed token set.
type Stores struct {
	Commands        *registry.Store[Command]
	SidebarItems    *registry.Store[SidebarItem]
	MenuItems       *registry.Store[MenuItem]
	StatusBarItems  *registry.Store[StatusBarItem]
	EntityMenuItems *registry.Store[EntityMenuItem]
}

// StoresOf returns the stores for every token, creating them if needed.
func StoresOf(hub *registry.Hub) Stores {
	return Stores{
		Commands:        registry.MustStoreFor(hub, Commands),
		SidebarItems:    registry.MustStoreFor(hub, SidebarItems),
		MenuItems:       registry.MustStoreFor(hub, MenuItems),
		StatusBarItems:  registry.MustStoreFor(hub, StatusBarItems),
		EntityMenuItems: registry.MustStoreFor(hub, EntityMenuItems),
	}
}

// Sources returns every store as a change source, in token order.
func (s Stores) Sources() []reactive.Source {
	return []reactive.Source{s.Commands, s.SidebarItems, s.MenuItems, s.StatusBarItems, s.EntityMenuItems}
}

// Counts returns the number of contributions per token name.
func (s Stores) Counts() map[string]int {
	return map[string]int{
		Commands.Name():        s.Commands.Len(),
		SidebarItems.Name():    s.SidebarItems.Len(),
		MenuItems.Name():       s.MenuItems.Len(),
		StatusBarItems.Name():  s.StatusBarItems.Len(),
		EntityMenuItems.Name(): s.EntityMenuItems.Len(),
	}
}
