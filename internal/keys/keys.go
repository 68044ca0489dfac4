// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// CatalogKeyMap defines the keybindings for the catalog browser.
type CatalogKeyMap struct {
	// Navigation
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	NextFocus key.Binding

	// Entities
	Run         key.Binding
	EntityMenu  key.Binding
	Details     key.Binding
	Pin         key.Binding
	Unpin       key.Binding
	ClearActive key.Binding
	Refresh     key.Binding

	// Hotbar
	NextHotbar key.Binding
	PrevHotbar key.Binding
	Slot       key.Binding

	// General
	Palette       key.Binding
	ToggleSidebar key.Binding
	ToggleStatus  key.Binding
	Help          key.Binding
	Escape        key.Binding
	Quit          key.Binding
}

// PaletteKeyMap defines the keybindings inside the command palette and entity menu.
type PaletteKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Execute key.Binding
	Close   key.Binding
}

// Catalog holds the default catalog browser bindings.
var Catalog = CatalogKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "move down"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "focus sidebar"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "focus entities"),
	),
	NextFocus: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch pane"),
	),

	Run: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open entity"),
	),
	EntityMenu: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "entity actions"),
	),
	Details: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "entity details"),
	),
	Pin: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pin to hotbar"),
	),
	Unpin: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "unpin"),
	),
	ClearActive: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "clear active"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh catalog"),
	),

	NextHotbar: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "next hotbar"),
	),
	PrevHotbar: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "previous hotbar"),
	),
	Slot: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "open hotbar slot"),
	),

	Palette: key.NewBinding(
		key.WithKeys(":", "ctrl+p"),
		key.WithHelp(":", "command palette"),
	),
	ToggleSidebar: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "toggle sidebar"),
	),
	ToggleStatus: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "toggle status bar"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Escape: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "go back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Palette holds the default palette bindings. Printable keys go to the query input.
var Palette = PaletteKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+k"),
		key.WithHelp("↑/ctrl+k", "previous"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+j"),
		key.WithHelp("↓/ctrl+j", "next"),
	),
	Execute: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "run"),
	),
	Close: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close"),
	),
}

// ShortHelp returns keybindings for the short help view.
func (k CatalogKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Palette, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k CatalogKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.NextFocus},                               // Navigation
		{k.Run, k.EntityMenu, k.Details, k.Pin, k.Unpin, k.ClearActive, k.Refresh}, // Entities
		{k.NextHotbar, k.PrevHotbar, k.Slot},                                       // Hotbar
		{k.Palette, k.ToggleSidebar, k.ToggleStatus, k.Help, k.Quit},               // General
	}
}

// ShortHelp returns keybindings for the palette footer.
func (k PaletteKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Execute, k.Close}
}

// FullHelp returns keybindings for the full help view.
func (k PaletteKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// AppKeyMap defines bindings handled above the catalog browser.
type AppKeyMap struct {
	Logs key.Binding
}

// App holds the application-level bindings. Logs only works in debug mode.
var App = AppKeyMap{
	Logs: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "toggle logs"),
	),
}
