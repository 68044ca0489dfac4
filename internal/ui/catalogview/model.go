// Package catalogview is the catalog browser: a live view over the registry
// showing sidebar items, the entities of the selected category, the active
// hotbar and the status bar, with a command palette and entity action menu.
package catalogview

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/contrib"
	"github.com/zjrosen/registrar/internal/extension"
	"github.com/zjrosen/registrar/internal/hotbar"
	"github.com/zjrosen/registrar/internal/keys"
	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/pubsub"
	"github.com/zjrosen/registrar/internal/registry"
	"github.com/zjrosen/registrar/internal/ui/commandpalette"
	"github.com/zjrosen/registrar/internal/ui/markdown"
)

// Change names the part of the registry that changed: "commands",
// "catalog", "hotbar" and so on.
type Change string

// Runner executes fn with exclusive write access to the registry.
type Runner func(ctx context.Context, fn func(ctx context.Context) error) error

// Deps are the registry services the browser reads and acts on.
type Deps struct {
	Context    context.Context
	Stores     contrib.Stores
	Entities   *catalog.EntityRegistry
	Categories *catalog.CategoryRegistry
	Hotbar     *hotbar.Store // optional
	Actions    *extension.Actions

	// Changes delivers an event whenever registry state changed.
	Changes pubsub.Subscriber[Change]
	// Done closes when the application asks to quit.
	Done <-chan struct{}
	// Run serialises writes. Nil runs actions directly.
	Run Runner

	ShowSidebar   bool
	ShowStatusBar bool
}

type focus int

const (
	focusSidebar focus = iota
	focusEntities
)

type paletteMode int

const (
	paletteClosed paletteMode = iota
	paletteCommands
	paletteEntityMenu
)

// actionDoneMsg reports the result of a command, entity action or run.
type actionDoneMsg struct {
	label string
	err   error
}

type quitMsg struct{}

// Model is the catalog browser state.
type Model struct {
	deps     Deps
	ctx      context.Context
	listener *pubsub.ContinuousListener[Change]

	width  int
	height int

	focus         focus
	sidebarCursor int
	entityCursor  int
	showSidebar   bool
	showStatus    bool
	showDetails   bool
	help          help.Model
	md            *markdown.Renderer

	palette     commandpalette.Model
	paletteMode paletteMode
	menuEntity  string // uid the entity menu was opened for

	sidebar     []*registry.Contribution[contrib.SidebarItem]
	entities    []*catalog.Entity
	statusLeft  []*registry.Contribution[contrib.StatusBarItem]
	statusRight []*registry.Contribution[contrib.StatusBarItem]
	bar         *hotbar.Hotbar

	notice string
	err    error
}

// New creates a browser over deps.
func New(deps Deps) Model {
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}
	m := Model{
		deps:        deps,
		ctx:         ctx,
		showSidebar: deps.ShowSidebar,
		showStatus:  deps.ShowStatusBar,
		help:        help.New(),
		md:          markdown.New(0),
	}
	if deps.Changes != nil {
		m.listener = pubsub.NewContinuousListener(ctx, deps.Changes)
	}
	return m.refresh()
}

// Init starts listening for registry changes and quit requests.
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.listener != nil {
		cmds = append(cmds, m.listener.Latest())
	}
	if m.deps.Done != nil {
		done := m.deps.Done
		cmds = append(cmds, func() tea.Msg {
			<-done
			return quitMsg{}
		})
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.palette = m.palette.SetSize(msg.Width, msg.Height)
		return m, nil

	case pubsub.Event[Change]:
		m = m.refresh()
		if m.paletteMode != paletteClosed {
			m.palette = m.palette.Refresh()
		}
		if m.listener == nil {
			return m, nil
		}
		return m, m.listener.Latest()

	case actionDoneMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatUI, "Action failed", msg.err, "action", msg.label)
			m.err, m.notice = msg.err, ""
		} else {
			m.err, m.notice = nil, msg.label
		}
		return m.refresh(), nil

	case quitMsg:
		return m, tea.Quit

	case tea.MouseMsg:
		if m.paletteMode != paletteClosed {
			return m, nil
		}
		return m.handleMouse(msg)

	case commandpalette.SelectMsg:
		return m.selectFromPalette(msg.Item)

	case commandpalette.CancelMsg:
		m.paletteMode = paletteClosed
		return m, nil

	case tea.KeyMsg:
		if m.paletteMode != paletteClosed {
			var cmd tea.Cmd
			m.palette, cmd = m.palette.Update(msg)
			return m, cmd
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := keys.Catalog
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit

	case key.Matches(msg, k.Up):
		m = m.moveCursor(-1)
	case key.Matches(msg, k.Down):
		m = m.moveCursor(1)
	case key.Matches(msg, k.Left):
		if m.showSidebar {
			m.focus = focusSidebar
		}
	case key.Matches(msg, k.Right):
		m.focus = focusEntities
	case key.Matches(msg, k.NextFocus):
		if m.focus == focusSidebar || !m.showSidebar {
			m.focus = focusEntities
		} else {
			m.focus = focusSidebar
		}

	case key.Matches(msg, k.Run):
		if m.focus == focusSidebar {
			m.focus = focusEntities
			return m, nil
		}
		if e := m.SelectedEntity(); e != nil {
			return m, m.runEntity(e)
		}
	case key.Matches(msg, k.EntityMenu):
		if e := m.SelectedEntity(); e != nil {
			return m.openEntityMenu(e)
		}
	case key.Matches(msg, k.Details):
		m.showDetails = !m.showDetails
	case key.Matches(msg, k.Pin):
		if e := m.SelectedEntity(); e != nil && m.deps.Hotbar != nil {
			return m, m.do("Pinned "+e.Metadata.Name, func(context.Context) error {
				return m.deps.Hotbar.AddToHotbar(e)
			})
		}
	case key.Matches(msg, k.Unpin):
		if e := m.SelectedEntity(); e != nil && m.deps.Hotbar != nil {
			return m, m.do("Unpinned "+e.Metadata.Name, func(context.Context) error {
				if !m.deps.Hotbar.RemoveFromHotbar(e.UID()) {
					return fmt.Errorf("%s is not pinned", e.Metadata.Name)
				}
				return nil
			})
		}
	case key.Matches(msg, k.ClearActive):
		return m, m.do("Cleared active entity", func(context.Context) error {
			m.deps.Entities.ClearActiveEntity()
			return nil
		})
	case key.Matches(msg, k.Refresh):
		if m.deps.Actions != nil {
			return m, m.do("Refreshed catalog", func(ctx context.Context) error {
				return m.deps.Actions.Run(ctx, extension.ActionRefresh, nil)
			})
		}

	case key.Matches(msg, k.NextHotbar):
		return m, m.cycleHotbar(1)
	case key.Matches(msg, k.PrevHotbar):
		return m, m.cycleHotbar(-1)
	case key.Matches(msg, k.Slot):
		return m, m.runSlot(int(msg.Runes[0] - '1'))

	case key.Matches(msg, k.Palette):
		return m.openCommands()
	case key.Matches(msg, k.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		if !m.showSidebar {
			m.focus = focusEntities
		}
	case key.Matches(msg, k.ToggleStatus):
		m.showStatus = !m.showStatus
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, k.Escape):
		m.err, m.notice = nil, ""
	}
	return m, nil
}

func (m Model) moveCursor(delta int) Model {
	if m.focus == focusSidebar && m.showSidebar {
		next := clamp(m.sidebarCursor+delta, len(m.sidebar))
		if next != m.sidebarCursor {
			m.sidebarCursor = next
			m.entityCursor = 0
			m = m.refresh()
		}
		return m
	}
	m.entityCursor = clamp(m.entityCursor+delta, len(m.entities))
	return m
}

func clamp(i, n int) int {
	if n == 0 {
		return 0
	}
	return max(0, min(i, n-1))
}

// do runs fn through the configured Runner and reports the outcome.
func (m Model) do(label string, fn func(ctx context.Context) error) tea.Cmd {
	run, ctx := m.deps.Run, m.ctx
	return func() tea.Msg {
		var err error
		if run != nil {
			err = run(ctx, fn)
		} else {
			err = fn(ctx)
		}
		return actionDoneMsg{label: label, err: err}
	}
}

func (m Model) runEntity(e *catalog.Entity) tea.Cmd {
	return m.do("Opened "+e.Metadata.Name, func(ctx context.Context) error {
		ran, err := m.deps.Entities.Run(ctx, e)
		if err != nil {
			return err
		}
		if !ran {
			return errors.New("opening " + e.Metadata.Name + " was cancelled")
		}
		return nil
	})
}

func (m Model) runSlot(index int) tea.Cmd {
	if m.bar == nil || index < 0 || index >= len(m.bar.Items) || m.bar.Items[index] == nil {
		return nil
	}
	item := m.bar.Items[index]
	e, ok := m.deps.Entities.GetByID(item.UID)
	if !ok {
		return func() tea.Msg {
			return actionDoneMsg{label: "slot", err: fmt.Errorf("%s is no longer in the catalog", item.Name)}
		}
	}
	return m.runEntity(e)
}

func (m Model) cycleHotbar(delta int) tea.Cmd {
	if m.deps.Hotbar == nil || m.bar == nil {
		return nil
	}
	bars := m.deps.Hotbar.Hotbars()
	if len(bars) < 2 {
		return nil
	}
	cur := 0
	for i, h := range bars {
		if h.ID == m.bar.ID {
			cur = i
		}
	}
	next := bars[(cur+delta+len(bars))%len(bars)]
	return m.do("Hotbar "+next.Name, func(context.Context) error {
		return m.deps.Hotbar.SetActive(next.ID)
	})
}

func (m Model) openCommands() (tea.Model, tea.Cmd) {
	store := m.deps.Stores.Commands
	m.palette = commandpalette.New(commandpalette.Config{
		Title:       "Commands",
		Placeholder: "Type a command...",
		Search: func(query string) []commandpalette.Item {
			cmds := contrib.CommandPalette(store, query)
			items := make([]commandpalette.Item, len(cmds))
			for i, c := range cmds {
				items[i] = commandpalette.Item{ID: c.ID, Title: c.Payload.Title, Detail: c.Payload.Scope}
			}
			return items
		},
	}).SetSize(m.width, m.height)
	m.paletteMode = paletteCommands
	return m, m.palette.Init()
}

func (m Model) openEntityMenu(e *catalog.Entity) (tea.Model, tea.Cmd) {
	store, uid := m.deps.Stores.EntityMenuItems, e.UID()
	m.palette = commandpalette.New(commandpalette.Config{
		Title:       e.Metadata.Name,
		Placeholder: "Action...",
		Search: func(query string) []commandpalette.Item {
			var items []commandpalette.Item
			for _, c := range contrib.EntityMenu(store, e) {
				items = append(items, commandpalette.Item{ID: c.ID, Title: c.Payload.Title, Detail: c.Payload.Icon})
			}
			return commandpalette.StaticSearch(items)(query)
		},
	}).SetSize(m.width, m.height)
	m.paletteMode = paletteEntityMenu
	m.menuEntity = uid
	return m, m.palette.Init()
}

func (m Model) selectFromPalette(item commandpalette.Item) (tea.Model, tea.Cmd) {
	mode := m.paletteMode
	m.paletteMode = paletteClosed

	switch mode {
	case paletteCommands:
		c, ok := m.deps.Stores.Commands.Get(item.ID)
		if !ok || c.Payload.Run == nil {
			return m, nil
		}
		return m, m.do(c.Payload.Title, c.Payload.Run)

	case paletteEntityMenu:
		c, ok := m.deps.Stores.EntityMenuItems.Get(item.ID)
		if !ok || c.Payload.Run == nil {
			return m, nil
		}
		e, ok := m.deps.Entities.GetByID(m.menuEntity)
		if !ok {
			return m, nil
		}
		run := c.Payload.Run
		return m, m.do(c.Payload.Title+" "+e.Metadata.Name, func(ctx context.Context) error {
			return run(ctx, e)
		})
	}
	return m, nil
}

// refresh re-reads the registry into the view snapshot.
func (m Model) refresh() Model {
	m.sidebar = contrib.SortedSidebar(m.deps.Stores.SidebarItems)
	m.sidebarCursor = clamp(m.sidebarCursor, len(m.sidebar))

	target := ""
	if len(m.sidebar) > 0 {
		target = m.sidebar[m.sidebarCursor].Payload.Target
	}
	m.entities = nil
	for _, e := range m.deps.Entities.Entities() {
		if target == "" || e.KindData().String() == target {
			m.entities = append(m.entities, e)
		}
	}
	m.entityCursor = clamp(m.entityCursor, len(m.entities))

	m.statusLeft, m.statusRight = contrib.StatusBar(m.deps.Stores.StatusBarItems)
	if m.deps.Hotbar != nil {
		m.bar = m.deps.Hotbar.Active()
	}
	return m
}

// SelectedEntity returns the entity under the cursor.
func (m Model) SelectedEntity() *catalog.Entity {
	if m.entityCursor < len(m.entities) {
		return m.entities[m.entityCursor]
	}
	return nil
}

// VisibleEntities returns the entities listed for the selected sidebar item.
func (m Model) VisibleEntities() []*catalog.Entity {
	return m.entities
}

// SidebarTitles returns the sidebar item titles in display order.
func (m Model) SidebarTitles() []string {
	titles := make([]string, len(m.sidebar))
	for i, c := range m.sidebar {
		titles[i] = c.Payload.Title
	}
	return titles
}

// PaletteOpen reports whether the command palette or entity menu is showing.
func (m Model) PaletteOpen() bool {
	return m.paletteMode != paletteClosed
}

// Palette returns the palette model.
func (m Model) Palette() commandpalette.Model {
	return m.palette
}

// DetailsShown reports whether the entity details pane is toggled on.
func (m Model) DetailsShown() bool {
	return m.showDetails
}

// Err returns the last action error.
func (m Model) Err() error {
	return m.err
}

// Notice returns the last action confirmation.
func (m Model) Notice() string {
	return m.notice
}
