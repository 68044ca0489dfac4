package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/registrar/internal/keys"
	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/ui/catalogview"
	"github.com/zjrosen/registrar/internal/ui/logoverlay"
)

// Model is the root bubbletea model: the catalog browser plus, in debug mode,
// the log overlay.
type Model struct {
	browser catalogview.Model

	debugMode   bool
	logs        logoverlay.Model
	logListener *log.LogListener
}

// NewModel creates the root model over a.
func NewModel(a *App, debugMode bool) Model {
	m := Model{
		browser: catalogview.New(catalogview.Deps{
			Context:       a.ctx,
			Stores:        a.Stores,
			Entities:      a.Entities,
			Categories:    a.Categories,
			Hotbar:        a.Hotbar,
			Actions:       a.Actions,
			Changes:       a.Changes(),
			Done:          a.Done(),
			Run:           a.Do,
			ShowSidebar:   a.Config.UI.ShowSidebar,
			ShowStatusBar: a.Config.UI.ShowStatusBar,
		}),
		debugMode: debugMode,
		logs:      logoverlay.New(),
	}
	if debugMode {
		m.logListener = log.NewListener(a.ctx)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.browser.Init()}
	if m.logListener != nil {
		cmds = append(cmds, m.logListener.Listen())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.logs = m.logs.SetSize(msg.Width, msg.Height)

	case log.LogEvent:
		m.logs = m.logs.Append(msg.Payload)
		if m.logListener == nil {
			return m, nil
		}
		return m, m.logListener.Listen()

	case logoverlay.CloseMsg:
		return m, nil

	case tea.KeyMsg:
		if m.debugMode && key.Matches(msg, keys.App.Logs) {
			m.logs = m.logs.Toggle()
			return m, nil
		}
		if m.logs.Visible() {
			var cmd tea.Cmd
			m.logs, cmd = m.logs.Update(msg)
			return m, cmd
		}
	}

	next, cmd := m.browser.Update(msg)
	m.browser = next.(catalogview.Model)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	return zone.Scan(m.logs.Overlay(m.browser.View()))
}

// Browser returns the catalog browser state.
func (m Model) Browser() catalogview.Model {
	return m.browser
}
