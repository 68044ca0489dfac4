package catalogview

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/contrib"
	"github.com/zjrosen/registrar/internal/extension"
	"github.com/zjrosen/registrar/internal/hotbar"
	"github.com/zjrosen/registrar/internal/pubsub"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/registry"
	"github.com/zjrosen/registrar/internal/testutil"
	"github.com/zjrosen/registrar/internal/ui/commandpalette"
)

type fixture struct {
	cat     *testutil.Catalog
	hub     *registry.Hub
	hotbar  *hotbar.Store
	actions *extension.Actions
	broker  *pubsub.Broker[Change]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cat:     testutil.NewBuilder(t).WithStandardCatalog().Build(),
		hub:     registry.NewHub(),
		hotbar:  hotbar.NewStore(4),
		actions: extension.NewActions(),
		broker:  pubsub.NewBroker[Change](),
	}
	ctx := context.Background()
	_, err := f.hub.Load(ctx, extension.Core(extension.CoreDeps{
		Entities: f.cat.Entities,
		Hotbar:   f.hotbar,
		Actions:  f.actions,
		Version:  "0.4.0",
	}))
	require.NoError(t, err)
	_, err = f.hub.Load(ctx, extension.CatalogNav(f.cat.Categories, f.cat.Entities, "0.4.0"))
	require.NoError(t, err)
	t.Cleanup(func() { f.hub.Close(ctx) })
	return f
}

func (f *fixture) model() Model {
	m := New(Deps{
		Stores:        contrib.StoresOf(f.hub),
		Entities:      f.cat.Entities,
		Categories:    f.cat.Categories,
		Hotbar:        f.hotbar,
		Actions:       f.actions,
		Changes:       f.broker,
		ShowSidebar:   true,
		ShowStatusBar: true,
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(Model)
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

// settle runs cmd and feeds its message back, following palette selections.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		switch msg.(type) {
		case actionDoneMsg, commandpalette.SelectMsg, commandpalette.CancelMsg:
		default:
			return m
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestNew_ReadsSidebarAndEntities(t *testing.T) {
	m := newFixture(t).model()

	require.Equal(t, []string{"All (5)", "General (2)", "Kubernetes Clusters (3)"}, m.SidebarTitles())
	require.Len(t, m.VisibleEntities(), 5)
	require.Equal(t, "prod", m.SelectedEntity().Metadata.Name)
}

func TestSidebarNavigation_FiltersEntities(t *testing.T) {
	m := newFixture(t).model()

	m, _ = press(m, "j", "j")
	require.Len(t, m.VisibleEntities(), 3)
	for _, e := range m.VisibleEntities() {
		require.Equal(t, catalog.KubernetesCluster.Kind, e.Kind)
	}

	m, _ = press(m, "k")
	require.Len(t, m.VisibleEntities(), 2)

	m, _ = press(m, "j", "j", "j")
	require.Len(t, m.VisibleEntities(), 3, "cursor stops at the last item")
}

func TestEnter_RunsEntityAndUpdatesStatusBar(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m, _ = press(m, "l", "j")
	m, cmd := press(m, "enter")
	m = settle(t, m, cmd)

	require.NoError(t, m.Err())
	require.Equal(t, "Opened staging", m.Notice())
	require.Equal(t, "cluster-staging", f.cat.Entities.ActiveEntity().UID())
	require.Contains(t, m.View(), "● staging")
}

func TestEnter_CancelledRunReportsError(t *testing.T) {
	f := newFixture(t)
	f.cat.Entities.AddOnBeforeRun(func(_ context.Context, ev *catalog.RunEvent) error {
		ev.PreventDefault()
		return nil
	})
	m := f.model()

	m, cmd := press(m, "l", "enter")
	m = settle(t, m, cmd)

	require.ErrorContains(t, m.Err(), "cancelled")
	require.Nil(t, f.cat.Entities.ActiveEntity())
}

func TestPinAndSlot(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m, cmd := press(m, "l", "j", "j", "p")
	m = settle(t, m, cmd)
	require.Equal(t, "cluster-dev", f.hotbar.Items()[0].UID)
	require.Contains(t, m.View(), "1 dev")

	m, cmd = press(m, "1")
	m = settle(t, m, cmd)
	require.Equal(t, "cluster-dev", f.cat.Entities.ActiveEntity().UID())

	m, cmd = press(m, "u")
	m = settle(t, m, cmd)
	require.Nil(t, f.hotbar.Items()[0])

	m, cmd = press(m, "u")
	m = settle(t, m, cmd)
	require.ErrorContains(t, m.Err(), "not pinned")
}

func TestSlot_EmptyDoesNothing(t *testing.T) {
	m := newFixture(t).model()
	_, cmd := press(m, "3")
	require.Nil(t, cmd)
}

func TestCommandPalette_RunsLiveCommand(t *testing.T) {
	f := newFixture(t)
	f.cat.Entities.SetActiveEntity(f.cat.Source.Get()[0])
	m := f.model()

	m, _ = press(m, ":")
	require.True(t, m.PaletteOpen())

	m, _ = press(m, "c", "l", "e", "a", "r")
	require.Equal(t, "Clear active entity", m.Palette().Items()[0].Title)

	m, cmd := press(m, "enter")
	m = settle(t, m, cmd)

	require.False(t, m.PaletteOpen())
	require.Nil(t, f.cat.Entities.ActiveEntity())
	require.Equal(t, "Clear active entity", m.Notice())
}

func TestCommandPalette_EscCloses(t *testing.T) {
	m := newFixture(t).model()
	m, _ = press(m, ":")
	m, cmd := press(m, "esc")
	m = settle(t, m, cmd)
	require.False(t, m.PaletteOpen())
}

func TestEntityMenu_PinsEntity(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m, _ = press(m, "l", "m")
	require.True(t, m.PaletteOpen())
	titles := make([]string, 0)
	for _, it := range m.Palette().Items() {
		titles = append(titles, it.Title)
	}
	require.Equal(t, []string{"Open", "Pin to hotbar"}, titles)

	m, _ = press(m, "down")
	m, cmd := press(m, "enter")
	m = settle(t, m, cmd)

	require.NoError(t, m.Err())
	require.Equal(t, "cluster-prod", f.hotbar.Items()[0].UID)
}

func TestChangesEvent_RefreshesSnapshot(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	f.cat.Entities.AddComputedSource("extra", reactive.Static([]*catalog.Entity{
		testutil.NewEntity("extra-1", testutil.Cluster()),
	}))
	require.Len(t, m.VisibleEntities(), 5, "snapshot is stale until the change event")

	next, cmd := m.Update(pubsub.Event[Change]{Type: pubsub.UpdatedEvent, Payload: "catalog"})
	m = next.(Model)
	require.NotNil(t, cmd, "keeps listening")
	require.Len(t, m.VisibleEntities(), 6)
	require.Equal(t, "All (6)", m.SidebarTitles()[0])
}

func TestRefreshKey_RunsHostAction(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.actions.Register(extension.ActionRefresh, func(context.Context, *catalog.Entity) error {
		calls++
		return nil
	})
	m := f.model()

	m, cmd := press(m, "r")
	m = settle(t, m, cmd)
	require.Equal(t, 1, calls)
	require.Equal(t, "Refreshed catalog", m.Notice())
}

func TestRunner_WrapsActions(t *testing.T) {
	f := newFixture(t)
	wrapped := 0
	m := New(Deps{
		Stores:     contrib.StoresOf(f.hub),
		Entities:   f.cat.Entities,
		Categories: f.cat.Categories,
		Run: func(ctx context.Context, fn func(context.Context) error) error {
			wrapped++
			return fn(ctx)
		},
	})

	m, cmd := press(m, "l", "x")
	settle(t, m, cmd)
	require.Equal(t, 1, wrapped)
}

func TestToggles(t *testing.T) {
	m := newFixture(t).model()
	require.Contains(t, m.View(), "Catalog")
	require.Contains(t, m.View(), "No active entity")

	m, _ = press(m, "b", "w")
	view := m.View()
	require.NotContains(t, view, "╭─ Catalog")
	require.NotContains(t, view, "No active entity")
	require.Equal(t, focusEntities, m.focus)
}

func TestQuit(t *testing.T) {
	m := newFixture(t).model()

	_, cmd := press(m, "q")
	require.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = m.Update(quitMsg{})
	require.IsType(t, tea.QuitMsg{}, cmd())
}
