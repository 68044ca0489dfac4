package catalogview

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/stretchr/testify/require"
)

// zoneFor renders m until the zone manager has recorded id.
func zoneFor(t *testing.T, m Model, id string) *zone.ZoneInfo {
	t.Helper()
	for range 100 {
		_ = zone.Scan(m.View())
		if z := zone.Get(id); z != nil && !z.IsZero() {
			return z
		}
		// Zone registration is asynchronous via a channel worker in bubblezone.
		time.Sleep(time.Millisecond)
	}
	require.FailNow(t, "zone never registered", id)
	return nil
}

func click(t *testing.T, m Model, id string) (Model, tea.Cmd) {
	t.Helper()
	z := zoneFor(t, m, id)
	next, cmd := m.Update(tea.MouseMsg{
		X:      z.StartX + (z.EndX-z.StartX)/2,
		Y:      z.StartY,
		Button: tea.MouseButtonLeft,
		Action: tea.MouseActionRelease,
	})
	return next.(Model), cmd
}

func TestClick_SidebarSelectsCategory(t *testing.T) {
	m := newFixture(t).model()

	m, cmd := click(t, m, sidebarZone(2))
	require.Nil(t, cmd)
	require.Equal(t, focusSidebar, m.focus)
	require.Len(t, m.VisibleEntities(), 3)
}

func TestClick_EntitySelectsThenRuns(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m, cmd := click(t, m, entityZone(1))
	require.Nil(t, cmd, "first click only selects")
	require.Equal(t, focusEntities, m.focus)
	require.Equal(t, "staging", m.SelectedEntity().Metadata.Name)

	m, cmd = click(t, m, entityZone(1))
	require.NotNil(t, cmd)
	m = settle(t, m, cmd)
	require.Equal(t, "Opened staging", m.Notice())
	require.Equal(t, "cluster-staging", f.cat.Entities.ActiveEntity().UID())
}

func TestClick_HotbarSlotRuns(t *testing.T) {
	f := newFixture(t)
	dev, ok := f.cat.Entities.GetByID("cluster-dev")
	require.True(t, ok)
	require.NoError(t, f.hotbar.AddToHotbar(dev))
	m := f.model()

	m, cmd := click(t, m, slotZone(0))
	require.NotNil(t, cmd)
	m = settle(t, m, cmd)
	require.Equal(t, "Opened dev", m.Notice())
}

func TestMouseWheel_MovesCursor(t *testing.T) {
	m := newFixture(t).model()
	m.focus = focusEntities

	next, _ := m.Update(tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	m = next.(Model)
	require.Equal(t, "staging", m.SelectedEntity().Metadata.Name)

	next, _ = m.Update(tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	require.Equal(t, "prod", next.(Model).SelectedEntity().Metadata.Name)
}

func TestClick_IgnoredWhilePaletteOpen(t *testing.T) {
	m := newFixture(t).model()
	z := zoneFor(t, m, sidebarZone(2))

	m, _ = press(m, ":")
	require.True(t, m.PaletteOpen())
	next, cmd := m.Update(tea.MouseMsg{X: z.StartX, Y: z.StartY, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	require.Nil(t, cmd)
	require.Len(t, next.(Model).VisibleEntities(), 5)
}
