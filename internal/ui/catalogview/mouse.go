package catalogview

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
)

// Zone IDs for clickable rows. The outermost view must pass its output
// through zone.Scan for clicks to resolve.
func sidebarZone(i int) string { return "catalog-sidebar-" + strconv.Itoa(i) }
func entityZone(i int) string { return "catalog-entity-" + strconv.Itoa(i) }
func slotZone(i int) string { return "catalog-slot-" + strconv.Itoa(i) }

func inZone(id string, msg tea.MouseMsg) bool {
	z := zone.Get(id)
	return z != nil && z.InBounds(msg)
}

// handleMouse selects sidebar items and entities on click, runs an entity
// clicked while already selected, and runs hotbar slots. The wheel moves the
// cursor of the focused pane.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return m.moveCursor(-1), nil
	case tea.MouseButtonWheelDown:
		return m.moveCursor(1), nil
	}
	if msg.Button != tea.MouseButtonLeft || msg.Action != tea.MouseActionRelease {
		return m, nil
	}

	if m.showSidebar {
		for i := range m.sidebar {
			if !inZone(sidebarZone(i), msg) {
				continue
			}
			m.focus = focusSidebar
			if i != m.sidebarCursor {
				m.sidebarCursor, m.entityCursor = i, 0
				m = m.refresh()
			}
			return m, nil
		}
	}

	for i, e := range m.entities {
		if !inZone(entityZone(i), msg) {
			continue
		}
		selected := m.focus == focusEntities && i == m.entityCursor
		m.focus, m.entityCursor = focusEntities, i
		if selected {
			return m, m.runEntity(e)
		}
		return m, nil
	}

	if m.bar != nil {
		for i := range m.bar.Items {
			if inZone(slotZone(i), msg) {
				return m, m.runSlot(i)
			}
		}
	}
	return m, nil
}
