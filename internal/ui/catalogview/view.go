package catalogview

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/contrib"
	"github.com/zjrosen/registrar/internal/keys"
	"github.com/zjrosen/registrar/internal/registry"
	"github.com/zjrosen/registrar/internal/ui/styles"
)

const sidebarWidth = 28

// View renders the browser.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var rows []string
	if m.bar != nil {
		rows = append(rows, m.renderHotbar())
	}

	footer := m.renderFooter()
	paneHeight := max(m.height-len(rows)-lipgloss.Height(footer), 3)

	entityWidth := m.width
	var panes []string
	if m.showSidebar {
		entityWidth -= sidebarWidth
		panes = append(panes, styles.RenderPane(m.renderSidebar(), "Catalog", sidebarWidth, paneHeight, m.focus == focusSidebar))
	}
	detailsWidth := 0
	if m.showDetails && entityWidth >= minDetailsWidth {
		detailsWidth = entityWidth * 2 / 5
		entityWidth -= detailsWidth
	}
	panes = append(panes, styles.RenderPane(m.renderEntities(paneHeight-2), m.entityPaneTitle(), entityWidth, paneHeight, m.focus == focusEntities))
	if detailsWidth > 0 {
		panes = append(panes, styles.RenderPane(m.renderDetails(detailsWidth-2), "Details", detailsWidth, paneHeight, false))
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, panes...), footer)

	view := strings.Join(rows, "\n")
	if m.paletteMode != paletteClosed {
		return m.palette.Overlay(view)
	}
	return view
}

func (m Model) renderHotbar() string {
	var b strings.Builder
	b.WriteString(styles.ActiveStyle.Render(m.bar.Name))
	for i, it := range m.bar.Items {
		if i >= 9 {
			break
		}
		if it == nil {
			b.WriteString(styles.HotbarEmptySlotStyle.Render(fmt.Sprintf("%d ·", i+1)))
			continue
		}
		b.WriteString(zone.Mark(slotZone(i), styles.HotbarSlotStyle.Render(fmt.Sprintf("%d %s", i+1, styles.Truncate(it.Name, 12)))))
	}
	return styles.Truncate(b.String(), m.width)
}

func (m Model) renderSidebar() string {
	lines := make([]string, len(m.sidebar))
	for i, c := range m.sidebar {
		label := c.Payload.Title
		if c.Payload.Icon != "" {
			label = c.Payload.Icon + " " + label
		}
		lines[i] = zone.Mark(sidebarZone(i), m.row(label, i == m.sidebarCursor && m.focus == focusSidebar, i == m.sidebarCursor))
	}
	return strings.Join(lines, "\n")
}

func (m Model) entityPaneTitle() string {
	if len(m.sidebar) == 0 {
		return "Entities"
	}
	return m.sidebar[m.sidebarCursor].Payload.Title
}

func (m Model) renderEntities(rows int) string {
	if len(m.entities) == 0 {
		return styles.MutedStyle.Render("No entities")
	}

	start := 0
	if rows > 0 && m.entityCursor >= rows {
		start = m.entityCursor - rows + 1
	}
	end := len(m.entities)
	if rows > 0 {
		end = min(start+rows, end)
	}

	activeUID := ""
	if a := m.deps.Entities.ActiveEntity(); a != nil {
		activeUID = a.UID()
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		e := m.entities[i]
		row := m.row(m.entityLabel(e, e.UID() == activeUID), i == m.entityCursor && m.focus == focusEntities, false)
		lines = append(lines, zone.Mark(entityZone(i), row))
	}
	return strings.Join(lines, "\n")
}

func (m Model) entityLabel(e *catalog.Entity, active bool) string {
	icon := "·"
	if c, ok := m.deps.Categories.GetCategoryForEntity(e.KindData()); ok && c.Metadata.Icon != "" {
		icon = c.Metadata.Icon
	}
	name := e.Metadata.Name
	if active {
		name = styles.ActiveStyle.Render("● " + name)
	}
	parts := []string{icon, name, styles.PhaseStyle(e.Status.Phase).Render(e.Status.Phase)}
	if labels := formatLabels(e.Metadata.Labels); labels != "" {
		parts = append(parts, styles.MutedStyle.Render(labels))
	}
	return strings.Join(parts, " ")
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, " ")
}

// row renders one list line with the selection indicator.
func (m Model) row(label string, selected, current bool) string {
	switch {
	case selected:
		return styles.SelectionIndicatorStyle.Render(">") + " " + styles.SelectedRowStyle.Render(label)
	case current:
		return "  " + styles.SelectedRowStyle.Render(label)
	default:
		return "  " + label
	}
}

func (m Model) renderFooter() string {
	var lines []string
	if m.showStatus {
		lines = append(lines, m.renderStatusBar())
	}
	lines = append(lines, m.help.View(keys.Catalog))
	return strings.Join(lines, "\n")
}

func (m Model) renderStatusBar() string {
	left := joinStatus(m.statusLeft)
	switch {
	case m.err != nil:
		left += "  " + styles.ErrorStyle.Render(m.err.Error())
	case m.notice != "":
		left += "  " + styles.NoticeStyle.Render(m.notice)
	}
	right := joinStatus(m.statusRight)

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return styles.StatusBarStyle.Render(styles.Truncate(left+strings.Repeat(" ", gap)+right, max(m.width-2, 1)))
}

func joinStatus(items []*registry.Contribution[contrib.StatusBarItem]) string {
	texts := make([]string, 0, len(items))
	for _, c := range items {
		if c.Payload.Text != "" {
			texts = append(texts, c.Payload.Text)
		}
	}
	return strings.Join(texts, " │ ")
}
