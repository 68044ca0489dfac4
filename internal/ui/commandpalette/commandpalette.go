// Package commandpalette provides a searchable picker modal used for the
// command palette and the entity action menu.
package commandpalette

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/registrar/internal/keys"
	"github.com/zjrosen/registrar/internal/ui/overlay"
	"github.com/zjrosen/registrar/internal/ui/styles"
)

// Item is one selectable row.
type Item struct {
	ID     string
	Title  string
	Detail string
}

// SearchFunc returns the items matching query, best first.
type SearchFunc func(query string) []Item

// Config defines command palette configuration.
type Config struct {
	Title       string
	Placeholder string
	Search      SearchFunc
	MaxVisible  int // default 8
	Width       int // default 60
}

// SelectMsg is sent when an item is chosen.
type SelectMsg struct {
	Item Item
}

// CancelMsg is sent when the palette is dismissed.
type CancelMsg struct{}

// Model holds the command palette state.
type Model struct {
	config    Config
	textInput textinput.Model
	items     []Item
	cursor    int
	offset    int
	width     int
	height    int
}

// New creates a palette showing Search("").
func New(cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = cfg.Placeholder
	if ti.Placeholder == "" {
		ti.Placeholder = "Search..."
	}
	ti.Prompt = ""
	ti.Focus()

	m := Model{config: cfg, textInput: ti}
	return m.refilter()
}

// StaticSearch filters a fixed list by case-insensitive substring of title or detail.
// Title matches rank first.
func StaticSearch(items []Item) SearchFunc {
	return func(query string) []Item {
		q := strings.ToLower(strings.TrimSpace(query))
		if q == "" {
			return items
		}
		var byTitle, byDetail []Item
		for _, it := range items {
			switch {
			case strings.Contains(strings.ToLower(it.Title), q):
				byTitle = append(byTitle, it)
			case strings.Contains(strings.ToLower(it.Detail), q):
				byDetail = append(byDetail, it)
			}
		}
		return append(byTitle, byDetail...)
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Palette.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
				m = m.scrollToCursor()
			}
			return m, nil
		case key.Matches(msg, keys.Palette.Up):
			if m.cursor > 0 {
				m.cursor--
				m = m.scrollToCursor()
			}
			return m, nil
		case key.Matches(msg, keys.Palette.Execute):
			item, ok := m.Selected()
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg { return SelectMsg{Item: item} }
		case key.Matches(msg, keys.Palette.Close), msg.Type == tea.KeyCtrlC:
			return m, func() tea.Msg { return CancelMsg{} }
		case msg.Type == tea.KeyCtrlU:
			m.textInput.SetValue("")
			return m.refilter(), nil
		default:
			var cmd tea.Cmd
			m.textInput, cmd = m.textInput.Update(msg)
			return m.refilter(), cmd
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	}
	return m, nil
}

// Refresh re-runs the search for the current query, keeping the cursor when possible.
func (m Model) Refresh() Model {
	return m.refilter()
}

func (m Model) refilter() Model {
	if m.config.Search != nil {
		m.items = m.config.Search(m.textInput.Value())
	}
	if m.cursor >= len(m.items) {
		m.cursor = 0
		m.offset = 0
	}
	return m.scrollToCursor()
}

func (m Model) maxVisible() int {
	n := m.config.MaxVisible
	if n <= 0 {
		n = 8
	}
	// title, search, dividers and border take six rows
	if m.height > 0 {
		n = min(n, max(m.height-6, 1))
	}
	return n
}

func (m Model) scrollToCursor() Model {
	visible := m.maxVisible()
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	return m
}

// Selected returns the item under the cursor.
func (m Model) Selected() (Item, bool) {
	if m.cursor >= 0 && m.cursor < len(m.items) {
		return m.items[m.cursor], true
	}
	return Item{}, false
}

// Items returns the items matching the current query.
func (m Model) Items() []Item {
	return m.items
}

// Cursor returns the cursor position within Items.
func (m Model) Cursor() int {
	return m.cursor
}

// Query returns the search text.
func (m Model) Query() string {
	return m.textInput.Value()
}

// SetSize sets the viewport dimensions used by Overlay.
func (m Model) SetSize(width, height int) Model {
	m.width, m.height = width, height
	return m.scrollToCursor()
}

// View renders the palette box.
func (m Model) View() string {
	width := m.config.Width
	if width <= 0 {
		width = 60
	}
	if m.width > 0 {
		width = min(width, max(m.width-4, 20))
	}

	divider := lipgloss.NewStyle().Foreground(styles.OverlayBorderColor).Render(strings.Repeat("─", width))

	var b strings.Builder
	if m.config.Title != "" {
		title := lipgloss.NewStyle().Bold(true).Foreground(styles.OverlayTitleColor).PaddingLeft(1).Render(m.config.Title)
		hints := styles.MutedStyle.Render("↑/↓ • enter • esc")
		pad := max(width-lipgloss.Width(title)-lipgloss.Width(hints)-1, 1)
		b.WriteString(title + strings.Repeat(" ", pad) + hints + "\n" + divider + "\n")
	}

	m.textInput.Width = width - 4
	b.WriteString(styles.MutedStyle.Render(" > ") + m.textInput.View() + "\n" + divider)

	if len(m.items) == 0 {
		b.WriteString("\n" + styles.MutedStyle.Italic(true).Render(" No matches"))
	}
	end := min(m.offset+m.maxVisible(), len(m.items))
	for i := m.offset; i < end; i++ {
		b.WriteString("\n" + m.renderItem(m.items[i], i == m.cursor, width))
	}
	if end < len(m.items) {
		b.WriteString("\n" + styles.MutedStyle.Render(" ↓ more"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.OverlayBorderColor).
		Width(width).
		Render(b.String())
}

func (m Model) renderItem(item Item, selected bool, width int) string {
	indicator := " "
	title := item.Title
	if selected {
		indicator = styles.SelectionIndicatorStyle.Render(">")
		title = styles.SelectedRowStyle.Render(title)
	}
	line := indicator + " " + title
	if item.Detail != "" {
		line += "  " + styles.DescriptionStyle.Render(item.Detail)
	}
	return styles.Truncate(line, width)
}

// Overlay renders the palette near the top of background.
func (m Model) Overlay(background string) string {
	return overlay.Place(overlay.Config{
		Width:    m.width,
		Height:   m.height,
		Position: overlay.Top,
		PadY:     2,
	}, m.View(), background)
}
