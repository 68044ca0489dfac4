package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/registrar/internal/catalog"
)

func TestRenderPane_Dimensions(t *testing.T) {
	out := ansi.Strip(RenderPane("one\ntwo\nthree\nfour", "Entities", 20, 4, true))
	lines := strings.Split(out, "\n")

	require.Len(t, lines, 4, "height includes both borders")
	for _, l := range lines {
		require.Equal(t, 20, ansi.StringWidth(l))
	}
	require.True(t, strings.HasPrefix(lines[0], "╭─ Entities ─"))
	require.Equal(t, "│one               │", lines[1])
	require.Equal(t, "│two               │", lines[2])
	require.True(t, strings.HasPrefix(lines[3], "╰"))
}

func TestRenderPane_TruncatesTitleAndContent(t *testing.T) {
	out := ansi.Strip(RenderPane(strings.Repeat("x", 50), "A very long pane title", 12, 3, false))
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	for _, l := range lines {
		require.Equal(t, 12, ansi.StringWidth(l))
	}
	require.Contains(t, lines[0], "…")
}

func TestRenderPane_NoTitle(t *testing.T) {
	out := ansi.Strip(RenderPane("", "", 5, 3, false))
	require.Equal(t, "╭───╮\n│   │\n╰───╯", out)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "kube…", Truncate("kubernetes", 5))
	require.Equal(t, "", Truncate("x", 0))
}

func TestPhaseStyle_Distinct(t *testing.T) {
	connected := PhaseStyle(catalog.PhaseConnected).Render("x")
	available := PhaseStyle(catalog.PhaseAvailable).Render("x")
	require.Equal(t, "x", ansi.Strip(connected))
	require.Equal(t, "x", ansi.Strip(available))
}
