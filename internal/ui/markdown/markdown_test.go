package markdown

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"
)

func TestRender_StylesHeadingsAndLists(t *testing.T) {
	r := New(40)
	out := ansi.Strip(r.Render("# prod\n\n- **Phase:** connected\n- **Source:** file"))

	require.Contains(t, out, "prod")
	require.Contains(t, out, "Phase:")
	require.Contains(t, out, "connected")
	require.False(t, strings.HasSuffix(out, "\n"))
}

func TestRender_WrapsAtWidth(t *testing.T) {
	r := New(20)
	out := ansi.Strip(r.Render(strings.Repeat("word ", 20)))
	for _, line := range strings.Split(out, "\n") {
		require.LessOrEqual(t, ansi.StringWidth(strings.TrimRight(line, " ")), 20, "line %q", line)
	}
}

func TestRender_CachesUntilWidthChanges(t *testing.T) {
	r := New(30)
	first := r.Render("hello")
	require.Equal(t, first, r.Render("hello"))

	r.SetWidth(30)
	require.NotNil(t, r.term, "same width keeps the renderer")

	r.SetWidth(10)
	require.Equal(t, 10, r.Width())
	require.Nil(t, r.term)
	require.False(t, r.cached)
	require.Contains(t, ansi.Strip(r.Render("hello")), "hello")
}

func TestPlain(t *testing.T) {
	require.Equal(t, "a b c", Plain("a b c", 0))
	require.Equal(t, "alpha\nbeta", Plain("alpha beta", 5))
}
