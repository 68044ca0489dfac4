// Package markdown renders markdown for terminal panes.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zjrosen/registrar/internal/log"
)

// noMarginStyle removes the document margins glamour adds by default so the
// output lines up with pane borders.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// Renderer renders markdown at a fixed wrap width. The glamour renderer is
// rebuilt when the width changes and the last result is cached, so calling
// Render from a View on every frame is cheap.
type Renderer struct {
	mu    sync.Mutex
	width int
	term  *glamour.TermRenderer

	lastIn  string
	lastOut string
	cached  bool
}

// New creates a renderer wrapping at width. Zero disables wrapping.
func New(width int) *Renderer {
	return &Renderer{width: max(width, 0)}
}

// Width returns the wrap width.
func (r *Renderer) Width() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width
}

// SetWidth changes the wrap width.
func (r *Renderer) SetWidth(width int) {
	width = max(width, 0)
	r.mu.Lock()
	defer r.mu.Unlock()
	if width == r.width {
		return
	}
	r.width = width
	r.term = nil
	r.cached = false
}

// Render returns md styled for the terminal, without trailing blank lines.
// When glamour fails the text is returned word-wrapped but unstyled.
func (r *Renderer) Render(md string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached && r.lastIn == md {
		return r.lastOut
	}

	out, err := r.render(md)
	if err != nil {
		log.Debug(log.CatUI, "Markdown rendering failed, using plain text", "error", err)
		out = Plain(md, r.width)
	}
	r.lastIn, r.lastOut, r.cached = md, out, true
	return out
}

func (r *Renderer) render(md string) (string, error) {
	if r.term == nil {
		term, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			return "", err
		}
		r.term = term
	}
	out, err := r.term.Render(md)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n "), nil
}

// Plain wraps md at width without styling. Zero width returns md unchanged.
func Plain(md string, width int) string {
	if width <= 0 {
		return md
	}
	return wordwrap.String(md, width)
}
