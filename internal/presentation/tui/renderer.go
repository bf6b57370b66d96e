package tui

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Renderer formats engine output. Content is treated as markdown.
type Renderer struct {
	md  *glamour.TermRenderer
	out *termenv.Output
}

// NewRenderer builds a renderer for w. wrap is the markdown word-wrap width; 0 keeps glamour's default.
func NewRenderer(w io.Writer, wrap int) (*Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if wrap > 0 {
		opts = append(opts, glamour.WithWordWrap(wrap))
	}
	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &Renderer{md: md, out: termenv.NewOutput(w)}, nil
}

// Content renders markdown text. On failure the raw text is returned.
func (r *Renderer) Content(text string) string {
	s, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(s, "\n") + "\n"
}

// Prompt styles an input prompt.
func (r *Renderer) Prompt(text string) string {
	return r.out.String(text).Bold().Foreground(r.out.Color("#22d3ee")).String()
}

// Warning styles a warning line.
func (r *Renderer) Warning(text string) string {
	return r.out.String(text).Foreground(r.out.Color("#fbbf24")).String()
}

// Error styles an error line.
func (r *Renderer) Error(text string) string {
	return r.out.String(text).Bold().Foreground(r.out.Color("#f87171")).String()
}
