package report

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderOptions controls terminal rendering of a report.
type RenderOptions struct {
	Width int
	Plain bool
}

// Render formats markdown for a terminal. On renderer failure the markdown is
// returned unchanged.
func Render(markdown string, opts RenderOptions) string {
	options := []glamour.TermRendererOption{}
	if opts.Plain {
		options = append(options, glamour.WithStandardStyle("notty"))
	} else {
		options = append(options, glamour.WithAutoStyle())
	}
	if opts.Width > 0 {
		options = append(options, glamour.WithWordWrap(opts.Width))
	}

	r, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSpace(out) + "\n"
}
