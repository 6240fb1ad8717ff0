package ui

import (
	glamour "charm.land/glamour/v2"
	"charm.land/glamour/v2/styles"
	"github.com/muesli/termenv"
)

// RenderMarkdown renders markdown for the terminal, word-wrapped to the
// terminal width (capped at 100 columns for readability). Falls back to
// the raw text when styling is off or rendering fails.
func RenderMarkdown(markdown string) string {
	if IsAgentMode() || !ShouldUseColor() {
		return markdown
	}

	const maxReadableWidth = 100
	wrapWidth := TerminalWidth(80)
	if wrapWidth > maxReadableWidth {
		wrapWidth = maxReadableWidth
	}

	// glamour v2 removed WithAutoStyle; select dark/light from the terminal
	// background the same way v1's auto style did.
	style := styles.DarkStyle
	if !termenv.HasDarkBackground() {
		style = styles.LightStyle
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}
