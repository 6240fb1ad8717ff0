package ui

import (
	"strconv"
	"strings"
)

// DefaultMaxLines bounds long body display in the show command.
const DefaultMaxLines = 15

// TruncateLines truncates text to maxLines, keeping contextLines from the
// start and end with a hidden-line marker between. Short text passes
// through unchanged.
func TruncateLines(text string, maxLines, contextLines int) string {
	if text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	total := len(lines)
	if total <= maxLines {
		return text
	}
	if contextLines < 1 || maxLines < contextLines*2+1 {
		return strings.Join(lines[:maxLines], "\n") + "\n" + RenderMuted("...")
	}

	hidden := total - contextLines*2
	var b strings.Builder
	b.WriteString(strings.Join(lines[:contextLines], "\n"))
	b.WriteString("\n")
	b.WriteString(RenderMuted(strings.Repeat("─", 40)))
	b.WriteString("\n")
	b.WriteString(RenderMuted(strconv.Itoa(hidden) + " lines hidden"))
	b.WriteString("\n")
	b.WriteString(RenderMuted(strings.Repeat("─", 40)))
	b.WriteString("\n")
	b.WriteString(strings.Join(lines[total-contextLines:], "\n"))
	return b.String()
}
