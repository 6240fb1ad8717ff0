package ui

import (
	"strings"
	"testing"
)

func TestTruncateLinesShortTextUnchanged(t *testing.T) {
	text := "one\ntwo\nthree"
	if got := TruncateLines(text, 15, 5); got != text {
		t.Errorf("short text was modified: %q", got)
	}
}

func TestTruncateLinesKeepsEnds(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, "line")
	}
	lines[0] = "first"
	lines[39] = "last"

	got := TruncateLines(strings.Join(lines, "\n"), 15, 5)
	if !strings.Contains(got, "first") || !strings.Contains(got, "last") {
		t.Errorf("truncation lost the ends:\n%s", got)
	}
	if !strings.Contains(got, "30 lines hidden") {
		t.Errorf("missing hidden-line marker:\n%s", got)
	}
}

func TestTruncateLinesTinyBudget(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	got := TruncateLines("a\nb\nc\nd\ne\nf", 2, 5)
	if !strings.HasPrefix(got, "a\nb\n") {
		t.Errorf("tiny budget should keep the head: %q", got)
	}
}
