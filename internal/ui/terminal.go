package ui

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsAgentMode reports whether output should stay plain for machine
// consumers (CI jobs, scripted agents). GH_STORE_AGENT_MODE=1 sets it.
func IsAgentMode() bool {
	return os.Getenv("GH_STORE_AGENT_MODE") != ""
}

// ShouldUseColor decides whether styled output is appropriate.
// Precedence: NO_COLOR always wins; CLICOLOR_FORCE forces color on;
// CLICOLOR=0 turns it off; otherwise color requires a TTY whose termenv
// profile supports it.
func ShouldUseColor() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" && os.Getenv("CLICOLOR_FORCE") != "0" {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if IsAgentMode() {
		return false
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

// TerminalWidth returns the stdout terminal width, or fallback when it
// cannot be detected.
func TerminalWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}
