// Package debug provides stderr diagnostics for gh-store.
//
// Debug output is off unless GH_STORE_DEBUG is set or a caller enables
// verbose mode. Warnings are always emitted: the engine's contract is to
// skip bad input (malformed comments, unauthorized authors, exhausted
// alias chains) with a visible warning rather than fail.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu          sync.Mutex
	enabled     = os.Getenv("GH_STORE_DEBUG") != ""
	verboseMode = false
	out         io.Writer = os.Stderr
)

// Enabled reports whether debug output is active.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled || verboseMode
}

// SetVerbose enables debug output regardless of environment.
func SetVerbose(verbose bool) {
	mu.Lock()
	defer mu.Unlock()
	verboseMode = verbose
}

// SetOutput redirects diagnostics; tests use this to capture warnings.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	out = w
}

// Logf writes a debug line when debug output is active.
func Logf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !(enabled || verboseMode) {
		return
	}
	fmt.Fprintf(out, "gh-store: "+format+"\n", args...)
}

// Warnf writes a warning line unconditionally.
func Warnf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "gh-store: warning: "+format+"\n", args...)
}
