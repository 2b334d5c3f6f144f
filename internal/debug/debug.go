// Package debug provides a process-wide, explicit-init logging sink used
// across the pipeline for warnings that must never abort a run (a parse
// failure, a swallowed .gitignore read error). It intentionally has no
// third-party dependency: nothing in the stack reaches for a logging
// library for this concern, so neither do we.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu     sync.Mutex
	output io.Writer = io.Discard
)

// SetOutput redirects the debug sink. Passing nil disables output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		output = io.Discard
		return
	}
	output = w
}

// Logf writes a timestamped diagnostic line. Safe for concurrent use.
func Logf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(output, "[%s] %s\n", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...))
}

// Warn logs a recoverable failure — a parser error substituted with an
// empty FileInfo, an ignored .gitignore read error, and similar.
func Warn(operation, path string, err error) {
	Logf("warn: %s %s: %v", operation, path, err)
}

// UseStderr is a convenience for CLI --verbose wiring.
func UseStderr() {
	SetOutput(os.Stderr)
}
