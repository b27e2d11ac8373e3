// Package debug is the process-wide logging sink. It is deliberately tiny:
// a mutex-guarded writer toggled by the config's Logging flag, plus a
// handful of leveled helpers used by the tracker, statistics and pipeline
// packages to report per-resource and per-phase events.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	enabled bool
)

// SetEnabled toggles logging on or off. Config.Logging drives this at
// startup; tests can flip it to silence output.
func SetEnabled(v bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = v
}

// SetOutput redirects log output. Passing nil disables output regardless
// of SetEnabled.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func writer() (io.Writer, bool) {
	mu.Lock()
	defer mu.Unlock()
	return out, enabled && out != nil
}

func stamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// Log writes a leveled, component-tagged line: "ts [component] message".
func Log(component, format string, args ...interface{}) {
	w, on := writer()
	if !on {
		return
	}
	fmt.Fprintf(w, "%s [%s] %s\n", stamp(), component, fmt.Sprintf(format, args...))
}

// Error logs a failure with its component and underlying error.
func Error(component string, err error) {
	w, on := writer()
	if !on {
		return
	}
	fmt.Fprintf(w, "%s [%s] error: %v\n", stamp(), component, err)
}

// Printf is the unstructured fallback used where no component name fits.
func Printf(format string, args ...interface{}) {
	w, on := writer()
	if !on {
		return
	}
	fmt.Fprintf(w, "%s %s\n", stamp(), fmt.Sprintf(format, args...))
}
