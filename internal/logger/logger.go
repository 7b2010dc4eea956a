// Package logger writes docrag's diagnostic output to stderr.
//
// Debug, info and warning lines appear only with --verbose so normal runs
// print nothing but results. Errors are always written.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Level tags a line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTags = [...]string{"[DEBUG] ", "[INFO] ", "[WARN] ", "[ERROR] "}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelTags[l][1 : len(levelTags[l])-2]
}

var (
	verbose atomic.Bool

	// mu guards out and keeps lines from concurrent pipelines whole.
	mu  sync.Mutex
	out io.Writer = os.Stderr
)

// SetVerbose switches debug, info and warning output on or off.
func SetVerbose(v bool) { verbose.Store(v) }

func IsVerbose() bool { return verbose.Load() }

// SetOutput redirects all output, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// Enabled reports whether a line at l would be written.
func Enabled(l Level) bool {
	return l >= LevelError || verbose.Load()
}

func logf(l Level, format string, args ...any) {
	if !Enabled(l) {
		return
	}
	line := levelTags[l] + fmt.Sprintf(format, args...) + "\n"
	mu.Lock()
	defer mu.Unlock()
	_, _ = io.WriteString(out, line)
}

func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }

func Info(format string, args ...any) { logf(LevelInfo, format, args...) }

func Warn(format string, args ...any) { logf(LevelWarn, format, args...) }

// Error is for conditions an operator must act on.
func Error(format string, args ...any) { logf(LevelError, format, args...) }

// Section starts a visually separated block in verbose output.
func Section(name string) {
	if !verbose.Load() {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	_, _ = fmt.Fprintf(out, "\n=== %s ===\n", name)
}

// Timer starts timing a step. The returned func logs the elapsed time at
// debug level.
func Timer(step string) func() {
	start := time.Now()
	return func() {
		Debug("%s took %s", step, time.Since(start).Round(time.Millisecond))
	}
}

// Scope prefixes lines with a component name.
type Scope string

func For(component string) Scope { return Scope(component) }

func (s Scope) Debug(format string, args ...any) { s.logf(LevelDebug, format, args...) }

func (s Scope) Info(format string, args ...any) { s.logf(LevelInfo, format, args...) }

func (s Scope) Warn(format string, args ...any) { s.logf(LevelWarn, format, args...) }

func (s Scope) Error(format string, args ...any) { s.logf(LevelError, format, args...) }

func (s Scope) logf(l Level, format string, args ...any) {
	logf(l, string(s)+": "+format, args...)
}
