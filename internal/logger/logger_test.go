package logger

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
)

// capture redirects output for the test and restores defaults afterwards.
func capture(t *testing.T, verbose bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verbose)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		log     func()
		want    string
	}{
		{"debug verbose", true, func() { Debug("chunk %d", 3) }, "[DEBUG] chunk 3\n"},
		{"debug quiet", false, func() { Debug("chunk %d", 3) }, ""},
		{"info verbose", true, func() { Info("indexed %s", "a.md") }, "[INFO] indexed a.md\n"},
		{"warn quiet", false, func() { Warn("slow") }, ""},
		{"warn verbose", true, func() { Warn("slow") }, "[WARN] slow\n"},
		{"error quiet", false, func() { Error("rollback failed for %s", "doc-1") }, "[ERROR] rollback failed for doc-1\n"},
		{"section verbose", true, func() { Section("Query") }, "\n=== Query ===\n"},
		{"section quiet", false, func() { Section("Query") }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, tt.verbose)
			tt.log()
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetVerbose(t *testing.T) {
	capture(t, true)
	if !IsVerbose() || !Enabled(LevelDebug) {
		t.Fatal("verbose should enable debug")
	}
	SetVerbose(false)
	if IsVerbose() || Enabled(LevelWarn) {
		t.Fatal("quiet mode should hide warnings")
	}
	if !Enabled(LevelError) {
		t.Fatal("errors are always enabled")
	}
}

func TestLevelString(t *testing.T) {
	for l, want := range map[Level]string{
		LevelDebug: "DEBUG",
		LevelError: "ERROR",
		Level(9):   "Level(9)",
	} {
		if got := l.String(); got != want {
			t.Errorf("%d: got %q, want %q", int(l), got, want)
		}
	}
}

func TestScope(t *testing.T) {
	buf := capture(t, true)

	log := For("ingest")
	log.Info("document %s committed", "abc")
	log.Debug("%d%% done", 50)

	want := "[INFO] ingest: document abc committed\n[DEBUG] ingest: 50% done\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTimer(t *testing.T) {
	buf := capture(t, true)

	Timer("embedding")()

	if !strings.HasPrefix(buf.String(), "[DEBUG] embedding took ") {
		t.Errorf("unexpected timer output: %q", buf.String())
	}
}

func TestConcurrentLinesStayWhole(t *testing.T) {
	buf := capture(t, true)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			For("worker").Debug("line %02d", i)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d lines", len(lines))
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "[DEBUG] worker: line ") || len(l) != len("[DEBUG] worker: line 00") {
			t.Errorf("torn line %q", l)
		}
	}
}
