package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogRendersKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug, "[test] ")
	l.Info("page admitted", "source", 7, "rows", 3)

	got := buf.String()
	if !strings.Contains(got, "page admitted source=7 rows=3") {
		t.Fatalf("log line = %q, want it to contain %q", got, "page admitted source=7 rows=3")
	}
	if !strings.Contains(got, "[INFO]") {
		t.Fatalf("log line = %q, want an [INFO] level tag", got)
	}
}

func TestLogToleratesDanglingKey(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug, "[test] ")
	l.Warn("odd fields", "source")

	got := buf.String()
	if !strings.Contains(got, "odd fields source=MISSING") {
		t.Fatalf("log line = %q, want a MISSING value for the dangling key", got)
	}
}

func TestLogSuppressesBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn, "[test] ")
	l.Debug("should not appear")
	l.Info("should not appear either")

	if buf.Len() != 0 {
		t.Fatalf("buf = %q, want nothing logged below Warn", buf.String())
	}
}
