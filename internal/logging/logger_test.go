package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Warn("this one shows", "axis", "X")
	l.Error("and this one", "code", 42)

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("expected debug/info to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "this one shows axis=X") {
		t.Errorf("expected warn line with kv pairs, got: %s", out)
	}
	if !strings.Contains(out, "and this one code=42") {
		t.Errorf("expected error line with kv pairs, got: %s", out)
	}
}

func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Info("hello", "n", 1)

	if !strings.Contains(buf.String(), "hello n=1") {
		t.Errorf("expected default logger to be used, got: %s", buf.String())
	}
}

func TestFormatArgsOddPairs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	l.Info("odd args", "orphan")

	// a trailing key with no value is dropped rather than panicking
	if strings.Contains(buf.String(), "orphan") {
		t.Errorf("expected unmatched trailing key to be dropped, got: %s", buf.String())
	}
}
