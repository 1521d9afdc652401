package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestTextFormatterFieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithLevel(DebugLevel), WithFormatter(&TextFormatter{}), WithOutput(NewWriterOutput(&buf)))
	logger.Info("claim granted", Str("queue", "q1"), Int("position", 0))
	line := buf.String()
	if !strings.Contains(line, "INFO claim granted") {
		t.Fatalf("unexpected line: %q", line)
	}
	if strings.Index(line, "position=0") > strings.Index(line, "queue=q1") {
		t.Fatalf("fields not sorted: %q", line)
	}
}

func TestLevelGate(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithLevel(WarnLevel), WithOutput(NewWriterOutput(&buf)))
	logger.Info("dropped")
	logger.Warn("kept")
	if strings.Contains(buf.String(), "dropped") {
		t.Fatalf("info should be gated at warn level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn should pass")
	}
}

func TestChildSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithLevel(InfoLevel), WithOutput(NewWriterOutput(&buf)))
	child := logger.With(Component("flow"))
	logger.SetLevel(ErrorLevel)
	child.Info("gated")
	if strings.Contains(buf.String(), "gated") {
		t.Fatalf("child should observe parent level change")
	}
	child.Error("boom")
	if !strings.Contains(buf.String(), "component=flow") {
		t.Fatalf("child fields missing: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel("warn"); err != nil || lvl != WarnLevel {
		t.Fatalf("warn: %v %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
