package diag

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestPrintAndErrorLevels(t *testing.T) {
	var buf bytes.Buffer
	s := New(Options{Logger: zerolog.New(&buf)})
	s.Print(0, "hello")
	s.Error(42, "boom")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["level"] != "info" || lines[0]["message"] != "hello" || lines[0]["source"] != "kernel" {
		t.Fatalf("unexpected print line: %v", lines[0])
	}
	if _, ok := lines[0]["user_context"]; ok {
		t.Fatalf("zero user context should be omitted: %v", lines[0])
	}
	if lines[1]["level"] != "error" || lines[1]["message"] != "boom" {
		t.Fatalf("unexpected error line: %v", lines[1])
	}
	if lines[1]["user_context"] != float64(42) {
		t.Fatalf("expected user_context=42, got %v", lines[1]["user_context"])
	}
}

func TestLegacyErrorDelegatesToPrint(t *testing.T) {
	var buf bytes.Buffer
	s := New(Options{Logger: zerolog.New(&buf), Legacy: true})
	s.Error(0, "boom")
	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["level"] != "info" {
		t.Fatalf("legacy error should log at info, got %v", lines)
	}
}

func TestNilSinkIsSafe(t *testing.T) {
	var s *Sink
	s.Print(0, "x")
	s.Error(0, "y")
}
