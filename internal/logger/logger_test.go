package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "test", nil)

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=value") {
		t.Errorf("warn record missing, got %q", out)
	}
	if !strings.Contains(out, "service=test") {
		t.Errorf("service attribute missing, got %q", out)
	}
}

func TestLogger_TraceIDAndHooks(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, LevelDebug, "svc", func(context.Context) string { return "abc123" })

	var got []Record
	log.AddEventHook(func(_ context.Context, r Record) {
		got = append(got, r)
	})

	log.Debug(context.Background(), "estimating", "attempt", 2)

	if !strings.Contains(buf.String(), `"trace_id":"abc123"`) {
		t.Errorf("trace id missing: %s", buf.String())
	}
	if len(got) != 1 {
		t.Fatalf("hook called %d times, want 1", len(got))
	}
	if got[0].Message != "estimating" || got[0].Level != LevelDebug {
		t.Errorf("unexpected record %+v", got[0])
	}
	if got[0].Attrs["attempt"] != int64(2) {
		t.Errorf("attempt attr = %v", got[0].Attrs["attempt"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := ParseLevel(in); got != want {
				t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
			}
		})
	}
}
