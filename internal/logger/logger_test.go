package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "tickstream-test", nil)

	log.Info(context.Background(), "worker opened", "connection_id", 1, "symbols", 42)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log line, got error: %v (line: %s)", err, buf.String())
	}
	if entry["message"] != "worker opened" {
		t.Errorf("want message %q, got %v", "worker opened", entry["message"])
	}
	if entry["service"] != "tickstream-test" {
		t.Errorf("want service tag, got %v", entry["service"])
	}
	if entry["connection_id"] != float64(1) {
		t.Errorf("want connection_id 1, got %v", entry["connection_id"])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "tickstream-test", nil)

	log.Debug(context.Background(), "should not appear")
	log.Info(context.Background(), "also should not appear")
	if buf.Len() != 0 {
		t.Fatalf("want no output below configured level, got %q", buf.String())
	}

	log.Warn(context.Background(), "should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("want warn message in output, got %q", buf.String())
	}
}

func TestLoggerIncludesTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "tickstream-test", nil)
	ctx := WithTraceID(context.Background(), "trace-123")

	log.Info(ctx, "traced event")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}
	if entry["trace_id"] != "trace-123" {
		t.Errorf("want trace_id trace-123, got %v", entry["trace_id"])
	}
}

func TestWithAttachesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "tickstream-test", nil)
	derived := log.With("credential_id", "primary")

	derived.Info(context.Background(), "scoped event")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}
	if entry["credential_id"] != "primary" {
		t.Errorf("want credential_id primary, got %v", entry["credential_id"])
	}
}
