package sinks

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"rift-and-ruin/server/logging"
)

func TestJSONSinkWritesEventPerLine(t *testing.T) {
	var buf strings.Builder
	sink := NewJSON(&buf, 0)

	events := []logging.Event{
		{Type: "movement.blocked", Tick: 3, Time: time.Unix(100, 0).UTC(), Severity: logging.SeverityDebug},
		{Type: "network.client_connected", Tick: 4, Time: time.Unix(101, 0).UTC(), Severity: logging.SeverityInfo},
	}
	for _, event := range events {
		if err := sink.Write(event); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	for i, line := range lines {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
		if decoded["type"] != string(events[i].Type) {
			t.Fatalf("line %d: expected type %q, got %v", i, events[i].Type, decoded["type"])
		}
	}
}

func TestJSONSinkOmitsEmptyFields(t *testing.T) {
	var buf strings.Builder
	sink := NewJSON(&buf, 0)

	if err := sink.Write(logging.Event{Type: "system.started", Time: time.Unix(0, 0).UTC()}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	line := buf.String()
	for _, absent := range []string{"targets", "payload", "extra", "traceId", "commandId"} {
		if strings.Contains(line, absent) {
			t.Fatalf("expected %q to be omitted, got %q", absent, line)
		}
	}
}

func TestJSONSinkCloseFlushesBuffer(t *testing.T) {
	var buf strings.Builder
	sink := NewJSON(&buf, time.Hour)

	if err := sink.Write(logging.Event{Type: "system.started", Time: time.Unix(0, 0).UTC()}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected buffered write to stay pending, got %q", buf.String())
	}

	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !strings.Contains(buf.String(), "system.started") {
		t.Fatalf("expected close to flush the event, got %q", buf.String())
	}

	// A second close is a no-op flush rather than a panic.
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}
