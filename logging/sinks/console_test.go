package sinks

import (
	"strings"
	"testing"

	"rift-and-ruin/server/logging"
)

func TestConsoleSinkLineFields(t *testing.T) {
	var buf strings.Builder
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{})

	err := sink.Write(logging.Event{
		Type:     "movement.blocked",
		Tick:     7,
		Severity: logging.SeverityDebug,
		Actor:    logging.EntityRef{ID: "raider-1", Kind: logging.EntityKindAgent},
		Extra:    map[string]any{"owner": "raider-1", "attempt": 2},
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	line := buf.String()
	for _, want := range []string{
		"[movement.blocked]",
		"tick=7",
		"actor=agent:raider-1",
		"severity=debug",
		"attempt=2 owner=raider-1",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected line to contain %q, got %q", want, line)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected no color codes without UseColor, got %q", line)
	}
}

func TestConsoleSinkColorsSeverity(t *testing.T) {
	var buf strings.Builder
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{UseColor: true})

	sink.Write(logging.Event{Type: "network.error", Severity: logging.SeverityError})
	if !strings.Contains(buf.String(), colorRed+"error"+colorReset) {
		t.Fatalf("expected colored error severity, got %q", buf.String())
	}

	buf.Reset()
	sink.Write(logging.Event{Type: "simulation.tick", Severity: logging.SeverityInfo})
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected info to stay uncolored, got %q", buf.String())
	}
}
