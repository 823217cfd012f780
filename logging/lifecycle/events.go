package lifecycle

import (
	"context"

	"rift-and-ruin/server/logging"
)

const (
	// EventServerStarted is emitted once the listener is accepting connections.
	EventServerStarted logging.EventType = "lifecycle.server_started"
	// EventServerStopped is emitted after a clean shutdown.
	EventServerStopped logging.EventType = "lifecycle.server_stopped"
)

// StartedPayload records the bound address and world seed for the run.
type StartedPayload struct {
	Addr string `json:"addr"`
	Seed string `json:"seed"`
}

// ServerStarted publishes an info event when the server comes up.
func ServerStarted(ctx context.Context, pub logging.Publisher, payload StartedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventServerStarted,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// StoppedPayload records how long the server ran.
type StoppedPayload struct {
	UptimeMillis int64  `json:"uptimeMillis"`
	Reason       string `json:"reason,omitempty"`
}

// ServerStopped publishes an info event after shutdown completes.
func ServerStopped(ctx context.Context, pub logging.Publisher, payload StoppedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventServerStopped,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}
