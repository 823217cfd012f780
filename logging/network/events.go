package network

import (
	"context"

	"rift-and-ruin/server/logging"
)

const (
	// EventClientJoined is emitted when a websocket client completes the join handshake.
	EventClientJoined logging.EventType = "network.client_joined"
	// EventClientLeft is emitted when a client disconnects or is evicted.
	EventClientLeft logging.EventType = "network.client_left"
	// EventHeartbeatTimeout is emitted when a client misses enough heartbeats to be dropped.
	EventHeartbeatTimeout logging.EventType = "network.heartbeat_timeout"
	// EventProtocolMismatch is emitted when a client announces an unsupported protocol version.
	EventProtocolMismatch logging.EventType = "network.protocol_mismatch"
)

// JoinPayload describes a completed handshake.
type JoinPayload struct {
	Protocol int    `json:"protocol"`
	Remote   string `json:"remote,omitempty"`
}

// ClientJoined publishes an info event for a successful join.
func ClientJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload JoinPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventClientJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// LeavePayload describes why a client went away.
type LeavePayload struct {
	Reason string `json:"reason"`
}

// ClientLeft publishes an info event when a client disconnects.
func ClientLeft(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload LeavePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventClientLeft,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// HeartbeatTimeoutPayload carries the silence observed before eviction.
type HeartbeatTimeoutPayload struct {
	SilenceMillis int64 `json:"silenceMillis"`
	LimitMillis   int64 `json:"limitMillis"`
}

// HeartbeatTimeout publishes a warning before a silent client is evicted.
func HeartbeatTimeout(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload HeartbeatTimeoutPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventHeartbeatTimeout,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// ProtocolMismatchPayload pairs the versions that failed to agree.
type ProtocolMismatchPayload struct {
	Client int `json:"client"`
	Server int `json:"server"`
}

// ProtocolMismatch publishes a warning when a handshake is rejected.
func ProtocolMismatch(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ProtocolMismatchPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventProtocolMismatch,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
