package ws

import (
	"context"
	"errors"
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	server "rift-and-ruin/server"
	"rift-and-ruin/server/internal/net/proto"
	"rift-and-ruin/server/internal/sim"
	"rift-and-ruin/server/internal/telemetry"
	"rift-and-ruin/server/logging"
	"rift-and-ruin/server/logging/network"
)

// HandlerConfig customizes the websocket session handler.
type HandlerConfig struct {
	Logger telemetry.Logger
}

// Handler upgrades websocket connections and runs the per-session read
// loop against the hub.
type Handler struct {
	hub      *server.Hub
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket session handler for the given hub.
func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   logger,
		upgrader: upgrader,
	}
}

// Handle upgrades the request and serves the session until the peer goes
// away. Credentials issued by the join endpoint ride in the query string.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	actorID := r.URL.Query().Get("id")
	if actorID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}
	session := r.URL.Query().Get("session")
	if session == "" {
		nethttp.Error(w, "missing session", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", actorID, err)
		return
	}

	h.Serve(actorID, session, conn)
}

// Serve orchestrates a websocket session for an authenticated connection.
func (h *Handler) Serve(actorID, session string, conn *websocket.Conn) {
	if h == nil || h.hub == nil || conn == nil {
		return
	}

	sub, initial, ok := h.hub.Subscribe(actorID, session, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid session")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	if len(initial) > 0 {
		if err := sub.WriteMessage(websocket.TextMessage, initial); err != nil {
			h.hub.Disconnect(actorID, "write_failed")
			return
		}
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(actorID, "connection_closed")
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			if errors.Is(err, proto.ErrVersionMismatch) {
				h.logger.Printf("closing %s: %v", actorID, err)
				network.ProtocolMismatch(context.Background(), h.hub.Publisher(), h.hub.LastTick(),
					logging.EntityRef{ID: actorID, Kind: logging.EntityKindAgent},
					network.ProtocolMismatchPayload{Client: msg.Ver, Server: proto.Version}, nil)
				message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "protocol version mismatch")
				conn.WriteMessage(websocket.CloseMessage, message)
				h.hub.Disconnect(actorID, "protocol_mismatch")
				return
			}
			h.logger.Printf("discarding malformed message from %s: %v", actorID, err)
			continue
		}

		normalizedSeq := uint64(0)
		if msg.Seq != nil && *msg.Seq > 0 {
			normalizedSeq = *msg.Seq
		}

		send := func(data []byte, err error) bool {
			if err != nil {
				h.logger.Printf("failed to marshal response for %s: %v", actorID, err)
				return true
			}
			if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
				h.hub.Disconnect(actorID, "write_failed")
				return false
			}
			return true
		}

		sendDuplicateAck := func() bool {
			if normalizedSeq == 0 {
				return true
			}
			return send(proto.EncodeCommandAck(proto.CommandAck{Seq: normalizedSeq}))
		}

		sendCommandAck := func(cmd sim.Command) bool {
			if normalizedSeq == 0 {
				return true
			}
			if !send(proto.EncodeCommandAck(proto.CommandAck{Seq: normalizedSeq, Tick: cmd.OriginTick})) {
				return false
			}
			sub.StoreLastCommandSeq(normalizedSeq)
			return true
		}

		sendCommandReject := func(reason string) bool {
			if normalizedSeq == 0 {
				return true
			}
			retry := reason == sim.CommandRejectQueueLimit || reason == sim.CommandRejectQueueFull
			return send(proto.EncodeCommandReject(proto.CommandReject{
				Seq:    normalizedSeq,
				Reason: reason,
				Retry:  retry,
			}))
		}

		switch msg.Type {
		case proto.TypeInput:
			if normalizedSeq > 0 {
				if last := sub.LastCommandSeq(); last > 0 && normalizedSeq <= last {
					if !sendDuplicateAck() {
						return
					}
					continue
				}
			}
			cmd, ok, reason := h.hub.UpdateIntent(actorID, msg.DX, msg.DY, msg.Facing)
			if normalizedSeq > 0 {
				if ok {
					if !sendCommandAck(cmd) {
						return
					}
				} else if !sendCommandReject(reason) {
					return
				}
			}
			if !ok && reason == sim.CommandRejectUnknownActor {
				h.logger.Printf("input ignored for unknown actor %s", actorID)
			}
		case proto.TypeFire:
			if normalizedSeq > 0 {
				if last := sub.LastCommandSeq(); last > 0 && normalizedSeq <= last {
					if !sendDuplicateAck() {
						return
					}
					continue
				}
			}
			cmd, ok, reason := h.hub.HandleFire(actorID, msg.DX, msg.DY)
			if normalizedSeq > 0 {
				if ok {
					if !sendCommandAck(cmd) {
						return
					}
				} else if !sendCommandReject(reason) {
					return
				}
			}
			if !ok && reason == sim.CommandRejectUnknownActor {
				h.logger.Printf("fire ignored for unknown actor %s", actorID)
			}
		case proto.TypeHeartbeat:
			now := time.Now()
			rtt, ok := h.hub.UpdateHeartbeat(actorID, now, msg.SentAt)
			if !ok {
				continue
			}
			if !send(proto.EncodeHeartbeat(proto.Heartbeat{
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt.Milliseconds(),
			})) {
				return
			}
		case proto.TypeHashReport:
			if match, known := h.hub.ReportHash(actorID, msg.Tick, msg.Hash); known && !match {
				h.logger.Printf("state hash mismatch from %s at tick %d", actorID, msg.Tick)
			}
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, actorID)
		}
	}
}
