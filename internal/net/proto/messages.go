package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"rift-and-ruin/server/internal/sim"
	"rift-and-ruin/server/internal/world"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// Type identifiers for websocket payloads.
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeState         = "state"
)

// Client message type identifiers.
const (
	TypeInput      = "input"
	TypeFire       = "fire"
	TypeHeartbeat  = "heartbeat"
	TypeHashReport = "hash"
)

// TypeState is the outbound snapshot identifier, exported for clients and
// tests.
const TypeState = typeState

// ErrVersionMismatch marks messages sent by a client speaking a different
// protocol revision. Sessions use it to close the socket with a reason the
// client can surface instead of silently dropping input.
var ErrVersionMismatch = errors.New("unsupported client protocol version")

// ClientMessage captures an inbound websocket frame before translation into
// a simulation command.
type ClientMessage struct {
	Ver    int     `json:"ver,omitempty"`
	Type   string  `json:"type"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Facing string  `json:"facing"`
	SentAt int64   `json:"sentAt"`
	Tick   uint64  `json:"t,omitempty"`
	Hash   string  `json:"hash,omitempty"`
	Seq    *uint64 `json:"seq,omitempty"`
}

// DecodeClientMessage parses a raw websocket frame. A missing version is
// treated as current so hand-rolled test clients keep working.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("%w %d", ErrVersionMismatch, msg.Ver)
	}
	return msg, nil
}

// ClientCommand captures the structured simulation command carried by a
// websocket message. Origin metadata is populated by the intake layer when
// the command is accepted for processing.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeInput:
		return sim.Command{
			Type: sim.CommandMove,
			Move: &sim.MoveCommand{
				DX:     msg.DX,
				DY:     msg.DY,
				Facing: parseFacing(msg.Facing),
			},
		}, true
	case TypeFire:
		return sim.Command{
			Type: sim.CommandFire,
			Fire: &sim.FireCommand{
				DirX: msg.DX,
				DirY: msg.DY,
			},
		}, true
	default:
		return sim.Command{}, false
	}
}

// parseFacing maps the wire facing onto the simulation enum. Unknown values
// collapse to empty so the engine derives facing from the move vector.
func parseFacing(value string) sim.FacingDirection {
	switch facing := sim.FacingDirection(value); facing {
	case sim.FacingUp, sim.FacingDown, sim.FacingLeft, sim.FacingRight:
		return facing
	default:
		return ""
	}
}

// CommandAck describes a staged command acknowledgement.
type CommandAck struct {
	Seq  uint64
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement payload.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// CommandReject describes a refused command along with retry guidance.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
	Tick   uint64
}

// EncodeCommandReject renders a command rejection payload.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
		Tick   uint64 `json:"tick,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
	}
	if msg.Retry {
		frame.Retry = true
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// Heartbeat describes the server's reply to a client heartbeat.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// StateSnapshotV1 captures the version 1 per-tick broadcast layout. The
// state hash rides along so mirrored clients can verify their replica.
type StateSnapshotV1 struct {
	Ver         int              `json:"ver"`
	Type        string           `json:"type"`
	Tick        uint64           `json:"t"`
	ServerTime  int64            `json:"serverTime"`
	Actors      []sim.Actor      `json:"actors"`
	Projectiles []sim.Projectile `json:"projectiles,omitempty"`
	Hash        string           `json:"hash"`
}

// EncodeStateSnapshotV1 renders the version 1 snapshot payload. The version
// and type fields are stamped on a copy so callers can reuse the value.
func EncodeStateSnapshotV1(msg StateSnapshotV1) ([]byte, error) {
	msg.Ver = Version
	if msg.Type == "" {
		msg.Type = typeState
	}
	return json.Marshal(msg)
}

// JoinResponseV1 captures the version 1 join response layout. Arena geometry
// and movement tuning ride along so clients can mirror the simulation
// locally from tick zero.
type JoinResponseV1 struct {
	Ver             int          `json:"ver"`
	ID              string       `json:"id"`
	Session         string       `json:"session"`
	Config          world.Config `json:"config"`
	Walls           []world.Wall `json:"walls"`
	Ruins           []world.Ruin `json:"ruins,omitempty"`
	Boundary        float64      `json:"boundary"`
	TickRate        int          `json:"tickRate"`
	HeartbeatMillis int64        `json:"heartbeatMillis"`
	MoveSpeed       float64      `json:"moveSpeed"`
	ActorRadius     float64      `json:"actorRadius"`
}

// EncodeJoinResponseV1 renders the version 1 join response payload.
func EncodeJoinResponseV1(msg JoinResponseV1) ([]byte, error) {
	msg.Ver = Version
	return json.Marshal(msg)
}
