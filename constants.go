package server

import (
	"time"

	"rift-and-ruin/server/internal/sim"
)

const (
	writeWait         = 10 * time.Second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval
)

// TickRate reports the fixed simulation cadence in ticks per second.
func TickRate() int {
	return sim.DefaultTickRate
}

// HeartbeatInterval reports how often clients are expected to ping.
func HeartbeatInterval() time.Duration {
	return heartbeatInterval
}
