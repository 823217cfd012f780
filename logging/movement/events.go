package movement

import (
	"context"

	"rift-and-ruin/server/internal/collision"
	"rift-and-ruin/server/logging"
)

const (
	// EventBlocked is emitted when an agent's move was corrected by at least
	// one obstacle or the arena boundary.
	EventBlocked logging.EventType = "movement.blocked"
	// EventProjectileStopped is emitted when a projectile's flight segment
	// crossed an obstacle or left the arena.
	EventProjectileStopped logging.EventType = "movement.projectile_stopped"
)

// BlockedPayload carries the resolved position and the corrections applied
// while reaching it.
type BlockedPayload struct {
	X    float64               `json:"x"`
	Y    float64               `json:"y"`
	Hits []collision.HitRecord `json:"hits"`
}

// Blocked publishes a debug event describing a corrected move.
func Blocked(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BlockedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventBlocked,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryMovement,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// ProjectileStoppedPayload records where a projectile ended and why.
type ProjectileStoppedPayload struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	HitObstacle bool    `json:"hitObstacle"`
	LeftBounds  bool    `json:"leftBounds"`
}

// ProjectileStopped publishes a debug event for a finished projectile.
func ProjectileStopped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ProjectileStoppedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventProjectileStopped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryMovement,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
