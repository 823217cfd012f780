package sim

import (
	"context"
	"fmt"
	"math"

	"rift-and-ruin/server/internal/collision"
	"rift-and-ruin/server/logging"
	"rift-and-ruin/server/logging/movement"
)

const (
	projectileImpactMetricKey  = "sim_projectile_impacts_total"
	projectileEscapedMetricKey = "sim_projectile_escapes_total"
	projectileExpiredMetricKey = "sim_projectile_expired_total"
)

// launchPendingFires spawns one projectile per staged fire command, in the
// order the commands arrived. Fires launch after actors have moved, so the
// muzzle position is the owner's post-resolve position for this tick.
func (e *Engine) launchPendingFires() {
	if len(e.pendingFires) == 0 {
		return
	}
	for _, cmd := range e.pendingFires {
		idx, ok := e.actorIndex[cmd.ActorID]
		if !ok {
			// Owner left before the launch resolved.
			continue
		}
		owner := e.actors[idx]
		dirX, dirY := cmd.Fire.DirX, cmd.Fire.DirY
		norm := math.Hypot(dirX, dirY)
		if norm == 0 {
			dirX, dirY = facingVector(owner.Facing)
		} else {
			dirX /= norm
			dirY /= norm
		}
		e.spawnProjectile(owner, dirX, dirY)
	}
	e.pendingFires = e.pendingFires[:0]
}

func (e *Engine) spawnProjectile(owner *actorState, dirX, dirY float64) {
	e.projectileSeq++
	state := &projectileState{
		Projectile: Projectile{
			ID:      fmt.Sprintf("proj-%d", e.projectileSeq),
			OwnerID: owner.ID,
			X:       owner.X,
			Y:       owner.Y,
			VX:      dirX * e.cfg.ProjectileSpeed,
			VY:      dirY * e.cfg.ProjectileSpeed,
			Radius:  e.cfg.ProjectileRadius,
		},
		maxRange: e.cfg.ProjectileRange,
	}
	e.projectiles = append(e.projectiles, state)
}

// stepProjectiles advances every projectile along its velocity. A
// projectile whose swept segment crosses an obstacle stops where the
// segment began; one that flies out of bounds or past its range cap is
// retired where it ended.
func (e *Engine) stepProjectiles(dt float64) {
	if len(e.projectiles) == 0 {
		return
	}
	alive := e.projectiles[:0]
	for _, state := range e.projectiles {
		stepX := state.VX * dt
		stepY := state.VY * dt
		dist := math.Hypot(stepX, stepY)
		if remaining := state.maxRange - state.traveled; dist > remaining {
			scale := remaining / dist
			stepX *= scale
			stepY *= scale
			dist = remaining
		}
		from := collision.Point{X: state.X, Y: state.Y}
		to := collision.Point{X: state.X + stepX, Y: state.Y + stepY}
		if collision.LineHitsAny(from, to, e.rects, e.boxes) {
			e.finishProjectile(state, true, false)
			continue
		}
		state.X = to.X
		state.Y = to.Y
		state.traveled += dist
		if !collision.InsideBounds(collision.Circle{X: state.X, Y: state.Y, Radius: state.Radius}, e.boundary) {
			e.finishProjectile(state, false, true)
			continue
		}
		if state.traveled >= state.maxRange {
			e.finishProjectile(state, false, false)
			continue
		}
		alive = append(alive, state)
	}
	for i := len(alive); i < len(e.projectiles); i++ {
		e.projectiles[i] = nil
	}
	e.projectiles = alive
}

func (e *Engine) finishProjectile(state *projectileState, hitObstacle, leftBounds bool) {
	switch {
	case hitObstacle:
		e.deps.Metrics.Add(projectileImpactMetricKey, 1)
	case leftBounds:
		e.deps.Metrics.Add(projectileEscapedMetricKey, 1)
	default:
		e.deps.Metrics.Add(projectileExpiredMetricKey, 1)
	}
	movement.ProjectileStopped(
		context.Background(),
		e.deps.Publisher,
		e.tick,
		logging.EntityRef{ID: state.ID, Kind: logging.EntityKindProjectile},
		movement.ProjectileStoppedPayload{
			X:           state.X,
			Y:           state.Y,
			HitObstacle: hitObstacle,
			LeftBounds:  leftBounds,
		},
		map[string]any{"owner": state.OwnerID},
	)
}
