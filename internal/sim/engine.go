package sim

import (
	"context"
	"errors"
	"math"
	"time"

	"rift-and-ruin/server/internal/collision"
	"rift-and-ruin/server/internal/telemetry"
	"rift-and-ruin/server/internal/world"
	"rift-and-ruin/server/logging"
	"rift-and-ruin/server/logging/movement"
)

const (
	// DefaultMoveSpeed is the actor speed in world units per second.
	DefaultMoveSpeed = 160.0
	// DefaultProjectileSpeed is the projectile speed in world units per second.
	DefaultProjectileSpeed = 420.0
	// DefaultProjectileRange caps how far a projectile may travel.
	DefaultProjectileRange = 900.0
	// DefaultProjectileRadius is the collision radius used for bounds checks.
	DefaultProjectileRadius = 4.0
)

const (
	correctionsMetricKey     = "sim_move_corrections_total"
	unknownActorMetricKey    = "sim_commands_unknown_actor_total"
	actorCountMetricKey      = "sim_actors"
	projectileCountMetricKey = "sim_projectiles"
)

// ErrMissingWorld indicates NewEngine was invoked without a world instance.
var ErrMissingWorld = errors.New("sim: world is nil")

// Config tunes the engine's integration constants. Zero or negative values
// fall back to the package defaults.
type Config struct {
	MoveSpeed        float64
	ProjectileSpeed  float64
	ProjectileRange  float64
	ProjectileRadius float64
}

func (cfg Config) normalized() Config {
	if cfg.MoveSpeed <= 0 {
		cfg.MoveSpeed = DefaultMoveSpeed
	}
	if cfg.ProjectileSpeed <= 0 {
		cfg.ProjectileSpeed = DefaultProjectileSpeed
	}
	if cfg.ProjectileRange <= 0 {
		cfg.ProjectileRange = DefaultProjectileRange
	}
	if cfg.ProjectileRadius <= 0 {
		cfg.ProjectileRadius = DefaultProjectileRadius
	}
	return cfg
}

// Engine advances the authoritative state one fixed tick at a time. Actors
// live in a slice ordered by join, and every per-tick pass walks that slice
// front to back, so two engines fed the same commands stay bit-identical.
// The engine is not safe for concurrent use; the loop serializes access.
type Engine struct {
	cfg   Config
	deps  Deps
	world *world.World

	rects    []collision.Rect
	boxes    []collision.OrientedBox
	boundary float64

	tick          uint64
	actors        []*actorState
	actorIndex    map[string]int
	projectiles   []*projectileState
	pendingFires  []Command
	projectileSeq uint64
}

// NewEngine constructs an engine bound to the provided world layout. The
// obstacle set is captured once; regenerating the world requires a new
// engine.
func NewEngine(w *world.World, cfg Config, deps Deps) (*Engine, error) {
	if w == nil {
		return nil, ErrMissingWorld
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics()
	}
	if deps.Clock == nil {
		deps.Clock = logging.ClockFunc(time.Now)
	}
	if deps.RNG == nil {
		deps.RNG = w.SubsystemRNG("spawn")
	}
	return &Engine{
		cfg:        cfg.normalized(),
		deps:       deps,
		world:      w,
		rects:      w.Rects(),
		boxes:      w.Boxes(),
		boundary:   w.Boundary(),
		actorIndex: make(map[string]int),
	}, nil
}

// Deps exposes the resolved dependency set, including the defaults applied
// at construction.
func (e *Engine) Deps() Deps {
	if e == nil {
		return Deps{}
	}
	return e.deps
}

// Config returns the normalized tuning captured at construction time.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.cfg
}

// Tick reports the number of completed steps.
func (e *Engine) Tick() uint64 {
	if e == nil {
		return 0
	}
	return e.tick
}

// World returns the layout the engine was built against.
func (e *Engine) World() *world.World {
	if e == nil {
		return nil
	}
	return e.world
}

// Join adds an actor at a clear spawn position and returns its state.
// Joining an existing ID returns the current state unchanged.
func (e *Engine) Join(id string) Actor {
	if idx, ok := e.actorIndex[id]; ok {
		return e.actors[idx].Actor
	}
	x, y := e.world.FindSpawnPosition(e.deps.RNG, world.ActorRadius)
	state := &actorState{Actor: Actor{
		ID:     id,
		X:      x,
		Y:      y,
		Radius: world.ActorRadius,
		Facing: DefaultFacing,
	}}
	e.actorIndex[id] = len(e.actors)
	e.actors = append(e.actors, state)
	e.deps.Metrics.Store(actorCountMetricKey, uint64(len(e.actors)))
	return state.Actor
}

// Leave removes an actor. Later actors keep their relative order, so peers
// that apply the same removals keep identical state hashes.
func (e *Engine) Leave(id string) bool {
	idx, ok := e.actorIndex[id]
	if !ok {
		return false
	}
	e.actors = append(e.actors[:idx], e.actors[idx+1:]...)
	delete(e.actorIndex, id)
	for i := idx; i < len(e.actors); i++ {
		e.actorIndex[e.actors[i].ID] = i
	}
	e.deps.Metrics.Store(actorCountMetricKey, uint64(len(e.actors)))
	return true
}

// Actor returns the current state for the given ID.
func (e *Engine) Actor(id string) (Actor, bool) {
	if e == nil {
		return Actor{}, false
	}
	idx, ok := e.actorIndex[id]
	if !ok {
		return Actor{}, false
	}
	return e.actors[idx].Actor, true
}

// Apply stages command effects in submission order. Move commands replace
// the actor's standing intent; fire commands queue until the next Step.
func (e *Engine) Apply(commands []Command) {
	for _, cmd := range commands {
		if cmd.ActorID == "" {
			continue
		}
		switch cmd.Type {
		case CommandJoin:
			e.Join(cmd.ActorID)
			continue
		case CommandLeave:
			e.Leave(cmd.ActorID)
			continue
		}
		idx, ok := e.actorIndex[cmd.ActorID]
		if !ok {
			e.deps.Metrics.Add(unknownActorMetricKey, 1)
			continue
		}
		state := e.actors[idx]
		switch cmd.Type {
		case CommandMove:
			if cmd.Move == nil {
				continue
			}
			state.intentX = cmd.Move.DX
			state.intentY = cmd.Move.DY
			if cmd.Move.Facing != "" {
				state.Facing = cmd.Move.Facing
			} else {
				state.Facing = FacingFromVector(cmd.Move.DX, cmd.Move.DY, state.Facing)
			}
		case CommandFire:
			if cmd.Fire == nil {
				continue
			}
			e.pendingFires = append(e.pendingFires, cmd.Clone())
		}
	}
}

// Step advances the world by dt seconds: actors move first in join order,
// then queued fires launch, then projectiles fly. That ordering is part of
// the determinism contract with replaying peers.
func (e *Engine) Step(dt float64) {
	if dt < 0 {
		dt = 0
	}
	e.tick++
	e.stepActors(dt)
	e.launchPendingFires()
	e.stepProjectiles(dt)
	e.deps.Metrics.Store(projectileCountMetricKey, uint64(len(e.projectiles)))
}

// Snapshot copies the externally visible state. The copy shares nothing
// with the live engine, so callers may retain it across ticks.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{Tick: e.tick}
	if len(e.actors) > 0 {
		snap.Actors = make([]Actor, len(e.actors))
		for i, state := range e.actors {
			snap.Actors[i] = state.Actor
		}
	}
	if len(e.projectiles) > 0 {
		snap.Projectiles = make([]Projectile, len(e.projectiles))
		for i, state := range e.projectiles {
			snap.Projectiles[i] = state.Projectile
		}
	}
	return snap
}

// stepActors resolves every actor against the obstacle set, even at zero
// intent, so an actor overlapping a ruin keeps getting expelled while it
// stands still.
func (e *Engine) stepActors(dt float64) {
	for _, state := range e.actors {
		dx, dy := normalizeIntent(state.intentX, state.intentY)
		circle := collision.Circle{X: state.X, Y: state.Y, Radius: state.Radius}
		pos, hits := collision.ResolveCircleMoveWithHits(
			circle,
			dx*e.cfg.MoveSpeed*dt,
			dy*e.cfg.MoveSpeed*dt,
			e.rects,
			e.boxes,
			e.boundary,
		)
		state.X = pos.X
		state.Y = pos.Y
		if len(hits) > 0 {
			e.recordCorrections(state.Actor, hits)
		}
	}
}

func (e *Engine) recordCorrections(actor Actor, hits []collision.HitRecord) {
	e.deps.Metrics.Add(correctionsMetricKey, uint64(len(hits)))
	for _, hit := range hits {
		e.deps.Metrics.Add(correctionMetricKey(hit.Kind), 1)
	}
	movement.Blocked(
		context.Background(),
		e.deps.Publisher,
		e.tick,
		logging.EntityRef{ID: actor.ID, Kind: logging.EntityKindAgent},
		movement.BlockedPayload{X: actor.X, Y: actor.Y, Hits: hits},
		nil,
	)
}

func correctionMetricKey(kind collision.HitKind) string {
	return "sim_move_corrections_" + string(kind) + "_total"
}

// normalizeIntent rescales over-unit intent vectors. Shorter vectors pass
// through untouched for analog input.
func normalizeIntent(dx, dy float64) (float64, float64) {
	norm := math.Hypot(dx, dy)
	if norm <= 1 {
		return dx, dy
	}
	return dx / norm, dy / norm
}
