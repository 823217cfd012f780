package sim

// Actor is a circular agent steered by move commands.
type Actor struct {
	ID     string          `json:"id"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Radius float64         `json:"radius"`
	Facing FacingDirection `json:"facing"`
}

// Projectile is a point mass advanced along a fixed velocity until it hits
// an obstacle, leaves the arena, or exhausts its range.
type Projectile struct {
	ID      string  `json:"id"`
	OwnerID string  `json:"ownerId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	VX      float64 `json:"vx"`
	VY      float64 `json:"vy"`
	Radius  float64 `json:"radius"`
}

// actorState is the engine-internal record backing one actor. The standing
// intent persists across ticks until a move command replaces it.
type actorState struct {
	Actor
	intentX float64
	intentY float64
}

// projectileState tracks flight bookkeeping that clients never see.
type projectileState struct {
	Projectile
	traveled float64
	maxRange float64
}

// Snapshot captures the state exposed to non-simulation callers. Actors and
// projectiles appear in their deterministic engine order.
type Snapshot struct {
	Tick        uint64       `json:"tick"`
	Actors      []Actor      `json:"actors"`
	Projectiles []Projectile `json:"projectiles,omitempty"`
}
