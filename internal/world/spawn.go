package world

import (
	"math"
	"math/rand"

	"rift-and-ruin/server/internal/collision"
)

const spawnMaxAttempts = 64

// PositionClear reports whether a circle of the given radius fits at (x, y)
// without touching any obstacle or leaving the play area.
func (w *World) PositionClear(x, y, radius float64) bool {
	if w == nil {
		return true
	}
	c := collision.Circle{X: x, Y: y, Radius: radius}
	if !collision.InsideBounds(c, w.Boundary()) {
		return false
	}
	return !collision.CircleHitsAny(c, w.rects, w.boxes)
}

// FindSpawnPosition picks a clear position for a new agent, preferring the
// arena center and falling back to seeded random probes around it. Callers
// that spawn repeatedly should pass a persistent RNG so consecutive spawns
// spread out; a nil RNG derives a fresh one from the world seed.
func (w *World) FindSpawnPosition(rng *rand.Rand, radius float64) (float64, float64) {
	if w == nil {
		return 0, 0
	}
	if w.PositionClear(0, 0, radius) {
		return 0, 0
	}

	if rng == nil {
		rng = w.SubsystemRNG("spawn")
	}

	reach := w.Boundary()
	if reach <= 0 {
		reach = DefaultBoundary
	}
	maxDistance := reach * centralPlacementRatio

	for attempt := 0; attempt < spawnMaxAttempts; attempt++ {
		angle := RandomAngle(rng)
		distance := RandomDistance(rng, SpawnSafeRadius/2, maxDistance)
		x := math.Cos(angle) * distance
		y := math.Sin(angle) * distance
		if w.PositionClear(x, y, radius) {
			return x, y
		}
	}

	return 0, 0
}
