package world

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// centralPlacementRatio bounds procedural placement to the middle portion of
// the arena so generated layouts cluster around the spawn point.
const centralPlacementRatio = 0.5

// DeterministicSeedValue folds a root seed and a subsystem label into a
// stable 64-bit seed. The label keeps subsystems decoupled: drawing an extra
// value for walls must never shift the ruin layout.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// NewDeterministicRNG builds a seeded RNG for one subsystem.
func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	seedValue := DeterministicSeedValue(rootSeed, label)
	return rand.New(rand.NewSource(seedValue))
}

func RandomFloat(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.New(rand.NewSource(DeterministicSeedValue(DefaultSeed, "world"))).Float64()
	}
	return rng.Float64()
}

func RandomAngle(rng *rand.Rand) float64 {
	return RandomFloat(rng) * 2 * math.Pi
}

func RandomDistance(rng *rand.Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + RandomFloat(rng)*(max-min)
}

// CentralRange returns the [min, max] interval for placing an obstacle center
// on one axis. The interval covers the central portion of the arena, shrunk
// by the spawn margin and the obstacle's own half-extent so nothing generated
// here pokes past the boundary.
func CentralRange(boundary, margin, halfExtent float64) (float64, float64) {
	if boundary <= 0 {
		return -halfExtent, halfExtent
	}

	min := -boundary * centralPlacementRatio
	max := boundary * centralPlacementRatio

	limit := boundary - margin - halfExtent
	if limit < 0 {
		limit = 0
	}
	if min < -limit {
		min = -limit
	}
	if max > limit {
		max = limit
	}
	if max < min {
		max = min
	}

	return min, max
}
