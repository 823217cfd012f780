package world

import (
	"fmt"
	"math"
	"math/rand"

	"rift-and-ruin/server/internal/collision"
)

// Wall is an axis-aligned blocking rectangle, positioned by its center.
type Wall struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

// Rect converts the wall into the movement kernel's rectangle type.
func (w Wall) Rect() collision.Rect {
	return collision.Rect{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height}
}

// Ruin is a collapsed structure: a blocking box rotated around its center.
type Ruin struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
	Angle  float64 `json:"angle"`
}

// Box converts the ruin into the movement kernel's oriented box type.
func (r Ruin) Box() collision.OrientedBox {
	return collision.OrientedBox{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, Angle: r.Angle}
}

// circumradius is the radius of the circle enclosing the ruin regardless of
// its rotation, used for conservative overlap checks during placement.
func (r Ruin) circumradius() float64 {
	return math.Hypot(r.Width, r.Height) / 2
}

// LayoutSource describes the minimal world surface the generators need.
type LayoutSource interface {
	Config() Config
	Boundary() float64
	SubsystemRNG(label string) *rand.Rand
}

// GenerateWalls scatters blocking rectangles around the arena center. Every
// candidate keeps the spawn area clear and a walkable corridor of at least
// one actor diameter to previously placed walls.
func GenerateWalls(gen LayoutSource, count int) []Wall {
	if gen == nil || count <= 0 {
		return nil
	}

	boundary := placementBoundary(gen)
	rng := gen.SubsystemRNG("layout.walls")

	walls := make([]Wall, 0, count)
	attempts := 0
	maxAttempts := count * 20

	for len(walls) < count && attempts < maxAttempts {
		attempts++

		width := RandomDistance(rng, WallMinWidth, WallMaxWidth)
		height := RandomDistance(rng, WallMinHeight, WallMaxHeight)

		minX, maxX := CentralRange(boundary, ObstacleSpawnMargin, width/2)
		minY, maxY := CentralRange(boundary, ObstacleSpawnMargin, height/2)
		if maxX <= minX && maxY <= minY {
			break
		}

		candidate := Wall{
			ID:     fmt.Sprintf("wall-%d", len(walls)+1),
			X:      RandomDistance(rng, minX, maxX),
			Y:      RandomDistance(rng, minY, maxY),
			Width:  width,
			Height: height,
		}

		if collision.CircleIntersectsRect(spawnSafeCircle(), candidate.Rect()) {
			continue
		}

		overlapsExisting := false
		for _, wall := range walls {
			if rectsOverlap(candidate.Rect(), wall.Rect(), ActorRadius) {
				overlapsExisting = true
				break
			}
		}
		if overlapsExisting {
			continue
		}

		walls = append(walls, candidate)
	}

	return walls
}

// GenerateRuins places rotated boxes between the walls. Overlap checks use
// the enclosing circle of each ruin, which over-rejects slightly but never
// lets a rotated corner poke into a wall corridor.
func GenerateRuins(gen LayoutSource, count int, existing []Wall) []Ruin {
	if gen == nil || count <= 0 {
		return nil
	}

	boundary := placementBoundary(gen)
	rng := gen.SubsystemRNG("layout.ruins")

	ruins := make([]Ruin, 0, count)
	attempts := 0
	maxAttempts := count * 30

	for len(ruins) < count && attempts < maxAttempts {
		attempts++

		width := RandomDistance(rng, RuinMinSize, RuinMaxSize)
		height := RandomDistance(rng, RuinMinSize, RuinMaxSize)
		angle := RandomAngle(rng)

		candidate := Ruin{
			ID:     fmt.Sprintf("ruin-%d", len(ruins)+1),
			Width:  width,
			Height: height,
			Angle:  angle,
		}
		reach := candidate.circumradius()

		minX, maxX := CentralRange(boundary, ObstacleSpawnMargin, reach)
		minY, maxY := CentralRange(boundary, ObstacleSpawnMargin, reach)
		if maxX <= minX && maxY <= minY {
			break
		}
		candidate.X = RandomDistance(rng, minX, maxX)
		candidate.Y = RandomDistance(rng, minY, maxY)

		if collision.CircleIntersectsOrientedBox(spawnSafeCircle(), candidate.Box()) {
			continue
		}

		clearance := collision.Circle{X: candidate.X, Y: candidate.Y, Radius: reach + ActorRadius}
		overlaps := false
		for _, wall := range existing {
			if collision.CircleIntersectsRect(clearance, wall.Rect()) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}

		for _, ruin := range ruins {
			limit := reach + ruin.circumradius() + ActorRadius
			dx := candidate.X - ruin.X
			dy := candidate.Y - ruin.Y
			if dx*dx+dy*dy < limit*limit {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}

		ruins = append(ruins, candidate)
	}

	return ruins
}

// placementBoundary resolves the half-extent generators place within. An
// unbounded world still gets a finite layout footprint.
func placementBoundary(gen LayoutSource) float64 {
	boundary := gen.Boundary()
	if boundary <= 0 {
		return DefaultBoundary
	}
	return boundary
}

func spawnSafeCircle() collision.Circle {
	return collision.Circle{X: 0, Y: 0, Radius: SpawnSafeRadius}
}

// rectsOverlap checks for AABB overlap with optional padding.
func rectsOverlap(a, b collision.Rect, padding float64) bool {
	return a.Left()-padding < b.Right()+padding &&
		a.Right()+padding > b.Left()-padding &&
		a.Top()-padding < b.Bottom()+padding &&
		a.Bottom()+padding > b.Top()-padding
}
