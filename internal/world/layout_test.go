package world

import (
	"testing"

	"rift-and-ruin/server/internal/collision"
)

func TestBuildPalisadeRing(t *testing.T) {
	const boundary = 1200.0
	walls := BuildPalisade(boundary)
	if len(walls) != 8 {
		t.Fatalf("expected 8 palisade segments, got %d", len(walls))
	}

	inner := boundary - PalisadeInset
	for _, wall := range walls {
		r := wall.Rect()
		if r.Left() < -inner || r.Right() > inner || r.Top() < -inner || r.Bottom() > inner {
			t.Fatalf("segment %s leaves the palisade band: %+v", wall.ID, wall)
		}
	}
}

func TestBuildPalisadeLeavesGates(t *testing.T) {
	const boundary = 1200.0
	walls := BuildPalisade(boundary)

	rects := make([]collision.Rect, 0, len(walls))
	for _, wall := range walls {
		rects = append(rects, wall.Rect())
	}

	center := boundary - PalisadeInset - PalisadeThickness/2
	probe := PalisadeGateWidth/2 - ActorRadius - 1
	gates := []collision.Circle{
		{X: 0, Y: -center, Radius: probe},
		{X: 0, Y: center, Radius: probe},
		{X: -center, Y: 0, Radius: probe},
		{X: center, Y: 0, Radius: probe},
	}

	for i, gate := range gates {
		if collision.CircleHitsAny(gate, rects, nil) {
			t.Fatalf("gate %d is blocked: %+v", i, gate)
		}
	}
}

func TestBuildPalisadeTooSmall(t *testing.T) {
	if walls := BuildPalisade(100); walls != nil {
		t.Fatalf("expected no palisade in a tiny arena, got %d segments", len(walls))
	}
	if walls := BuildPalisade(0); walls != nil {
		t.Fatalf("expected no palisade in an unbounded world, got %d segments", len(walls))
	}
}
