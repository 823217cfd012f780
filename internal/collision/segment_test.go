package collision

import (
	"math"
	"testing"
)

func TestSegmentIntersectsRect(t *testing.T) {
	rect := Rect{X: 0, Y: 0, Width: 100, Height: 100}

	cases := []struct {
		name   string
		p1, p2 Point
		want   bool
	}{
		{name: "both-endpoints-inside", p1: Point{X: 10, Y: 10}, p2: Point{X: 40, Y: 40}, want: true},
		{name: "starts-inside-ends-outside", p1: Point{X: 10, Y: 10}, p2: Point{X: 90, Y: 90}, want: true},
		{name: "entirely-right-of-rect", p1: Point{X: 200, Y: 0}, p2: Point{X: 300, Y: 0}, want: false},
		{name: "crosses-left-edge", p1: Point{X: -100, Y: 0}, p2: Point{X: 0, Y: 0}, want: true},
		{name: "spans-whole-rect", p1: Point{X: 0, Y: -100}, p2: Point{X: 0, Y: 100}, want: true},
		{name: "grazes-corner-exactly", p1: Point{X: -60, Y: -40}, p2: Point{X: -40, Y: -60}, want: true},
		{name: "cuts-outside-corner", p1: Point{X: -70, Y: -40}, p2: Point{X: -40, Y: -70}, want: false},
		{name: "degenerate-point-inside", p1: Point{X: 5, Y: 5}, p2: Point{X: 5, Y: 5}, want: true},
		{name: "degenerate-point-outside", p1: Point{X: 60, Y: 60}, p2: Point{X: 60, Y: 60}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SegmentIntersectsRect(tc.p1, tc.p2, rect); got != tc.want {
				t.Fatalf("SegmentIntersectsRect(%+v, %+v) = %v, want %v", tc.p1, tc.p2, got, tc.want)
			}
			// Swapping the endpoints must not change the answer.
			if got := SegmentIntersectsRect(tc.p2, tc.p1, rect); got != tc.want {
				t.Fatalf("SegmentIntersectsRect(%+v, %+v) = %v, want %v", tc.p2, tc.p1, got, tc.want)
			}
		})
	}
}

func TestSegmentIntersectsRectDegenerateRect(t *testing.T) {
	// A zero-height wall still blocks segments that cross its line.
	wall := Rect{X: 0, Y: 0, Width: 100, Height: 0}

	if !SegmentIntersectsRect(Point{X: 0, Y: -10}, Point{X: 0, Y: 10}, wall) {
		t.Fatal("expected vertical segment to cross the zero-height wall")
	}
	if SegmentIntersectsRect(Point{X: 60, Y: -10}, Point{X: 60, Y: 10}, wall) {
		t.Fatal("expected segment beyond the wall end to miss")
	}
}

func TestSegmentIntersectsOrientedBoxQuarterTurn(t *testing.T) {
	box := OrientedBox{X: 0, Y: 0, Width: 40, Height: 10, Angle: math.Pi / 2}

	if !SegmentIntersectsOrientedBox(Point{X: -15, Y: 0}, Point{X: 15, Y: 0}, box) {
		t.Fatal("expected segment through the rotated footprint to hit")
	}
	if SegmentIntersectsOrientedBox(Point{X: 10, Y: -25}, Point{X: 10, Y: 25}, box) {
		t.Fatal("expected segment beside the rotated footprint to miss")
	}
}

func TestSegmentIntersectsOrientedBoxParallelSlabs(t *testing.T) {
	box := OrientedBox{X: 0, Y: 0, Width: 40, Height: 10, Angle: 0}

	// Parallel to the Y slab while inside it: the X slabs decide.
	if !SegmentIntersectsOrientedBox(Point{X: -30, Y: 0}, Point{X: 30, Y: 0}, box) {
		t.Fatal("expected horizontal segment through the box to hit")
	}
	// Parallel to the Y slab but entirely beyond it.
	if SegmentIntersectsOrientedBox(Point{X: -30, Y: 8}, Point{X: 30, Y: 8}, box) {
		t.Fatal("expected horizontal segment above the box to miss")
	}
	// Degenerate segment inside the box.
	if !SegmentIntersectsOrientedBox(Point{X: 1, Y: 1}, Point{X: 1, Y: 1}, box) {
		t.Fatal("expected point inside the box to hit")
	}
	// Degenerate segment outside the box.
	if SegmentIntersectsOrientedBox(Point{X: 0, Y: 9}, Point{X: 0, Y: 9}, box) {
		t.Fatal("expected point above the box to miss")
	}
}

func TestSegmentIntersectsOrientedBoxZeroAngleMatchesRect(t *testing.T) {
	rect := Rect{X: 10, Y: -5, Width: 30, Height: 14}
	box := OrientedBox{X: 10, Y: -5, Width: 30, Height: 14, Angle: 0}

	segments := []struct{ p1, p2 Point }{
		{Point{X: -20, Y: -5}, Point{X: 40, Y: -5}},
		{Point{X: 10, Y: -30}, Point{X: 10, Y: 30}},
		{Point{X: -20, Y: 20}, Point{X: 40, Y: 20}},
		{Point{X: 12, Y: -4}, Point{X: 14, Y: -3}},
		{Point{X: 50, Y: 50}, Point{X: 60, Y: 40}},
	}

	for _, seg := range segments {
		rectHit := SegmentIntersectsRect(seg.p1, seg.p2, rect)
		boxHit := SegmentIntersectsOrientedBox(seg.p1, seg.p2, box)
		if rectHit != boxHit {
			t.Fatalf("unrotated box disagrees with rect for %+v-%+v: rect=%v box=%v", seg.p1, seg.p2, rectHit, boxHit)
		}
	}
}
