package collision

import "math"

// pushEpsilon guards the oriented-box push-out against dividing by a
// near-zero penetration distance. A circle center within this distance of
// the closest box point stays where it is rather than shooting off along an
// unstable normal.
const pushEpsilon = 0.01

// HitKind tags which geometry produced a hit record.
type HitKind string

const (
	HitAxisRect    HitKind = "aabb"
	HitOrientedBox HitKind = "obb"
	HitBoundary    HitKind = "bounds"
)

// Phase tags the resolver pass that produced a hit record.
type Phase string

const (
	PhaseX      Phase = "x"
	PhaseY      Phase = "y"
	PhaseBounds Phase = "bounds"
)

// HitRecord describes one correction applied during a resolve. Records are
// observational: the resolver never reads them back, so emitting them cannot
// change the returned position.
type HitRecord struct {
	Kind     HitKind      `json:"kind"`
	Phase    Phase        `json:"phase"`
	Index    int          `json:"index"`
	Rect     *Rect        `json:"rect,omitempty"`
	Box      *OrientedBox `json:"box,omitempty"`
	Boundary float64      `json:"boundary,omitempty"`
}

// hitSink receives hit records as the resolver applies corrections. A nil
// sink skips recording without branching at every call site.
type hitSink func(HitRecord)

func (s hitSink) record(h HitRecord) {
	if s != nil {
		s(h)
	}
}

// ResolveCircleMove advances a circle by the displacement (dx, dy) and
// returns the corrected position after sliding along obstacles and clamping
// to the world boundary. The X axis resolves first against every obstacle in
// slice order, then the Y axis, so corrections from later obstacles override
// earlier ones and diagonal movement slides along walls instead of sticking.
func ResolveCircleMove(c Circle, dx, dy float64, rects []Rect, boxes []OrientedBox, boundary float64) Point {
	return resolveMove(c, dx, dy, rects, boxes, boundary, nil)
}

// ResolveCircleMoveWithHits behaves exactly like ResolveCircleMove and
// additionally reports every correction that was applied. A resolve that
// touches nothing returns a nil slice.
func ResolveCircleMoveWithHits(c Circle, dx, dy float64, rects []Rect, boxes []OrientedBox, boundary float64) (Point, []HitRecord) {
	var hits []HitRecord
	pos := resolveMove(c, dx, dy, rects, boxes, boundary, func(h HitRecord) {
		hits = append(hits, h)
	})
	return pos, hits
}

// resolveMove is the single implementation behind both resolve entry points.
func resolveMove(c Circle, dx, dy float64, rects []Rect, boxes []OrientedBox, boundary float64, sink hitSink) Point {
	newX := c.X + dx
	for i, r := range rects {
		if !CircleIntersectsRect(Circle{X: newX, Y: c.Y, Radius: c.Radius}, r) {
			continue
		}
		// A rect that only grazes the circle's vertical extent belongs to
		// the Y pass; pushing on X here would snag corners.
		overlap := math.Min(c.Y+c.Radius, r.Bottom()) - math.Max(c.Y-c.Radius, r.Top())
		if overlap <= 0 {
			continue
		}
		if dx > 0 {
			newX = r.Left() - c.Radius
		} else if dx < 0 {
			newX = r.Right() + c.Radius
		} else {
			continue
		}
		rect := r
		sink.record(HitRecord{Kind: HitAxisRect, Phase: PhaseX, Index: i, Rect: &rect})
	}
	for i, b := range boxes {
		pushX, _, ok := orientedPush(newX, c.Y, c.Radius, b)
		if !ok {
			continue
		}
		newX += pushX
		box := b
		sink.record(HitRecord{Kind: HitOrientedBox, Phase: PhaseX, Index: i, Box: &box})
	}

	newY := c.Y + dy
	for i, r := range rects {
		if !CircleIntersectsRect(Circle{X: newX, Y: newY, Radius: c.Radius}, r) {
			continue
		}
		overlap := math.Min(newX+c.Radius, r.Right()) - math.Max(newX-c.Radius, r.Left())
		if overlap <= 0 {
			continue
		}
		if dy > 0 {
			newY = r.Top() - c.Radius
		} else if dy < 0 {
			newY = r.Bottom() + c.Radius
		} else {
			continue
		}
		rect := r
		sink.record(HitRecord{Kind: HitAxisRect, Phase: PhaseY, Index: i, Rect: &rect})
	}
	for i, b := range boxes {
		_, pushY, ok := orientedPush(newX, newY, c.Radius, b)
		if !ok {
			continue
		}
		newY += pushY
		box := b
		sink.record(HitRecord{Kind: HitOrientedBox, Phase: PhaseY, Index: i, Box: &box})
	}

	if boundary > 0 {
		clampedX := Clamp(newX, -boundary+c.Radius, boundary-c.Radius)
		clampedY := Clamp(newY, -boundary+c.Radius, boundary-c.Radius)
		if clampedX != newX || clampedY != newY {
			sink.record(HitRecord{Kind: HitBoundary, Phase: PhaseBounds, Boundary: boundary})
		}
		newX = clampedX
		newY = clampedY
	}

	return Point{X: newX, Y: newY}
}

// orientedPush computes the world-space separation vector for a circle
// overlapping a rotated box. ok is false when there is no overlap, or when
// the circle center sits within pushEpsilon of the closest box point and no
// stable push direction exists.
func orientedPush(x, y, radius float64, b OrientedBox) (float64, float64, bool) {
	localX, localY := b.toLocal(x, y)
	halfW := b.Width / 2
	halfH := b.Height / 2
	closestX := Clamp(localX, -halfW, halfW)
	closestY := Clamp(localY, -halfH, halfH)
	dx := localX - closestX
	dy := localY - closestY
	distSq := dx*dx + dy*dy
	if distSq >= radius*radius {
		return 0, 0, false
	}
	dist := math.Sqrt(distSq)
	if dist <= pushEpsilon {
		return 0, 0, false
	}
	depth := radius - dist
	pushX, pushY := b.toWorldVector(dx/dist*depth, dy/dist*depth)
	return pushX, pushY, true
}
