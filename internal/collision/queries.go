package collision

// CircleHitsAny reports whether the circle overlaps any obstacle. Rects are
// checked before oriented boxes, each slice in order, stopping at the first
// hit.
func CircleHitsAny(c Circle, rects []Rect, boxes []OrientedBox) bool {
	for _, r := range rects {
		if CircleIntersectsRect(c, r) {
			return true
		}
	}
	for _, b := range boxes {
		if CircleIntersectsOrientedBox(c, b) {
			return true
		}
	}
	return false
}

// LineHitsAny reports whether the segment from p1 to p2 touches any obstacle,
// in the same rects-then-boxes order as CircleHitsAny.
func LineHitsAny(p1, p2 Point, rects []Rect, boxes []OrientedBox) bool {
	for _, r := range rects {
		if SegmentIntersectsRect(p1, p2, r) {
			return true
		}
	}
	for _, b := range boxes {
		if SegmentIntersectsOrientedBox(p1, p2, b) {
			return true
		}
	}
	return false
}

// InsideBounds reports whether the circle, radius included, lies entirely
// within the square region spanning [-boundary, boundary] on both axes. A
// boundary of zero or less means the world is unbounded and everything is
// inside.
func InsideBounds(c Circle, boundary float64) bool {
	if boundary <= 0 {
		return true
	}
	return c.X-c.Radius >= -boundary && c.X+c.Radius <= boundary &&
		c.Y-c.Radius >= -boundary && c.Y+c.Radius <= boundary
}
