package collision

// Outcode bits for Cohen-Sutherland clipping. The clip loop resolves the
// highest set bit first, so the case order below must stay top, bottom,
// right, left.
const (
	outcodeInside = 0
	outcodeLeft   = 1
	outcodeRight  = 2
	outcodeBottom = 4
	outcodeTop    = 8
)

func computeOutcode(x, y float64, r Rect) int {
	code := outcodeInside
	if x < r.Left() {
		code |= outcodeLeft
	} else if x > r.Right() {
		code |= outcodeRight
	}
	if y < r.Top() {
		code |= outcodeTop
	} else if y > r.Bottom() {
		code |= outcodeBottom
	}
	return code
}

// SegmentIntersectsRect reports whether the segment from p1 to p2 touches an
// axis-aligned rectangle. It clips the segment with Cohen-Sutherland
// outcodes: endpoints sharing an outside region reject immediately, otherwise
// the outside endpoint moves onto the violated edge until both land inside.
func SegmentIntersectsRect(p1, p2 Point, r Rect) bool {
	x1, y1 := p1.X, p1.Y
	x2, y2 := p2.X, p2.Y
	code1 := computeOutcode(x1, y1, r)
	code2 := computeOutcode(x2, y2, r)

	for {
		if code1|code2 == 0 {
			return true
		}
		if code1&code2 != 0 {
			return false
		}

		code := code1
		if code == outcodeInside {
			code = code2
		}

		// The divisors cannot be zero: the chosen endpoint is outside the
		// edge being clipped while the other endpoint is not, so the segment
		// has extent along that axis.
		var x, y float64
		switch {
		case code&outcodeTop != 0:
			x = x1 + (x2-x1)*(r.Top()-y1)/(y2-y1)
			y = r.Top()
		case code&outcodeBottom != 0:
			x = x1 + (x2-x1)*(r.Bottom()-y1)/(y2-y1)
			y = r.Bottom()
		case code&outcodeRight != 0:
			y = y1 + (y2-y1)*(r.Right()-x1)/(x2-x1)
			x = r.Right()
		default:
			y = y1 + (y2-y1)*(r.Left()-x1)/(x2-x1)
			x = r.Left()
		}

		if code == code1 {
			x1, y1 = x, y
			code1 = computeOutcode(x1, y1, r)
		} else {
			x2, y2 = x, y
			code2 = computeOutcode(x2, y2, r)
		}
	}
}

// SegmentIntersectsOrientedBox reports whether the segment from p1 to p2
// touches a rotated box. Both endpoints move into the box frame, then a
// Liang-Barsky clip runs against the local half-extent slabs.
func SegmentIntersectsOrientedBox(p1, p2 Point, b OrientedBox) bool {
	x1, y1 := b.toLocal(p1.X, p1.Y)
	x2, y2 := b.toLocal(p2.X, p2.Y)
	halfW := b.Width / 2
	halfH := b.Height / 2

	dx := x2 - x1
	dy := y2 - y1

	p := [4]float64{-dx, dx, -dy, dy}
	q := [4]float64{x1 + halfW, halfW - x1, y1 + halfH, halfH - y1}

	t0, t1 := 0.0, 1.0
	for i := 0; i < 4; i++ {
		if p[i] == 0 {
			// Parallel to this slab: reject only if the segment lies
			// entirely beyond it.
			if q[i] < 0 {
				return false
			}
			continue
		}
		t := q[i] / p[i]
		if p[i] < 0 {
			if t > t0 {
				t0 = t
			}
		} else if t < t1 {
			t1 = t
		}
		if t0 > t1 {
			return false
		}
	}
	return t0 <= t1
}
