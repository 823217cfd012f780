// Package collision is the shared movement kernel: pure predicates and an
// axis-separated resolver over circles, axis-aligned rectangles, and rotated
// boxes. Both the predictive and the authoritative simulation run this exact
// code over the same obstacle snapshots, so every function is stateless,
// allocation-free on the query path, and deterministic for identical inputs.
package collision

import "math"

// Point is a position in world space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Circle is the footprint of a moving agent for the duration of one call.
type Circle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"r"`
}

// Rect is an axis-aligned obstacle described by its center and full extents.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

// Left returns the minimum X edge of the rectangle.
func (r Rect) Left() float64 { return r.X - r.Width/2 }

// Right returns the maximum X edge of the rectangle.
func (r Rect) Right() float64 { return r.X + r.Width/2 }

// Top returns the minimum Y edge of the rectangle.
func (r Rect) Top() float64 { return r.Y - r.Height/2 }

// Bottom returns the maximum Y edge of the rectangle.
func (r Rect) Bottom() float64 { return r.Y + r.Height/2 }

// OrientedBox is a rectangle rotated by Angle radians around its center. The
// angle is consumed directly by the trigonometric functions; callers never
// need to normalize it.
type OrientedBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
	Angle  float64 `json:"angle"`
}

// toLocal carries a world point into the box frame. The box axes are rotated
// by +Angle relative to the world, so the point rotates by -Angle.
func (b OrientedBox) toLocal(x, y float64) (float64, float64) {
	tx := x - b.X
	ty := y - b.Y
	cos := math.Cos(b.Angle)
	sin := math.Sin(b.Angle)
	return tx*cos + ty*sin, -tx*sin + ty*cos
}

// toWorldVector rotates a box-frame vector back into world space.
func (b OrientedBox) toWorldVector(x, y float64) (float64, float64) {
	cos := math.Cos(b.Angle)
	sin := math.Sin(b.Angle)
	return x*cos - y*sin, x*sin + y*cos
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// CircleIntersectsRect reports whether a circle overlaps an axis-aligned
// rectangle. The squared-distance comparison is strict, so exact edge contact
// does not count as overlap.
func CircleIntersectsRect(c Circle, r Rect) bool {
	closestX := Clamp(c.X, r.Left(), r.Right())
	closestY := Clamp(c.Y, r.Top(), r.Bottom())
	dx := c.X - closestX
	dy := c.Y - closestY
	return dx*dx+dy*dy < c.Radius*c.Radius
}

// CircleIntersectsOrientedBox reports whether a circle overlaps a rotated
// box by running the axis-aligned test in the box's local frame.
func CircleIntersectsOrientedBox(c Circle, b OrientedBox) bool {
	localX, localY := b.toLocal(c.X, c.Y)
	halfW := b.Width / 2
	halfH := b.Height / 2
	closestX := Clamp(localX, -halfW, halfW)
	closestY := Clamp(localY, -halfH, halfH)
	dx := localX - closestX
	dy := localY - closestY
	return dx*dx+dy*dy < c.Radius*c.Radius
}
