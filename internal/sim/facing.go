package sim

// FacingDirection identifies the orientation of an actor.
type FacingDirection string

const (
	FacingUp    FacingDirection = "up"
	FacingDown  FacingDirection = "down"
	FacingLeft  FacingDirection = "left"
	FacingRight FacingDirection = "right"
)

// DefaultFacing is assigned to actors that have not moved yet.
const DefaultFacing = FacingDown

// FacingFromVector derives a facing from a movement vector. The dominant
// axis wins and horizontal beats vertical on an exact tie, so the result
// never depends on evaluation order. A zero vector keeps the fallback.
func FacingFromVector(dx, dy float64, fallback FacingDirection) FacingDirection {
	if dx == 0 && dy == 0 {
		return fallback
	}
	ax, ay := dx, dy
	if ax < 0 {
		ax = -ax
	}
	if ay < 0 {
		ay = -ay
	}
	if ax >= ay {
		if dx < 0 {
			return FacingLeft
		}
		return FacingRight
	}
	if dy < 0 {
		return FacingUp
	}
	return FacingDown
}

// facingVector maps a facing to a unit direction in screen coordinates,
// where positive Y points down.
func facingVector(f FacingDirection) (float64, float64) {
	switch f {
	case FacingUp:
		return 0, -1
	case FacingLeft:
		return -1, 0
	case FacingRight:
		return 1, 0
	default:
		return 0, 1
	}
}
