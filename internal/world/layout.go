package world

// Layout tuning. ActorRadius doubles as the corridor padding between
// generated obstacles so agents can always squeeze between them.
const (
	ActorRadius         = 14.0
	SpawnSafeRadius     = 120.0
	ObstacleSpawnMargin = 100.0

	WallMinWidth  = 60.0
	WallMaxWidth  = 240.0
	WallMinHeight = 40.0
	WallMaxHeight = 200.0

	RuinMinSize = 56.0
	RuinMaxSize = 96.0

	PalisadeInset     = 40.0
	PalisadeThickness = 24.0
	PalisadeGateWidth = 160.0
)

// BuildPalisade rings the arena with walls just inside the boundary, leaving
// a gate in the middle of each side. The ring is authored rather than rolled:
// it never consumes RNG draws and is identical for every seed.
func BuildPalisade(boundary float64) []Wall {
	if boundary <= 0 {
		return nil
	}

	inner := boundary - PalisadeInset
	gateHalf := PalisadeGateWidth / 2
	if inner <= gateHalf+PalisadeThickness {
		// Too small for a ring with gates.
		return nil
	}

	center := inner - PalisadeThickness/2
	segLen := inner - gateHalf
	segCenter := gateHalf + segLen/2

	walls := make([]Wall, 0, 8)
	add := func(id string, x, y, w, h float64) {
		walls = append(walls, Wall{ID: id, X: x, Y: y, Width: w, Height: h})
	}

	add("palisade-n-west", -segCenter, -center, segLen, PalisadeThickness)
	add("palisade-n-east", segCenter, -center, segLen, PalisadeThickness)
	add("palisade-s-west", -segCenter, center, segLen, PalisadeThickness)
	add("palisade-s-east", segCenter, center, segLen, PalisadeThickness)
	add("palisade-w-north", -center, -segCenter, PalisadeThickness, segLen)
	add("palisade-w-south", -center, segCenter, PalisadeThickness, segLen)
	add("palisade-e-north", center, -segCenter, PalisadeThickness, segLen)
	add("palisade-e-south", center, segCenter, PalisadeThickness, segLen)
	return walls
}
