package world

import (
	"math/rand"

	"rift-and-ruin/server/internal/collision"
	"rift-and-ruin/server/logging"
)

// RNGFactory produces deterministic RNG instances for world subsystems.
type RNGFactory func(rootSeed, label string) *rand.Rand

// Deps bundles runtime dependencies required to construct a World.
type Deps struct {
	Publisher logging.Publisher
	RNG       RNGFactory

	// Authored replaces procedural generation with a hand-built layout.
	Authored *AuthoredLayout
}

// AuthoredLayout carries a hand-built arena layout.
type AuthoredLayout struct {
	Walls []Wall
	Ruins []Ruin
}

// World owns the obstacle layout and the deterministic RNG root shared by
// every simulation subsystem. The layout is fixed at construction; the
// kernel-facing slices never change afterwards, so engines may hold them for
// their whole lifetime.
type World struct {
	config Config
	seed   string

	publisher  logging.Publisher
	rngFactory RNGFactory
	rng        *rand.Rand

	walls []Wall
	ruins []Ruin

	rects []collision.Rect
	boxes []collision.OrientedBox
}

// New constructs a world with normalized configuration, seeded RNG, and a
// fully generated obstacle layout.
func New(cfg Config, deps Deps) *World {
	normalized := cfg.normalized()

	factory := deps.RNG
	if factory == nil {
		factory = NewDeterministicRNG
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	w := &World{
		config:     normalized,
		seed:       normalized.Seed,
		publisher:  publisher,
		rngFactory: factory,
	}
	w.rng = factory(w.seed, "world")

	if deps.Authored != nil {
		w.walls = append([]Wall(nil), deps.Authored.Walls...)
		w.ruins = append([]Ruin(nil), deps.Authored.Ruins...)
	} else {
		if normalized.Walls {
			w.walls = GenerateWalls(w, normalized.WallCount)
		}
		if normalized.Ruins {
			w.ruins = GenerateRuins(w, normalized.RuinCount, w.walls)
		}
	}
	if normalized.Palisade {
		w.walls = append(w.walls, BuildPalisade(w.Boundary())...)
	}

	w.rects = make([]collision.Rect, 0, len(w.walls))
	for _, wall := range w.walls {
		w.rects = append(w.rects, wall.Rect())
	}
	w.boxes = make([]collision.OrientedBox, 0, len(w.ruins))
	for _, ruin := range w.ruins {
		w.boxes = append(w.boxes, ruin.Box())
	}

	return w
}

// Config returns the normalized configuration captured at construction time.
func (w *World) Config() Config {
	if w == nil {
		return Config{}
	}
	return w.config
}

// Seed reports the deterministic seed applied to the world RNG hierarchy.
func (w *World) Seed() string {
	if w == nil {
		return ""
	}
	return w.seed
}

// Boundary returns the arena half-extent, zero meaning unbounded.
func (w *World) Boundary() float64 {
	if w == nil {
		return 0
	}
	return w.config.Boundary
}

// RNG exposes the root RNG instance seeded for the world.
func (w *World) RNG() *rand.Rand {
	if w == nil {
		return nil
	}
	if w.rng == nil {
		w.rng = w.ensureFactory()(w.seed, "world")
	}
	return w.rng
}

// SubsystemRNG returns a deterministic RNG derived from the world seed.
func (w *World) SubsystemRNG(label string) *rand.Rand {
	if w == nil {
		return NewDeterministicRNG(DefaultSeed, label)
	}
	seed := w.seed
	if seed == "" {
		seed = DefaultSeed
	}
	return w.ensureFactory()(seed, label)
}

func (w *World) ensureFactory() RNGFactory {
	if w == nil || w.rngFactory == nil {
		return NewDeterministicRNG
	}
	return w.rngFactory
}

// Walls returns a copy of the arena walls, palisade included.
func (w *World) Walls() []Wall {
	if w == nil {
		return nil
	}
	return append([]Wall(nil), w.walls...)
}

// Ruins returns a copy of the arena ruins.
func (w *World) Ruins() []Ruin {
	if w == nil {
		return nil
	}
	return append([]Ruin(nil), w.ruins...)
}

// Rects exposes the kernel-facing wall rectangles. The slice is shared and
// must be treated as read-only.
func (w *World) Rects() []collision.Rect {
	if w == nil {
		return nil
	}
	return w.rects
}

// Boxes exposes the kernel-facing ruin boxes. The slice is shared and must
// be treated as read-only.
func (w *World) Boxes() []collision.OrientedBox {
	if w == nil {
		return nil
	}
	return w.boxes
}
