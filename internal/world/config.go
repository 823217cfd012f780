package world

import "strings"

const (
	DefaultSeed     = "prototype"
	DefaultBoundary = 1200.0
)

// Config selects the deterministic arena layout. Both simulation engines must
// be constructed from an identical Config to stay in lockstep.
//
// Boundary is the half-extent of the square play area centered on the origin.
// Leaving it zero picks DefaultBoundary; a negative value asks for an
// unbounded world and normalizes to zero, which the movement kernel treats as
// no boundary at all.
type Config struct {
	Walls     bool    `json:"walls"`
	WallCount int     `json:"wallCount"`
	Ruins     bool    `json:"ruins"`
	RuinCount int     `json:"ruinCount"`
	Palisade  bool    `json:"palisade"`
	Seed      string  `json:"seed"`
	Boundary  float64 `json:"boundary"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = DefaultSeed
	}
	if normalized.WallCount < 0 {
		normalized.WallCount = 0
	}
	if normalized.RuinCount < 0 {
		normalized.RuinCount = 0
	}
	if normalized.Boundary == 0 {
		normalized.Boundary = DefaultBoundary
	} else if normalized.Boundary < 0 {
		normalized.Boundary = 0
	}
	return normalized
}

// Normalized returns the configuration with defaults and limits applied.
func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

// DefaultConfig returns the layout configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Walls:     true,
		WallCount: 12,
		Ruins:     true,
		RuinCount: 6,
		Palisade:  true,
		Seed:      DefaultSeed,
		Boundary:  DefaultBoundary,
	}
}
