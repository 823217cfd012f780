// Package layout loads designer-authored arena documents and converts them
// into the obstacle set consumed by the simulation world.
package layout

import (
	"rift-and-ruin/server/internal/world"
)

// CurrentVersion is the document format revision this loader understands.
const CurrentVersion = 1

// Document represents an arena layout as it appears on disk. The struct is
// exported so tooling (e.g. schema generators) can reflect over the
// configuration contract shared with designers.
type Document struct {
	Version  int            `json:"version" jsonschema:"title=Format Version,description=Layout format revision understood by the server.,minimum=1,required"`
	Name     string         `json:"name" jsonschema:"title=Arena Name,description=Designer-facing identifier for the arena.,pattern=^[a-z0-9-]+$,minLength=1,required"`
	Boundary float64        `json:"boundary,omitempty" jsonschema:"title=Arena Half-Extent,description=Half size of the square play area centered on the origin. Zero picks the server default and a negative value removes the boundary entirely."`
	Palisade bool           `json:"palisade,omitempty" jsonschema:"title=Palisade Ring,description=Adds the generated boundary palisade on top of the authored obstacles."`
	Walls    []WallDocument `json:"walls,omitempty" jsonschema:"title=Walls,description=Axis-aligned blocking rectangles."`
	Ruins    []RuinDocument `json:"ruins,omitempty" jsonschema:"title=Ruins,description=Blocking boxes rotated around their centers."`
}

// WallDocument authors one axis-aligned blocking rectangle, positioned by
// its center.
type WallDocument struct {
	ID     string  `json:"id" jsonschema:"title=Wall ID,description=Identifier unique across every obstacle in the document.,pattern=^[a-z0-9-]+$,minLength=1,required"`
	X      float64 `json:"x" jsonschema:"title=Center X,description=World X coordinate of the rectangle center.,required"`
	Y      float64 `json:"y" jsonschema:"title=Center Y,description=World Y coordinate of the rectangle center.,required"`
	Width  float64 `json:"w" jsonschema:"title=Width,description=Full extent along the X axis.,required"`
	Height float64 `json:"h" jsonschema:"title=Height,description=Full extent along the Y axis.,required"`
}

// RuinDocument authors one blocking box rotated around its center.
type RuinDocument struct {
	ID     string  `json:"id" jsonschema:"title=Ruin ID,description=Identifier unique across every obstacle in the document.,pattern=^[a-z0-9-]+$,minLength=1,required"`
	X      float64 `json:"x" jsonschema:"title=Center X,description=World X coordinate of the box center.,required"`
	Y      float64 `json:"y" jsonschema:"title=Center Y,description=World Y coordinate of the box center.,required"`
	Width  float64 `json:"w" jsonschema:"title=Width,description=Full extent along the local X axis before rotation.,required"`
	Height float64 `json:"h" jsonschema:"title=Height,description=Full extent along the local Y axis before rotation.,required"`
	Angle  float64 `json:"angle,omitempty" jsonschema:"title=Rotation,description=Rotation around the center in radians."`
}

// Resolve converts the document into the world's obstacle types, preserving
// document order so every server loading the same file builds an identical
// arena.
func (d *Document) Resolve() *world.AuthoredLayout {
	if d == nil {
		return nil
	}
	authored := &world.AuthoredLayout{}
	if len(d.Walls) > 0 {
		authored.Walls = make([]world.Wall, 0, len(d.Walls))
		for _, wall := range d.Walls {
			authored.Walls = append(authored.Walls, world.Wall{
				ID:     wall.ID,
				X:      wall.X,
				Y:      wall.Y,
				Width:  wall.Width,
				Height: wall.Height,
			})
		}
	}
	if len(d.Ruins) > 0 {
		authored.Ruins = make([]world.Ruin, 0, len(d.Ruins))
		for _, ruin := range d.Ruins {
			authored.Ruins = append(authored.Ruins, world.Ruin{
				ID:     ruin.ID,
				X:      ruin.X,
				Y:      ruin.Y,
				Width:  ruin.Width,
				Height: ruin.Height,
				Angle:  ruin.Angle,
			})
		}
	}
	return authored
}

// WorldConfig builds the world configuration for the document. Procedural
// generation flags stay off because the authored layout replaces it.
func (d *Document) WorldConfig(seed string) world.Config {
	if d == nil {
		return world.Config{Seed: seed}
	}
	return world.Config{
		Seed:     seed,
		Boundary: d.Boundary,
		Palisade: d.Palisade,
	}
}
