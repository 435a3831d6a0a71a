package session

import (
	"math"

	"playhouse/engine/internal/geom"
	"playhouse/engine/internal/scene"
)

// RoofStyle selects how roof faces are derived from the footprint.
type RoofStyle string

const (
	// RoofGable is two sloped faces meeting at a ridge along the X axis.
	RoofGable RoofStyle = "gable"
	// RoofFlat has no sloped faces; nothing can roof-snap to it.
	RoofFlat RoofStyle = "flat"
)

// RoofConfig derives the sloped faces of the build from style and pitch.
type RoofConfig struct {
	Style RoofStyle `yaml:"style" json:"style"`
	// Pitch is the slope angle in radians.
	Pitch float64 `yaml:"pitch" json:"pitch"`
	// EaveHeight is where the sloped faces leave the walls.
	EaveHeight float64 `yaml:"eave_height" json:"eaveHeight"`
	// MinX/MaxX/MinZ/MaxZ bound the roofed footprint.
	MinX float64 `yaml:"min_x" json:"minX"`
	MaxX float64 `yaml:"max_x" json:"maxX"`
	MinZ float64 `yaml:"min_z" json:"minZ"`
	MaxZ float64 `yaml:"max_z" json:"maxZ"`
}

// Faces expands the configuration into roof faces. Flat styles, zero pitch,
// and collapsed footprints produce none: a face whose normal would be
// vertical or undefined is never a snap surface.
func (c RoofConfig) Faces() []scene.RoofFace {
	if c.Style != RoofGable {
		return nil
	}
	span := c.MaxX - c.MinX
	depth := c.MaxZ - c.MinZ
	halfDepth := depth / 2
	if span <= geom.Epsilon || halfDepth <= geom.Epsilon {
		return nil
	}
	if c.Pitch <= 0 || c.Pitch >= math.Pi/2 {
		return nil
	}
	rise := halfDepth * math.Tan(c.Pitch)

	north := scene.RoofFace{
		ID: "roof-north",
		Quad: geom.Quad{
			Origin: geom.Vec3{X: c.MinX, Y: c.EaveHeight, Z: c.MinZ},
			U:      geom.Vec3{Y: rise, Z: halfDepth},
			V:      geom.Vec3{X: span},
		},
	}
	south := scene.RoofFace{
		ID: "roof-south",
		Quad: geom.Quad{
			Origin: geom.Vec3{X: c.MinX, Y: c.EaveHeight, Z: c.MaxZ},
			U:      geom.Vec3{Y: rise, Z: -halfDepth},
			V:      geom.Vec3{X: span},
		},
	}
	return []scene.RoofFace{north, south}
}
