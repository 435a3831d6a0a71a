package scene

import (
	"math"

	"playhouse/engine/internal/geom"
)

// PieceQuad synthesizes the snap surface of a placed structural piece: a
// width-by-height quad rising from the piece position, heading set by yaw and
// tilted by pitch about the piece's own horizontal axis. Wall-like pieces use
// pitch zero; roof-like pieces carry the slope in pitch.
func PieceQuad(position geom.Vec3, yaw, pitch, width, height float64) geom.Quad {
	sy, cy := math.Sincos(yaw)
	sp, cp := math.Sincos(pitch)

	along := geom.Vec3{X: cy, Z: -sy}
	up := geom.Vec3{X: sp * sy, Y: cp, Z: sp * cy}

	return geom.Quad{
		Origin: position.Sub(along.Scale(width / 2)),
		U:      along.Scale(width),
		V:      up.Scale(height),
	}
}
