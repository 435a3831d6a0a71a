package scene

import "playhouse/engine/internal/geom"

// Input is the session-owned geometry a registry is built from.
type Input struct {
	// Version is the session state version the snapshot was taken at.
	Version uint64
	Ground  geom.Quad
	Walls   []WallSegment
	Roofs   []RoofFace
	Pieces  []PieceSurface
}

type wallEntry struct {
	id    string
	faces []Face
}

type pieceEntry struct {
	pieceID string
	kind    SurfaceKind
	quads   []geom.Quad
}

// Registry is the tagged surface set queried per tick. It is rebuilt whenever
// the session notifies a geometry change, never re-traversed from the scene
// graph per query, and is read-only afterwards.
type Registry struct {
	version uint64
	ground  geom.Quad
	walls   []wallEntry
	roofs   []RoofFace
	pieces  []pieceEntry
}

// NewRegistry builds a registry snapshot. Degenerate wall segments and roof
// faces are dropped here so queries never see them.
func NewRegistry(input Input) *Registry {
	reg := &Registry{
		version: input.Version,
		ground:  input.Ground,
	}
	for _, wall := range input.Walls {
		if wall.Degenerate() {
			continue
		}
		reg.walls = append(reg.walls, wallEntry{id: wall.ID, faces: wall.Faces()})
	}
	for _, roof := range input.Roofs {
		if _, ok := roof.Normal(); !ok {
			continue
		}
		reg.roofs = append(reg.roofs, roof)
	}
	for _, piece := range input.Pieces {
		if piece.PieceID == "" || len(piece.Quads) == 0 {
			continue
		}
		if piece.Kind != KindWall && piece.Kind != KindRoof {
			continue
		}
		reg.pieces = append(reg.pieces, pieceEntry{
			pieceID: piece.PieceID,
			kind:    piece.Kind,
			quads:   piece.Quads,
		})
	}
	return reg
}

// Ground returns the build surface quad.
func (r *Registry) Ground() geom.Quad {
	if r == nil {
		return geom.Quad{}
	}
	return r.ground
}

// Version reports the session state version the registry reflects.
func (r *Registry) Version() uint64 {
	if r == nil {
		return 0
	}
	return r.version
}

// EachWallFace visits every face of every non-degenerate wall segment.
func (r *Registry) EachWallFace(fn func(id string, face Face)) {
	if r == nil || fn == nil {
		return
	}
	for _, wall := range r.walls {
		for _, face := range wall.faces {
			fn(wall.id, face)
		}
	}
}

// EachRoofFace visits every usable roof face.
func (r *Registry) EachRoofFace(fn func(roof RoofFace)) {
	if r == nil || fn == nil {
		return
	}
	for _, roof := range r.roofs {
		fn(roof)
	}
}
