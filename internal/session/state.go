package session

import (
	"sync"

	"github.com/google/uuid"

	"playhouse/engine/internal/geom"
	"playhouse/engine/internal/piece"
	"playhouse/engine/internal/scene"
)

// LiveTransform is a speculative pose for a held piece. It is broadcast for
// rendering but never written into the confirmed state.
type LiveTransform struct {
	Position geom.Vec3 `json:"position"`
	Yaw      float64   `json:"yaw"`
	Pitch    float64   `json:"pitch"`
}

// Commit is the confirmed result of a finished drag.
type Commit struct {
	PieceID    string
	UserID     string
	Position   geom.Vec3
	Yaw        float64
	Pitch      float64
	Attachment *piece.Attachment
	// BaseVersion is the piece version the drag started from. A mismatch
	// means someone else committed in between and the release is refused.
	BaseVersion uint64
}

// SnapSurfaceSpec describes the build surface a snap-target piece exposes
// once placed. Width runs along the piece's yaw heading, height along its
// local up.
type SnapSurfaceSpec struct {
	Kind   scene.SurfaceKind `yaml:"kind" json:"kind"`
	Width  float64           `yaml:"width" json:"width"`
	Height float64           `yaml:"height" json:"height"`
}

// SpawnSpec is everything needed to create a piece.
type SpawnSpec struct {
	CatalogID string
	Category  piece.Category
	Position  geom.Vec3
	Yaw       float64
	Surface   *SnapSurfaceSpec
}

// Authority grants and releases piece locks and applies confirmed commits.
// All methods are safe for concurrent use.
type Authority interface {
	GrabPiece(pieceID, userID string) bool
	UpdateLiveTransform(pieceID, userID string, t LiveTransform) bool
	ReleasePiece(c Commit) bool
}

// State is the authoritative store: confirmed pieces, static build geometry,
// per-piece holds, and speculative live transforms. The version counter
// advances whenever snap geometry changes so readers know to rebuild their
// surface registry.
type State struct {
	mu       sync.Mutex
	pieces   map[string]*piece.Piece
	surfaces map[string]SnapSurfaceSpec
	walls    map[string]scene.WallSegment
	roof     RoofConfig
	ground   geom.Quad
	held     map[string]string
	live     map[string]LiveTransform
	version  uint64
}

// Config seeds a new State.
type Config struct {
	Ground geom.Quad
	Roof   RoofConfig
	Walls  []scene.WallSegment
}

func NewState(cfg Config) *State {
	s := &State{
		pieces:   make(map[string]*piece.Piece),
		surfaces: make(map[string]SnapSurfaceSpec),
		walls:    make(map[string]scene.WallSegment),
		roof:     cfg.Roof,
		ground:   cfg.Ground,
		held:     make(map[string]string),
		live:     make(map[string]LiveTransform),
		version:  1,
	}
	for _, w := range cfg.Walls {
		if !w.Degenerate() {
			s.walls[w.ID] = w
		}
	}
	return s
}

// SpawnPiece creates a piece with a fresh identifier and returns a copy.
func (s *State) SpawnPiece(spec SpawnSpec) piece.Piece {
	p := &piece.Piece{
		ID:         uuid.NewString(),
		CatalogID:  spec.CatalogID,
		Category:   spec.Category,
		Position:   spec.Position,
		Yaw:        spec.Yaw,
		SnapTarget: spec.Surface != nil,
		Version:    1,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pieces[p.ID] = p
	if spec.Surface != nil {
		s.surfaces[p.ID] = *spec.Surface
		s.version++
	}
	return p.Clone()
}

// DeletePiece removes a piece along with any hold or live transform on it.
func (s *State) DeletePiece(pieceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pieces[pieceID]
	if !ok {
		return false
	}
	delete(s.pieces, pieceID)
	delete(s.held, pieceID)
	delete(s.live, pieceID)
	if p.SnapTarget {
		delete(s.surfaces, pieceID)
		s.version++
	}
	return true
}

// AddWall registers a wall segment. Degenerate segments are dropped.
func (s *State) AddWall(w scene.WallSegment) bool {
	if w.Degenerate() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walls[w.ID] = w
	s.version++
	return true
}

// SetRoof replaces the roof configuration.
func (s *State) SetRoof(cfg RoofConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roof = cfg
	s.version++
}

// GrabPiece locks a piece to a user. Grabbing a piece you already hold is a
// no-op grant; a piece held by anyone else is denied.
func (s *State) GrabPiece(pieceID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pieces[pieceID]; !ok {
		return false
	}
	if holder, ok := s.held[pieceID]; ok && holder != userID {
		return false
	}
	s.held[pieceID] = userID
	return true
}

// HeldBy reports the current holder of a piece.
func (s *State) HeldBy(pieceID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	holder, ok := s.held[pieceID]
	return holder, ok
}

// UpdateLiveTransform records a speculative pose. It is refused when the
// caller does not hold the piece.
func (s *State) UpdateLiveTransform(pieceID, userID string, t LiveTransform) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held[pieceID] != userID {
		return false
	}
	s.live[pieceID] = t
	return true
}

// ReleasePiece applies a commit and clears the hold. The commit is refused
// when the caller does not hold the piece, the piece is gone, or the piece
// version moved since the drag began.
func (s *State) ReleasePiece(c Commit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pieces[c.PieceID]
	if !ok {
		return false
	}
	if s.held[c.PieceID] != c.UserID {
		return false
	}
	if c.BaseVersion != 0 && c.BaseVersion != p.Version {
		delete(s.held, c.PieceID)
		delete(s.live, c.PieceID)
		return false
	}
	p.Position = c.Position
	p.Yaw = c.Yaw
	p.Pitch = c.Pitch
	if c.Attachment != nil {
		att := *c.Attachment
		p.Attached = &att
	} else {
		p.Attached = nil
	}
	p.Version++
	delete(s.held, c.PieceID)
	delete(s.live, c.PieceID)
	if p.SnapTarget {
		s.version++
	}
	return true
}

// Piece returns a copy of a confirmed piece.
func (s *State) Piece(pieceID string) (piece.Piece, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pieces[pieceID]
	if !ok {
		return piece.Piece{}, false
	}
	return p.Clone(), true
}

// LiveTransformOf returns the speculative pose of a held piece, if any.
func (s *State) LiveTransformOf(pieceID string) (LiveTransform, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.live[pieceID]
	return t, ok
}

// Pieces returns copies of every confirmed piece, with speculative poses
// overlaid for held pieces so renderers track drags in flight.
func (s *State) Pieces() []piece.Piece {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]piece.Piece, 0, len(s.pieces))
	for _, p := range s.pieces {
		c := p.Clone()
		if t, ok := s.live[p.ID]; ok {
			c.Position = t.Position
			c.Yaw = t.Yaw
			c.Pitch = t.Pitch
		}
		out = append(out, c)
	}
	return out
}

// Version reports the snap-geometry version.
func (s *State) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// SceneInput assembles the current snap geometry for a registry rebuild.
// Held pieces contribute their confirmed pose; speculative transforms never
// become build surfaces.
func (s *State) SceneInput() scene.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := scene.Input{
		Version: s.version,
		Ground:  s.ground,
		Roofs:   s.roof.Faces(),
	}
	in.Walls = make([]scene.WallSegment, 0, len(s.walls))
	for _, w := range s.walls {
		in.Walls = append(in.Walls, w)
	}
	for id, spec := range s.surfaces {
		p, ok := s.pieces[id]
		if !ok {
			continue
		}
		quad := scene.PieceQuad(p.Position, p.Yaw, p.Pitch, spec.Width, spec.Height)
		in.Pieces = append(in.Pieces, scene.PieceSurface{
			PieceID: id,
			Kind:    spec.Kind,
			Quads:   []geom.Quad{quad},
		})
	}
	return in
}
