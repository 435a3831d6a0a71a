package interact

import (
	"context"
	"sync"

	"playhouse/engine/internal/geom"
	"playhouse/engine/internal/input"
	"playhouse/engine/internal/piece"
	"playhouse/engine/internal/scene"
	"playhouse/engine/internal/session"
	"playhouse/engine/internal/snap"
	"playhouse/engine/internal/telemetry"
	"playhouse/engine/logging"
	"playhouse/engine/logging/placement"
)

const (
	commandsMetricKey       = "interact_commands_total"
	grabDeniedMetricKey     = "interact_grab_denied_total"
	rotateRejectedMetricKey = "interact_rotate_rejected_total"
	commitsMetricKey        = "interact_commits_total"
	commitRefusedMetricKey  = "interact_commit_refused_total"
	stalePieceMetricKey     = "interact_stale_piece_total"
	registryVersionMetric   = "interact_registry_version"
)

const defaultBufferCapacity = 256

// Phase is the controller's drag state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseDragging Phase = "dragging"
)

// SnapInfo is a read-only projection of the current drag for rendering the
// ghost piece and surface highlight.
type SnapInfo struct {
	Dragging  bool              `json:"dragging"`
	PieceID   string            `json:"pieceId,omitempty"`
	Snapped   bool              `json:"snapped"`
	SurfaceID string            `json:"surfaceId,omitempty"`
	Kind      scene.SurfaceKind `json:"kind,omitempty"`
	Position  geom.Vec3         `json:"position"`
	Yaw       float64           `json:"yaw"`
	Pitch     float64           `json:"pitch"`
}

// Config seeds a controller for one builder.
type Config struct {
	UserID         string
	State          *session.State
	Tuning         snap.Tuning
	Camera         scene.Camera
	BufferCapacity int
	Publisher      logging.Publisher
	Logger         telemetry.Logger
	Metrics        telemetry.Metrics
}

// dragState is everything a drag accumulates between ticks. result always
// holds the last valid pose, initialized from the confirmed piece at grab
// time, so a commit is well-defined even before the first pointer move.
type dragState struct {
	pieceID      string
	category     piece.Category
	baseVersion  uint64
	pointer      scene.Pointer
	hasPointer   bool
	yaw          float64
	targetHeight float64
	preferKind   scene.SurfaceKind
	preferID     string
	result       snap.Result
}

// Controller drives one builder's placement session. Listener callbacks push
// commands into the buffer; Tick drains them in order once per frame, resolves
// placement against the current surface registry, and streams speculative
// transforms to the session authority. Confirmed state changes only on commit.
type Controller struct {
	userID string
	state  *session.State
	tuning snap.Tuning
	buffer *input.CommandBuffer

	mu       sync.Mutex
	camera   scene.Camera
	registry *scene.Registry
	resolver *snap.Resolver
	tick     uint64
	phase    Phase
	drag     dragState

	publisher logging.Publisher
	logger    telemetry.Logger
	metrics   telemetry.Metrics
}

func NewController(cfg Config) *Controller {
	capacity := cfg.BufferCapacity
	if capacity <= 0 {
		capacity = defaultBufferCapacity
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	c := &Controller{
		userID:    cfg.UserID,
		state:     cfg.State,
		tuning:    cfg.Tuning.Normalized(),
		buffer:    input.NewCommandBuffer(capacity, cfg.Metrics),
		camera:    cfg.Camera,
		phase:     PhaseIdle,
		publisher: publisher,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
	c.refreshLocked()
	return c
}

// Commands exposes the staging buffer for listener callbacks.
func (c *Controller) Commands() *input.CommandBuffer {
	if c == nil {
		return nil
	}
	return c.buffer
}

// SetCamera updates the viewpoint used to unproject pointer positions.
func (c *Controller) SetCamera(camera scene.Camera) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.camera = camera
	c.mu.Unlock()
}

// Phase reports whether a drag is in progress.
func (c *Controller) Phase() Phase {
	if c == nil {
		return PhaseIdle
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// SnapInfo returns the current drag pose for rendering. The zero value is
// returned while idle.
func (c *Controller) SnapInfo() SnapInfo {
	if c == nil {
		return SnapInfo{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseDragging {
		return SnapInfo{}
	}
	info := SnapInfo{
		Dragging: true,
		PieceID:  c.drag.pieceID,
		Snapped:  c.drag.result.Snapped,
		Position: c.drag.result.Position,
		Yaw:      c.drag.result.Yaw,
		Pitch:    c.drag.result.Pitch,
	}
	if c.drag.result.Snapped {
		info.SurfaceID = c.drag.result.SurfaceID
		info.Kind = c.drag.result.Kind
	}
	return info
}

// Tick drains the command buffer and applies every staged command in order.
// Consecutive pointer moves coalesce so placement resolves at most once per
// run of moves; commands between moves still observe the latest pointer.
func (c *Controller) Tick(ctx context.Context) {
	if c == nil {
		return
	}
	commands := c.buffer.Drain()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	c.refreshLocked()
	c.checkHeldPieceLocked(ctx)

	var pending scene.Pointer
	pendingMove := false
	for _, cmd := range commands {
		c.addMetric(commandsMetricKey, 1)
		if cmd.Type == input.CommandPointerMove {
			if cmd.Pointer == nil {
				continue
			}
			pending = cmd.Pointer.Pointer
			pendingMove = true
			continue
		}
		if pendingMove {
			c.applyMoveLocked(ctx, pending)
			pendingMove = false
		}
		c.handleLocked(ctx, cmd)
	}
	if pendingMove {
		c.applyMoveLocked(ctx, pending)
	}
}

// refreshLocked rebuilds the surface registry and resolver when the session's
// snap geometry moved since the last snapshot.
func (c *Controller) refreshLocked() {
	version := c.state.Version()
	if c.registry != nil && c.registry.Version() == version {
		return
	}
	c.registry = scene.NewRegistry(c.state.SceneInput())
	c.resolver = snap.NewResolver(c.tuning, c.registry)
	c.storeMetric(registryVersionMetric, c.registry.Version())
	c.logf("surface registry rebuilt at version %d", c.registry.Version())
}

// checkHeldPieceLocked verifies the drag target every tick, not just when
// pointer input arrives: a piece deleted or reassigned out from under the
// drag forces the controller idle without a commit attempt.
func (c *Controller) checkHeldPieceLocked(ctx context.Context) {
	if c.phase != PhaseDragging {
		return
	}
	if _, ok := c.state.Piece(c.drag.pieceID); !ok {
		c.forceIdleLocked(ctx, c.drag.pieceID, "piece deleted mid-drag")
		return
	}
	if holder, held := c.state.HeldBy(c.drag.pieceID); !held || holder != c.userID {
		c.forceIdleLocked(ctx, c.drag.pieceID, "hold lost mid-drag")
	}
}

func (c *Controller) handleLocked(ctx context.Context, cmd input.Command) {
	switch cmd.Type {
	case input.CommandPointerDown:
		if cmd.Pointer == nil {
			return
		}
		c.pointerDownLocked(ctx, cmd.Pointer.PieceID)
	case input.CommandPointerUp:
		c.commitLocked(ctx)
	case input.CommandRotate:
		if cmd.Rotate != nil {
			c.rotateLocked(ctx, cmd.Rotate.Delta)
		}
	case input.CommandHeightAdjust:
		if cmd.Height != nil {
			c.adjustHeightLocked(ctx, cmd.Height.Delta)
		}
	case input.CommandCancel:
		// Cancel never reverts to the drag origin: the piece is committed
		// wherever it currently sits.
		c.commitLocked(ctx)
	}
}

func (c *Controller) pointerDownLocked(ctx context.Context, pieceID string) {
	if c.phase == PhaseDragging {
		// Clicking the held piece places it; clicks elsewhere are noise
		// until the drag ends.
		if pieceID == c.drag.pieceID {
			c.commitLocked(ctx)
		}
		return
	}
	if pieceID == "" {
		return
	}
	if !c.state.GrabPiece(pieceID, c.userID) {
		c.addMetric(grabDeniedMetricKey, 1)
		placement.GrabDenied(ctx, c.publisher, c.tick, c.actorRef(), pieceID)
		return
	}
	p, ok := c.state.Piece(pieceID)
	if !ok {
		c.forceIdleLocked(ctx, pieceID, "piece vanished during grab")
		return
	}

	drag := dragState{
		pieceID:     p.ID,
		category:    p.Category,
		baseVersion: p.Version,
		yaw:         p.Yaw,
		result: snap.Result{
			Snapped:  p.Attached != nil,
			Position: p.Position,
			Yaw:      p.Yaw,
			Pitch:    p.Pitch,
		},
	}
	if p.Attached != nil {
		normal := p.Attached.Normal
		drag.result.Normal = &normal
		drag.result.SurfaceID = p.Attached.SurfaceID
		drag.result.Kind = scene.SurfaceKind(p.Attached.Kind)
		drag.preferKind = drag.result.Kind
		drag.preferID = p.Attached.SurfaceID
	}
	c.drag = drag
	c.phase = PhaseDragging
}

func (c *Controller) applyMoveLocked(ctx context.Context, pointer scene.Pointer) {
	if c.phase != PhaseDragging {
		return
	}
	if _, ok := c.state.Piece(c.drag.pieceID); !ok {
		c.forceIdleLocked(ctx, c.drag.pieceID, "piece deleted mid-drag")
		return
	}
	c.drag.pointer = pointer
	c.drag.hasPointer = true
	c.resolveLocked(ctx)
}

// resolveLocked runs placement for the current pointer and streams the pose as
// a speculative transform. The held piece is excluded from the surface query
// so it cannot snap to itself.
func (c *Controller) resolveLocked(ctx context.Context) {
	if !c.drag.hasPointer {
		return
	}
	hit, ok := c.registry.Query(c.drag.pointer, c.camera, c.drag.pieceID)
	if !ok {
		// Pointer off every surface: hold the last valid pose.
		return
	}

	opts := snap.Options{
		PreferKind:      c.drag.preferKind,
		PreferSurfaceID: c.drag.preferID,
		TargetHeight:    c.drag.targetHeight,
	}
	result := c.resolver.Resolve(c.drag.category, hit.Point, c.drag.yaw, &hit, opts)
	if !consistent(result) {
		placement.InvariantViolation(ctx, c.publisher, c.tick, c.drag.pieceID,
			"resolver returned a snapped pose without surface identity")
		return
	}
	if c.drag.category.RequiresAttachment() && !result.Snapped {
		// No free-standing form: stay at the last valid pose until the
		// pointer finds a compatible wall again.
		return
	}

	c.drag.result = result
	if result.Snapped {
		c.drag.preferKind = result.Kind
		c.drag.preferID = result.SurfaceID
	}
	c.pushLiveLocked(ctx)
}

func (c *Controller) rotateLocked(ctx context.Context, delta float64) {
	if c.phase != PhaseDragging {
		return
	}
	if c.drag.result.Snapped {
		// Orientation is owned by the surface while snapped.
		c.addMetric(rotateRejectedMetricKey, 1)
		return
	}
	c.drag.yaw = geom.NormalizeAngle(c.drag.yaw + delta)
	if c.drag.hasPointer {
		c.resolveLocked(ctx)
		return
	}
	c.drag.result.Yaw = c.drag.yaw
	c.pushLiveLocked(ctx)
}

func (c *Controller) adjustHeightLocked(ctx context.Context, delta float64) {
	if c.phase != PhaseDragging || !c.drag.category.HeightAdjustable() {
		return
	}
	base := c.drag.targetHeight
	if base == 0 {
		base = c.drag.result.Position.Y
	}
	c.drag.targetHeight = geom.Clamp(base+delta, c.tuning.MinHeight, c.tuning.MaxHeight)
	if c.drag.hasPointer {
		c.resolveLocked(ctx)
	}
}

// commitLocked finishes the drag: the last valid pose becomes the confirmed
// state and the drag ends immediately, whether or not the authority accepts
// the commit.
func (c *Controller) commitLocked(ctx context.Context) {
	if c.phase != PhaseDragging {
		return
	}
	drag := c.drag
	c.phase = PhaseIdle
	c.drag = dragState{}

	commit := session.Commit{
		PieceID:     drag.pieceID,
		UserID:      c.userID,
		Position:    drag.result.Position,
		Yaw:         drag.result.Yaw,
		Pitch:       drag.result.Pitch,
		BaseVersion: drag.baseVersion,
	}
	if drag.result.Snapped && drag.result.Normal != nil {
		commit.Attachment = &piece.Attachment{
			SurfaceID: drag.result.SurfaceID,
			Kind:      string(drag.result.Kind),
			Normal:    *drag.result.Normal,
		}
	}
	if !c.state.ReleasePiece(commit) {
		c.addMetric(commitRefusedMetricKey, 1)
		placement.StalePiece(ctx, c.publisher, c.tick, c.actorRef(), drag.pieceID, "commit refused")
		return
	}
	c.addMetric(commitsMetricKey, 1)
	placement.Commit(ctx, c.publisher, c.tick, c.actorRef(), drag.pieceID, placement.CommitPayload{
		Snapped:   drag.result.Snapped,
		SurfaceID: drag.result.SurfaceID,
		Kind:      string(drag.result.Kind),
		X:         drag.result.Position.X,
		Y:         drag.result.Position.Y,
		Z:         drag.result.Position.Z,
		Yaw:       drag.result.Yaw,
	})
}

// forceIdleLocked abandons the drag without committing anything.
func (c *Controller) forceIdleLocked(ctx context.Context, pieceID, reason string) {
	c.phase = PhaseIdle
	c.drag = dragState{}
	c.addMetric(stalePieceMetricKey, 1)
	placement.StalePiece(ctx, c.publisher, c.tick, c.actorRef(), pieceID, reason)
}

func (c *Controller) pushLiveLocked(ctx context.Context) {
	ok := c.state.UpdateLiveTransform(c.drag.pieceID, c.userID, session.LiveTransform{
		Position: c.drag.result.Position,
		Yaw:      c.drag.result.Yaw,
		Pitch:    c.drag.result.Pitch,
	})
	if !ok {
		c.forceIdleLocked(ctx, c.drag.pieceID, "hold lost mid-drag")
	}
}

func (c *Controller) actorRef() logging.EntityRef {
	return logging.EntityRef{ID: c.userID, Kind: logging.EntityKindBuilder}
}

func (c *Controller) logf(format string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}

func (c *Controller) addMetric(key string, delta uint64) {
	if c.metrics == nil {
		return
	}
	c.metrics.Add(key, delta)
}

func (c *Controller) storeMetric(key string, value uint64) {
	if c.metrics == nil {
		return
	}
	c.metrics.Store(key, value)
}

// consistent checks the pose a resolver hands back: a snapped result carries a
// normal and a surface identity, an unsnapped one carries neither.
func consistent(r snap.Result) bool {
	if r.Snapped {
		return r.Normal != nil && r.SurfaceID != ""
	}
	return r.Normal == nil && r.SurfaceID == ""
}
