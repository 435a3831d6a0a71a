package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"playhouse/engine/catalog"
	"playhouse/engine/internal/geom"
	"playhouse/engine/internal/input"
	"playhouse/engine/internal/interact"
	"playhouse/engine/internal/piece"
	"playhouse/engine/internal/scene"
	"playhouse/engine/internal/session"
	"playhouse/engine/internal/snap"
	"playhouse/engine/internal/telemetry"
	"playhouse/engine/logging"
	"playhouse/engine/logging/lifecycle"
	"playhouse/engine/logging/network"
)

const (
	writeWait              = 10 * time.Second
	defaultTickInterval    = time.Second / 30
	defaultDisconnectAfter = 60 * time.Second
	heartbeatSkew          = 5 * time.Second
)

// Conn is the subset of *websocket.Conn the hub writes to. Tests substitute
// in-memory connections.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Config seeds a hub. Zero values fall back to sane defaults.
type Config struct {
	GroundSize      float64
	Roof            session.RoofConfig
	Walls           []scene.WallSegment
	Tuning          snap.Tuning
	Catalog         *catalog.Resolver
	TickInterval    time.Duration
	DisconnectAfter time.Duration
	Publisher       logging.Publisher
	Logger          telemetry.Logger
	Metrics         telemetry.Metrics
}

// Hub owns the shared build state, one interaction controller per connected
// builder, and the subscriber set receiving state broadcasts.
type Hub struct {
	state           *session.State
	catalog         *catalog.Resolver
	tuning          snap.Tuning
	tickInterval    time.Duration
	disconnectAfter time.Duration
	publisher       logging.Publisher
	logger          telemetry.Logger
	metrics         telemetry.Metrics

	mu          sync.Mutex
	builders    map[string]*builderState
	subscribers map[string]*Subscriber
	nextID      atomic.Uint64
	tick        atomic.Uint64
}

type builderState struct {
	id            string
	controller    *interact.Controller
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

// Subscriber serializes writes to one builder's connection. The broadcast
// loop and the read-loop replies share it.
type Subscriber struct {
	conn Conn
	mu   sync.Mutex
}

func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// JoinResponse is what a new builder receives: their identity, the current
// build, and the piece catalog for the tray.
type JoinResponse struct {
	ID      string                   `json:"id"`
	Pieces  []piece.Piece            `json:"pieces"`
	Catalog map[string]catalog.Entry `json:"catalog,omitempty"`
}

type stateMessage struct {
	Type       string                       `json:"type"`
	Pieces     []piece.Piece                `json:"pieces"`
	Drags      map[string]interact.SnapInfo `json:"drags,omitempty"`
	ServerTime int64                        `json:"serverTime"`
}

// DiagnosticsBuilder exposes heartbeat data for the diagnostics endpoint.
type DiagnosticsBuilder struct {
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rtt"`
	Dragging      bool   `json:"dragging"`
}

func NewHub(cfg Config) *Hub {
	size := cfg.GroundSize
	if size <= 0 {
		size = 50
	}
	ground := geom.Quad{
		Origin: geom.Vec3{X: -size / 2, Z: -size / 2},
		U:      geom.Vec3{X: size},
		V:      geom.Vec3{Z: size},
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}
	disconnectAfter := cfg.DisconnectAfter
	if disconnectAfter <= 0 {
		disconnectAfter = defaultDisconnectAfter
	}
	return &Hub{
		state: session.NewState(session.Config{
			Ground: ground,
			Roof:   cfg.Roof,
			Walls:  cfg.Walls,
		}),
		catalog:         cfg.Catalog,
		tuning:          cfg.Tuning.Normalized(),
		tickInterval:    tickInterval,
		disconnectAfter: disconnectAfter,
		publisher:       publisher,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		builders:        make(map[string]*builderState),
		subscribers:     make(map[string]*Subscriber),
	}
}

// State exposes the session authority, shared with spawn tooling and tests.
func (h *Hub) State() *session.State {
	if h == nil {
		return nil
	}
	return h.state
}

// Join registers a new builder with their own interaction controller and
// returns the current build snapshot.
func (h *Hub) Join() JoinResponse {
	id := fmt.Sprintf("builder-%d", h.nextID.Add(1))
	controller := interact.NewController(interact.Config{
		UserID:    id,
		State:     h.state,
		Tuning:    h.tuning,
		Publisher: h.publisher,
		Logger:    h.logger,
		Metrics:   h.metrics,
	})

	h.mu.Lock()
	h.builders[id] = &builderState{
		id:            id,
		controller:    controller,
		lastHeartbeat: time.Now(),
	}
	h.mu.Unlock()

	resp := JoinResponse{ID: id, Pieces: h.state.Pieces()}
	if h.catalog != nil {
		resp.Catalog = h.catalog.Entries()
	}
	lifecycle.BuilderJoined(context.Background(), h.publisher, h.tick.Load(), builderRef(id),
		lifecycle.BuilderJoinedPayload{Pieces: len(resp.Pieces)}, nil)
	return resp
}

// Subscribe associates a connection with an existing builder. An older
// connection for the same builder is replaced. The returned Subscriber is
// the only safe way to write to the connection once subscribed.
func (h *Hub) Subscribe(userID string, conn Conn) (*Subscriber, JoinResponse, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	builder, ok := h.builders[userID]
	if !ok {
		return nil, JoinResponse{}, false
	}
	builder.lastHeartbeat = time.Now()

	if existing, ok := h.subscribers[userID]; ok {
		existing.conn.Close()
	}
	sub := &Subscriber{conn: conn}
	h.subscribers[userID] = sub

	resp := JoinResponse{ID: userID, Pieces: h.state.Pieces()}
	if h.catalog != nil {
		resp.Catalog = h.catalog.Entries()
	}
	return sub, resp, true
}

// Disconnect removes a builder. An in-flight drag is committed in place so
// the piece is never left locked.
func (h *Hub) Disconnect(userID string) {
	h.mu.Lock()
	builder, builderOK := h.builders[userID]
	if builderOK {
		delete(h.builders, userID)
	}
	sub, subOK := h.subscribers[userID]
	if subOK {
		delete(h.subscribers, userID)
	}
	h.mu.Unlock()

	if subOK {
		sub.conn.Close()
	}
	if builderOK {
		h.settleAbandonedDrag(builder)
		lifecycle.BuilderDisconnected(context.Background(), h.publisher, h.tick.Load(), builderRef(userID),
			lifecycle.BuilderDisconnectedPayload{Reason: "connection closed"}, nil)
	}
}

func builderRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindBuilder}
}

// settleAbandonedDrag commits the drag of a departing builder in place.
func (h *Hub) settleAbandonedDrag(builder *builderState) {
	if builder.controller.Phase() != interact.PhaseDragging {
		return
	}
	builder.controller.Commands().Push(input.Command{
		UserID:   builder.id,
		Type:     input.CommandCancel,
		IssuedAt: time.Now(),
	})
	builder.controller.Tick(context.Background())
}

// PushCommand stages an input command for the builder's next tick.
func (h *Hub) PushCommand(userID string, cmd input.Command) bool {
	h.mu.Lock()
	builder, ok := h.builders[userID]
	h.mu.Unlock()
	if !ok {
		return false
	}
	cmd.UserID = userID
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now()
	}
	return builder.controller.Commands().Push(cmd)
}

// SetCamera updates the viewpoint pointer rays are cast from.
func (h *Hub) SetCamera(userID string, camera scene.Camera) bool {
	h.mu.Lock()
	builder, ok := h.builders[userID]
	h.mu.Unlock()
	if !ok {
		return false
	}
	builder.controller.SetCamera(camera)
	return true
}

// SpawnPiece creates a piece from a catalog entry at the given spot.
func (h *Hub) SpawnPiece(userID, catalogID string, position geom.Vec3, yaw float64) (piece.Piece, error) {
	if h.catalog == nil {
		return piece.Piece{}, fmt.Errorf("hub: no catalog configured")
	}
	entry, ok := h.catalog.Resolve(catalogID)
	if !ok {
		return piece.Piece{}, fmt.Errorf("hub: unknown catalog entry %q", catalogID)
	}
	spec := session.SpawnSpec{
		CatalogID: entry.ID,
		Category:  entry.Category,
		Position:  position,
		Yaw:       yaw,
	}
	if entry.Surface != nil {
		spec.Surface = &session.SnapSurfaceSpec{
			Kind:   entry.Surface.Kind,
			Width:  entry.Surface.Width,
			Height: entry.Surface.Height,
		}
	}
	spawned := h.state.SpawnPiece(spec)
	h.logf("%s spawned %s as %s", userID, catalogID, spawned.ID)
	return spawned, nil
}

// DeletePiece removes a piece. A builder holding it is forced idle on their
// next pointer input.
func (h *Hub) DeletePiece(pieceID string) bool {
	return h.state.DeletePiece(pieceID)
}

// UpdateHeartbeat records the most recent heartbeat and RTT for a builder.
func (h *Hub) UpdateHeartbeat(userID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	builder, ok := h.builders[userID]
	if !ok {
		return 0, false
	}
	builder.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		// Only timestamps within the skew window count: a stale or
		// far-future clientSent would record a meaningless RTT.
		age := receivedAt.Sub(clientTime)
		if age >= -heartbeatSkew && age <= heartbeatSkew {
			if age < 0 {
				age = 0
			}
			builder.lastRTT = age
		}
	}
	network.Heartbeat(context.Background(), h.publisher, h.tick.Load(), builderRef(userID),
		network.HeartbeatPayload{RTTMillis: builder.lastRTT.Milliseconds()}, nil)
	return builder.lastRTT, true
}

// RunSimulation drives the fixed-rate tick loop until the stop channel closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			h.Advance(context.Background(), now)
			h.broadcastState()
		}
	}
}

// Advance runs one tick: stale builders are pruned, then every controller
// drains its command buffer against the shared state.
func (h *Hub) Advance(ctx context.Context, now time.Time) {
	h.mu.Lock()
	var stale []*builderState
	var staleSilent []time.Duration
	var toClose []*Subscriber
	active := make([]*builderState, 0, len(h.builders))
	for id, builder := range h.builders {
		if silent := now.Sub(builder.lastHeartbeat); silent > h.disconnectAfter {
			stale = append(stale, builder)
			staleSilent = append(staleSilent, silent)
			delete(h.builders, id)
			if sub, ok := h.subscribers[id]; ok {
				toClose = append(toClose, sub)
				delete(h.subscribers, id)
			}
			h.logf("disconnecting %s due to heartbeat timeout", id)
			continue
		}
		active = append(active, builder)
	}
	h.mu.Unlock()

	for _, sub := range toClose {
		sub.conn.Close()
	}
	for i, builder := range stale {
		h.settleAbandonedDrag(builder)
		network.HeartbeatTimeout(ctx, h.publisher, h.tick.Load(), builderRef(builder.id),
			network.TimeoutPayload{SilentMillis: staleSilent[i].Milliseconds()}, nil)
		lifecycle.BuilderDisconnected(ctx, h.publisher, h.tick.Load(), builderRef(builder.id),
			lifecycle.BuilderDisconnectedPayload{Reason: "heartbeat timeout"}, nil)
	}
	for _, builder := range active {
		builder.controller.Tick(ctx)
	}
	h.tick.Add(1)
}

// Tick reports how many simulation steps have run.
func (h *Hub) Tick() uint64 {
	return h.tick.Load()
}

// Snapshot returns the broadcast view: confirmed pieces with live drag
// overlays, plus the in-flight drag poses keyed by builder.
func (h *Hub) Snapshot() ([]piece.Piece, map[string]interact.SnapInfo) {
	pieces := h.state.Pieces()

	h.mu.Lock()
	defer h.mu.Unlock()
	var drags map[string]interact.SnapInfo
	for id, builder := range h.builders {
		info := builder.controller.SnapInfo()
		if !info.Dragging {
			continue
		}
		if drags == nil {
			drags = make(map[string]interact.SnapInfo)
		}
		drags[id] = info
	}
	return pieces, drags
}

// DiagnosticsSnapshot exposes heartbeat data for the diagnostics endpoint.
func (h *Hub) DiagnosticsSnapshot() []DiagnosticsBuilder {
	h.mu.Lock()
	defer h.mu.Unlock()

	builders := make([]DiagnosticsBuilder, 0, len(h.builders))
	for _, builder := range h.builders {
		builders = append(builders, DiagnosticsBuilder{
			ID:            builder.id,
			LastHeartbeat: builder.lastHeartbeat.UnixMilli(),
			RTTMillis:     builder.lastRTT.Milliseconds(),
			Dragging:      builder.controller.Phase() == interact.PhaseDragging,
		})
	}
	return builders
}

// broadcastState sends the latest build snapshot to every subscriber.
func (h *Hub) broadcastState() {
	pieces, drags := h.Snapshot()
	msg := stateMessage{
		Type:       "state",
		Pieces:     pieces,
		Drags:      drags,
		ServerTime: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logf("failed to marshal state message: %v", err)
		return
	}

	h.mu.Lock()
	subs := make(map[string]*Subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logf("failed to send update to %s: %v", id, err)
			h.Disconnect(id)
		}
	}
}

func (h *Hub) logf(format string, args ...any) {
	if h.logger == nil {
		return
	}
	h.logger.Printf(format, args...)
}
