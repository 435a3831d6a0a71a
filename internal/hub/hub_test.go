package hub

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"playhouse/engine/catalog"
	"playhouse/engine/internal/geom"
	"playhouse/engine/internal/input"
	"playhouse/engine/internal/scene"
)

type memoryConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

func (c *memoryConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := append([]byte(nil), data...)
	c.messages = append(c.messages, copied)
	return nil
}

func (c *memoryConn) SetWriteDeadline(time.Time) error { return nil }

func (c *memoryConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *memoryConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func testCatalog(t *testing.T) *catalog.Resolver {
	t.Helper()
	data := `[
		{"id": "wall-panel", "category": "structural", "surface": {"kind": "wall", "width": 4, "height": 3}},
		{"id": "lamp", "category": "decorative-wall"}
	]`
	path := filepath.Join(t.TempDir(), "definitions.json")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	resolver, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return resolver
}

func testHub(t *testing.T) *Hub {
	t.Helper()
	return NewHub(Config{
		GroundSize: 50,
		Walls: []scene.WallSegment{
			{ID: "wall-1", A: geom.Vec3{X: -2}, B: geom.Vec3{X: 2}, Height: 3, Thickness: 0.2},
		},
		Catalog: testCatalog(t),
	})
}

func TestJoinAssignsDistinctBuilders(t *testing.T) {
	h := testHub(t)
	first := h.Join()
	second := h.Join()
	if first.ID == second.ID {
		t.Fatalf("expected distinct builder ids, got %q twice", first.ID)
	}
	if !strings.HasPrefix(first.ID, "builder-") {
		t.Fatalf("expected builder id prefix, got %q", first.ID)
	}
	if len(first.Catalog) != 2 {
		t.Fatalf("expected the catalog in the join response, got %d entries", len(first.Catalog))
	}
}

func TestSubscribeUnknownBuilder(t *testing.T) {
	h := testHub(t)
	if _, _, ok := h.Subscribe("builder-404", &memoryConn{}); ok {
		t.Fatalf("expected subscribe to fail for an unknown builder")
	}
}

func TestSubscribeReplacesExistingConnection(t *testing.T) {
	h := testHub(t)
	joined := h.Join()
	first := &memoryConn{}
	if _, _, ok := h.Subscribe(joined.ID, first); !ok {
		t.Fatalf("expected first subscribe to succeed")
	}
	second := &memoryConn{}
	if _, _, ok := h.Subscribe(joined.ID, second); !ok {
		t.Fatalf("expected second subscribe to succeed")
	}
	if !first.isClosed() {
		t.Fatalf("expected the replaced connection to be closed")
	}
}

func TestSubscriberWritesToConnection(t *testing.T) {
	h := testHub(t)
	joined := h.Join()
	conn := &memoryConn{}
	sub, _, ok := h.Subscribe(joined.ID, conn)
	if !ok {
		t.Fatalf("subscribe failed")
	}
	if err := sub.WriteMessage(1, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.messages) != 1 {
		t.Fatalf("expected 1 message on the connection, got %d", len(conn.messages))
	}
}

func TestSpawnAndDragThroughHub(t *testing.T) {
	h := testHub(t)
	joined := h.Join()
	h.SetCamera(joined.ID, scene.Camera{
		Position: geom.Vec3{Y: 1.5, Z: 5},
		Forward:  geom.Vec3{Z: -1},
		Up:       geom.Vec3{Y: 1},
	})

	spawned, err := h.SpawnPiece(joined.ID, "lamp", geom.Vec3{Z: 3}, 0)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	if !h.PushCommand(joined.ID, input.Command{
		Type:    input.CommandPointerDown,
		Pointer: &input.PointerCommand{PieceID: spawned.ID},
	}) {
		t.Fatalf("expected pointer down to be accepted")
	}
	h.PushCommand(joined.ID, input.Command{
		Type:    input.CommandPointerMove,
		Pointer: &input.PointerCommand{},
	})
	h.Advance(context.Background(), time.Now())

	_, drags := h.Snapshot()
	info, ok := drags[joined.ID]
	if !ok || !info.Snapped || info.SurfaceID != "wall-1" {
		t.Fatalf("expected an in-flight drag snapped to wall-1, got %+v", drags)
	}

	h.PushCommand(joined.ID, input.Command{Type: input.CommandPointerUp})
	h.Advance(context.Background(), time.Now())

	confirmed, ok := h.State().Piece(spawned.ID)
	if !ok || confirmed.Attached == nil || confirmed.Attached.SurfaceID != "wall-1" {
		t.Fatalf("expected the commit to land on wall-1, got %+v", confirmed)
	}
}

func TestSpawnUnknownCatalogEntry(t *testing.T) {
	h := testHub(t)
	joined := h.Join()
	if _, err := h.SpawnPiece(joined.ID, "jacuzzi", geom.Vec3{}, 0); err == nil {
		t.Fatalf("expected an error for an unknown catalog entry")
	}
}

func TestDisconnectSettlesAbandonedDrag(t *testing.T) {
	h := testHub(t)
	joined := h.Join()
	spawned, err := h.SpawnPiece(joined.ID, "lamp", geom.Vec3{Z: 3}, 0)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	h.PushCommand(joined.ID, input.Command{
		Type:    input.CommandPointerDown,
		Pointer: &input.PointerCommand{PieceID: spawned.ID},
	})
	h.Advance(context.Background(), time.Now())

	h.Disconnect(joined.ID)

	if _, held := h.State().HeldBy(spawned.ID); held {
		t.Fatalf("expected the abandoned hold to be released")
	}
}

func TestHeartbeatTimeoutPrunesBuilder(t *testing.T) {
	h := NewHub(Config{
		GroundSize:      50,
		Catalog:         testCatalog(t),
		DisconnectAfter: 10 * time.Millisecond,
	})
	joined := h.Join()
	conn := &memoryConn{}
	if _, _, ok := h.Subscribe(joined.ID, conn); !ok {
		t.Fatalf("subscribe failed")
	}

	h.Advance(context.Background(), time.Now().Add(time.Second))

	if !conn.isClosed() {
		t.Fatalf("expected the stale subscriber's connection to be closed")
	}
	if _, ok := h.UpdateHeartbeat(joined.ID, time.Now(), 0); ok {
		t.Fatalf("expected the pruned builder to be gone")
	}
}

func TestBroadcastReachesSubscribers(t *testing.T) {
	h := testHub(t)
	joined := h.Join()
	conn := &memoryConn{}
	if _, _, ok := h.Subscribe(joined.ID, conn); !ok {
		t.Fatalf("subscribe failed")
	}
	if _, err := h.SpawnPiece(joined.ID, "lamp", geom.Vec3{X: 1}, 0); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	h.broadcastState()

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.messages) != 1 {
		t.Fatalf("expected one broadcast message, got %d", len(conn.messages))
	}
	var msg stateMessage
	if err := json.Unmarshal(conn.messages[0], &msg); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if msg.Type != "state" || len(msg.Pieces) != 1 {
		t.Fatalf("expected a state message with one piece, got %+v", msg)
	}
}

func TestUpdateHeartbeatTracksRTT(t *testing.T) {
	h := testHub(t)
	joined := h.Join()

	now := time.Now()
	rtt, ok := h.UpdateHeartbeat(joined.ID, now, now.Add(-40*time.Millisecond).UnixMilli())
	if !ok {
		t.Fatalf("expected heartbeat to be recorded")
	}
	if rtt <= 0 || rtt > time.Second {
		t.Fatalf("expected a plausible rtt, got %v", rtt)
	}
}

func TestUpdateHeartbeatIgnoresStaleTimestamp(t *testing.T) {
	h := testHub(t)
	joined := h.Join()

	now := time.Now()
	first, ok := h.UpdateHeartbeat(joined.ID, now, now.Add(-40*time.Millisecond).UnixMilli())
	if !ok {
		t.Fatalf("expected heartbeat to be recorded")
	}

	// An hour-old clientSent keeps the last measured RTT instead of
	// recording an hour of latency.
	stale, ok := h.UpdateHeartbeat(joined.ID, now.Add(time.Second), now.Add(-time.Hour).UnixMilli())
	if !ok {
		t.Fatalf("expected heartbeat to be recorded")
	}
	if stale != first {
		t.Fatalf("expected stale timestamp to leave rtt at %v, got %v", first, stale)
	}

	// Clock skew putting clientSent slightly in the future clamps to zero.
	skewed, ok := h.UpdateHeartbeat(joined.ID, now.Add(2*time.Second), now.Add(2*time.Second+time.Millisecond).UnixMilli())
	if !ok {
		t.Fatalf("expected heartbeat to be recorded")
	}
	if skewed != 0 {
		t.Fatalf("expected skewed timestamp to clamp rtt to zero, got %v", skewed)
	}
}
