package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"playhouse/engine/catalog"
	"playhouse/engine/internal/geom"
	enginehub "playhouse/engine/internal/hub"
	"playhouse/engine/internal/scene"
	"playhouse/engine/internal/snap"
)

func testCatalog(t *testing.T) *catalog.Resolver {
	t.Helper()
	data := `[
		{"id": "lamp", "category": "decorative-wall"},
		{"id": "table", "category": "unattachable"}
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

func testHub(t *testing.T) *enginehub.Hub {
	t.Helper()
	return enginehub.NewHub(enginehub.Config{
		GroundSize: 50,
		Walls: []scene.WallSegment{
			{ID: "wall-1", A: geom.Vec3{X: -2}, B: geom.Vec3{X: 2}, Height: 3, Thickness: 0.2},
		},
		Tuning:  snap.DefaultTuning(),
		Catalog: testCatalog(t),
	})
}

func testServer(t *testing.T, hub *enginehub.Hub) *httptest.Server {
	t.Helper()
	handler := NewHandler(hub, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)
	return srv
}

func websocketURL(t *testing.T, base, id string) string {
	t.Helper()
	u, err := url.Parse(base)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set("id", id)
	u.RawQuery = q.Encode()
	return u.String()
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL, id), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

func send(t *testing.T, conn *websocket.Conn, payload map[string]any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write message: %v", err)
	}
}

// readUntil reads frames until one carries the wanted type. Replies are only
// written in response to client messages here, so this never spins.
func readUntil(t *testing.T, conn *websocket.Conn, wanted string) map[string]json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read message waiting for %q: %v", wanted, err)
		}
		var msg map[string]json.RawMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("unmarshal message: %v", err)
		}
		var msgType string
		if raw, ok := msg["type"]; ok {
			json.Unmarshal(raw, &msgType)
		}
		if msgType == wanted {
			return msg
		}
	}
}

// sync round-trips a heartbeat so every previously sent message has been
// handled by the read loop before the test inspects hub state.
func sync(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, map[string]any{"type": "heartbeat", "sentAt": time.Now().UnixMilli()})
	readUntil(t, conn, "heartbeat")
}

func TestHandleRejectsMissingID(t *testing.T) {
	srv := testServer(t, testHub(t))
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing id, got %d", resp.StatusCode)
	}
}

func TestHandleClosesUnknownBuilder(t *testing.T) {
	srv := testServer(t, testHub(t))
	conn := dial(t, srv, "builder-404")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected a policy violation close, got %v", err)
	}
}

func TestHandleSendsJoinedMessage(t *testing.T) {
	h := testHub(t)
	srv := testServer(t, h)
	joined := h.Join()
	conn := dial(t, srv, joined.ID)

	msg := readUntil(t, conn, "joined")
	var id string
	if err := json.Unmarshal(msg["id"], &id); err != nil || id != joined.ID {
		t.Fatalf("expected joined message for %s, got %s (err %v)", joined.ID, id, err)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(msg["catalog"], &entries); err != nil || len(entries) != 2 {
		t.Fatalf("expected 2 catalog entries in the joined message, got %d (err %v)", len(entries), err)
	}
}

func TestHandleHeartbeatReportsRTT(t *testing.T) {
	h := testHub(t)
	srv := testServer(t, h)
	joined := h.Join()
	conn := dial(t, srv, joined.ID)
	readUntil(t, conn, "joined")

	send(t, conn, map[string]any{"type": "heartbeat", "sentAt": time.Now().UnixMilli()})
	msg := readUntil(t, conn, "heartbeat")
	var serverTime int64
	if err := json.Unmarshal(msg["serverTime"], &serverTime); err != nil || serverTime <= 0 {
		t.Fatalf("expected a server timestamp in the heartbeat reply, got %d (err %v)", serverTime, err)
	}
}

func TestHandleSpawnAndError(t *testing.T) {
	h := testHub(t)
	srv := testServer(t, h)
	joined := h.Join()
	conn := dial(t, srv, joined.ID)
	readUntil(t, conn, "joined")

	send(t, conn, map[string]any{"type": "spawn", "catalogId": "table", "position": map[string]any{"x": 1.0}})
	msg := readUntil(t, conn, "spawned")
	var spawned struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(msg["piece"], &spawned); err != nil || spawned.ID == "" {
		t.Fatalf("expected a spawned piece with an id, got %+v (err %v)", spawned, err)
	}
	if _, ok := h.State().Piece(spawned.ID); !ok {
		t.Fatalf("expected the spawned piece in the session state")
	}

	send(t, conn, map[string]any{"type": "spawn", "catalogId": "no-such-piece"})
	readUntil(t, conn, "error")
}

func TestHandlePointerCommandsDriveDrag(t *testing.T) {
	h := testHub(t)
	srv := testServer(t, h)
	joined := h.Join()
	conn := dial(t, srv, joined.ID)
	readUntil(t, conn, "joined")

	spawned, err := h.SpawnPiece(joined.ID, "lamp", geom.Vec3{X: 5, Z: 5}, 0)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	send(t, conn, map[string]any{"type": "camera", "camera": map[string]any{
		"position": map[string]any{"y": 1.5, "z": 5.0},
		"forward":  map[string]any{"z": -1.0},
		"up":       map[string]any{"y": 1.0},
	}})
	send(t, conn, map[string]any{"type": "pointerDown", "pieceId": spawned.ID, "pointer": map[string]any{"x": 0.0, "y": 0.0}})
	send(t, conn, map[string]any{"type": "pointerMove", "pointer": map[string]any{"x": 0.0, "y": 0.0}})
	sync(t, conn)

	h.Advance(context.Background(), time.Now())
	_, drags := h.Snapshot()
	info, ok := drags[joined.ID]
	if !ok || !info.Dragging {
		t.Fatalf("expected an active drag for %s, got %+v", joined.ID, info)
	}
	if !info.Snapped || info.SurfaceID != "wall-1" {
		t.Fatalf("expected the drag snapped to wall-1, got %+v", info)
	}

	send(t, conn, map[string]any{"type": "pointerUp", "pointer": map[string]any{"x": 0.0, "y": 0.0}})
	sync(t, conn)
	h.Advance(context.Background(), time.Now())

	confirmed, ok := h.State().Piece(spawned.ID)
	if !ok || confirmed.Attached == nil || confirmed.Attached.SurfaceID != "wall-1" {
		t.Fatalf("expected the piece committed to wall-1, got %+v", confirmed)
	}
}
