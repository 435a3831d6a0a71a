package ws

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"playhouse/engine/internal/geom"
	enginehub "playhouse/engine/internal/hub"
	"playhouse/engine/internal/input"
	"playhouse/engine/internal/scene"
)

type HandlerConfig struct {
	Logger *log.Logger
}

type Handler struct {
	hub      *enginehub.Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// clientMessage is the envelope for everything a builder's client sends.
type clientMessage struct {
	Type      string        `json:"type"`
	Pointer   scene.Pointer `json:"pointer"`
	PieceID   string        `json:"pieceId,omitempty"`
	Delta     float64       `json:"delta,omitempty"`
	Camera    *scene.Camera `json:"camera,omitempty"`
	CatalogID string        `json:"catalogId,omitempty"`
	Position  geom.Vec3     `json:"position"`
	Yaw       float64       `json:"yaw,omitempty"`
	SentAt    int64         `json:"sentAt,omitempty"`
}

type joinedMessage struct {
	Type string `json:"type"`
	enginehub.JoinResponse
}

type spawnedMessage struct {
	Type  string `json:"type"`
	Piece any    `json:"piece"`
}

type heartbeatMessage struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

type errorMessage struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func NewHandler(hub *enginehub.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	userID := r.URL.Query().Get("id")
	if userID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", userID, err)
		return
	}

	sub, joined, ok := h.hub.Subscribe(userID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown builder")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	// The broadcast loop shares the connection; every reply goes through
	// the subscriber so writes stay serialized.
	writeJSON := func(payload any) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Printf("failed to marshal response for %s: %v", userID, err)
			return true
		}
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			h.hub.Disconnect(userID)
			return false
		}
		return true
	}

	if !writeJSON(joinedMessage{Type: "joined", JoinResponse: joined}) {
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(userID)
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", userID, err)
			continue
		}

		switch msg.Type {
		case "pointerDown":
			h.push(userID, input.Command{
				Type:    input.CommandPointerDown,
				Pointer: &input.PointerCommand{Pointer: msg.Pointer, PieceID: msg.PieceID},
			})
		case "pointerMove":
			h.push(userID, input.Command{
				Type:    input.CommandPointerMove,
				Pointer: &input.PointerCommand{Pointer: msg.Pointer},
			})
		case "pointerUp":
			h.push(userID, input.Command{
				Type:    input.CommandPointerUp,
				Pointer: &input.PointerCommand{Pointer: msg.Pointer},
			})
		case "rotate":
			h.push(userID, input.Command{
				Type:   input.CommandRotate,
				Rotate: &input.RotateCommand{Delta: msg.Delta},
			})
		case "height":
			h.push(userID, input.Command{
				Type:   input.CommandHeightAdjust,
				Height: &input.HeightCommand{Delta: msg.Delta},
			})
		case "cancel":
			h.push(userID, input.Command{Type: input.CommandCancel})
		case "camera":
			if msg.Camera == nil {
				continue
			}
			h.hub.SetCamera(userID, *msg.Camera)
		case "spawn":
			spawned, err := h.hub.SpawnPiece(userID, msg.CatalogID, msg.Position, msg.Yaw)
			if err != nil {
				if !writeJSON(errorMessage{Type: "error", Reason: err.Error()}) {
					return
				}
				continue
			}
			if !writeJSON(spawnedMessage{Type: "spawned", Piece: spawned}) {
				return
			}
		case "delete":
			if !h.hub.DeletePiece(msg.PieceID) {
				if !writeJSON(errorMessage{Type: "error", Reason: "unknown piece"}) {
					return
				}
			}
		case "heartbeat":
			now := time.Now()
			rtt, ok := h.hub.UpdateHeartbeat(userID, now, msg.SentAt)
			if !ok {
				continue
			}
			if !writeJSON(heartbeatMessage{
				Type:       "heartbeat",
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt.Milliseconds(),
			}) {
				return
			}
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, userID)
		}
	}
}

func (h *Handler) push(userID string, cmd input.Command) {
	if !h.hub.PushCommand(userID, cmd) {
		h.logger.Printf("dropping %s command from %s", cmd.Type, userID)
	}
}
