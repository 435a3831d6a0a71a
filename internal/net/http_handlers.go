package net

import (
	"encoding/json"
	"io"
	"log"
	nethttp "net/http"
	"time"

	"playhouse/engine/internal/geom"
	enginehub "playhouse/engine/internal/hub"
	"playhouse/engine/internal/net/ws"
	"playhouse/engine/logging"
)

type HTTPHandlerConfig struct {
	// ClientDir serves the browser client when non-empty.
	ClientDir string
	Logger    *log.Logger
	TickRate  int
	// Metrics is surfaced on /diagnostics when set.
	Metrics *logging.Metrics
}

func NewHTTPHandler(hub *enginehub.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, hub.Join())
	})

	mux.HandleFunc("/pieces", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.Method {
		case nethttp.MethodPost:
			type spawnRequest struct {
				UserID    string  `json:"userId"`
				CatalogID string  `json:"catalogId"`
				X         float64 `json:"x"`
				Y         float64 `json:"y"`
				Z         float64 `json:"z"`
				Yaw       float64 `json:"yaw"`
			}
			var req spawnRequest
			if r.Body != nil {
				defer r.Body.Close()
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
					httpError(w, "invalid payload", nethttp.StatusBadRequest)
					return
				}
			}
			if req.CatalogID == "" {
				httpError(w, "missing catalogId", nethttp.StatusBadRequest)
				return
			}
			spawned, err := hub.SpawnPiece(req.UserID, req.CatalogID, geom.Vec3{X: req.X, Y: req.Y, Z: req.Z}, req.Yaw)
			if err != nil {
				httpError(w, err.Error(), nethttp.StatusBadRequest)
				return
			}
			writeJSON(w, spawned)
		case nethttp.MethodDelete:
			pieceID := r.URL.Query().Get("id")
			if pieceID == "" {
				httpError(w, "missing id", nethttp.StatusBadRequest)
				return
			}
			if !hub.DeletePiece(pieceID) {
				httpError(w, "unknown piece", nethttp.StatusNotFound)
				return
			}
			w.WriteHeader(nethttp.StatusNoContent)
		default:
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string            `json:"status"`
			ServerTime int64             `json:"serverTime"`
			Tick       uint64            `json:"tick"`
			TickRate   int               `json:"tickRate"`
			Builders   any               `json:"builders"`
			Telemetry  map[string]uint64 `json:"telemetry,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Tick:       hub.Tick(),
			TickRate:   cfg.TickRate,
			Builders:   hub.DiagnosticsSnapshot(),
			Telemetry:  cfg.Metrics.Snapshot(),
		}
		writeJSON(w, payload)
	})

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: logger})
	mux.HandleFunc("/ws", wsHandler.Handle)

	if cfg.ClientDir != "" {
		mux.Handle("/", nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
