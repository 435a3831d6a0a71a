package network

import (
	"context"

	"playhouse/engine/logging"
)

const (
	// EventHeartbeat is emitted when a builder's heartbeat is recorded.
	EventHeartbeat logging.EventType = "network.heartbeat"
	// EventHeartbeatTimeout is emitted when a builder is pruned for silence.
	EventHeartbeatTimeout logging.EventType = "network.heartbeat_timeout"
)

// HeartbeatPayload captures round-trip timing for one heartbeat exchange.
type HeartbeatPayload struct {
	RTTMillis int64 `json:"rttMillis"`
}

// TimeoutPayload captures how long a builder had been silent when pruned.
type TimeoutPayload struct {
	SilentMillis int64 `json:"silentMillis"`
}

// Heartbeat publishes a debug event when a heartbeat is recorded.
func Heartbeat(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload HeartbeatPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventHeartbeat,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// HeartbeatTimeout publishes a warning event when a silent builder is pruned.
func HeartbeatTimeout(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload TimeoutPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventHeartbeatTimeout,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
