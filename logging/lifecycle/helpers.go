package lifecycle

import (
	"context"

	"playhouse/engine/logging"
)

const (
	// EventBuilderJoined is emitted when a builder joins the session.
	EventBuilderJoined logging.EventType = "lifecycle.builder_joined"
	// EventBuilderDisconnected is emitted when a builder leaves the session.
	EventBuilderDisconnected logging.EventType = "lifecycle.builder_disconnected"
)

// BuilderJoinedPayload captures the session state handed to a new builder.
type BuilderJoinedPayload struct {
	Pieces int `json:"pieces"`
}

// BuilderDisconnectedPayload captures the reason a builder left.
type BuilderDisconnectedPayload struct {
	Reason string `json:"reason"`
}

// BuilderJoined publishes a builder join event.
func BuilderJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BuilderJoinedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventBuilderJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// BuilderDisconnected publishes a builder disconnect event.
func BuilderDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BuilderDisconnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventBuilderDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
