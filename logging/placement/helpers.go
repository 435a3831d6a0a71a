package placement

import (
	"context"

	"playhouse/engine/logging"
)

const (
	// EventGrabDenied is emitted when the session authority refuses a grab.
	EventGrabDenied logging.EventType = "placement.grab_denied"
	// EventStalePiece is emitted when a held piece vanishes mid-drag.
	EventStalePiece logging.EventType = "placement.stale_piece"
	// EventCommit is emitted when a drag releases and the transform is sent
	// to the session authority.
	EventCommit logging.EventType = "placement.commit"
	// EventInvariantViolation flags a snap result that claims attachment
	// without a target. This is a programming error, not a runtime state.
	EventInvariantViolation logging.EventType = "placement.invariant_violation"
)

// CommitPayload captures the final transform of a released piece.
type CommitPayload struct {
	Snapped   bool    `json:"snapped"`
	SurfaceID string  `json:"surfaceId,omitempty"`
	Kind      string  `json:"kind,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Yaw       float64 `json:"yaw"`
}

// GrabDenied publishes a refused grab. Denials are routine in a multi-user
// session and are logged at debug severity.
func GrabDenied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, pieceID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventGrabDenied,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: pieceID, Kind: logging.EntityKindPiece}},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryPlacement,
	})
}

// StalePiece publishes a forced drag abort after the held piece disappeared
// or changed hands.
func StalePiece(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, pieceID, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStalePiece,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: pieceID, Kind: logging.EntityKindPiece}},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryPlacement,
		Payload:  map[string]string{"reason": reason},
	})
}

// Commit publishes the transform sent to the authority on release.
func Commit(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, pieceID string, payload CommitPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCommit,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: pieceID, Kind: logging.EntityKindPiece}},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryPlacement,
		Payload:  payload,
	})
}

// InvariantViolation publishes an assertion-grade inconsistency.
func InvariantViolation(ctx context.Context, pub logging.Publisher, tick uint64, pieceID, detail string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventInvariantViolation,
		Tick:     tick,
		Targets:  []logging.EntityRef{{ID: pieceID, Kind: logging.EntityKindPiece}},
		Severity: logging.SeverityError,
		Category: logging.CategorySystem,
		Payload:  map[string]string{"detail": detail},
	})
}
