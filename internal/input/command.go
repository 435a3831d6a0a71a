package input

import (
	"time"

	"playhouse/engine/internal/scene"
)

// CommandType enumerates the interaction commands consumed per tick.
type CommandType string

const (
	CommandPointerDown  CommandType = "PointerDown"
	CommandPointerMove  CommandType = "PointerMove"
	CommandPointerUp    CommandType = "PointerUp"
	CommandRotate       CommandType = "Rotate"
	CommandHeightAdjust CommandType = "HeightAdjust"
	CommandCancel       CommandType = "Cancel"
)

// PointerCommand carries the pointer position for down/move/up events.
type PointerCommand struct {
	Pointer scene.Pointer `json:"pointer"`
	// PieceID names the clicked piece on PointerDown. Empty otherwise.
	PieceID string `json:"pieceId,omitempty"`
}

// RotateCommand carries a yaw delta in radians from keys or the wheel.
type RotateCommand struct {
	Delta float64 `json:"delta"`
}

// HeightCommand carries a mount-height delta from arrow keys or the wheel.
type HeightCommand struct {
	Delta float64 `json:"delta"`
}

// Command is one input intent captured for processing on the next tick.
// Listener callbacks never mutate engine state directly; they stage commands
// here and the controller drains them in order.
type Command struct {
	UserID   string          `json:"userId"`
	Type     CommandType     `json:"type"`
	IssuedAt time.Time       `json:"issuedAt"`
	Pointer  *PointerCommand `json:"pointer,omitempty"`
	Rotate   *RotateCommand  `json:"rotate,omitempty"`
	Height   *HeightCommand  `json:"height,omitempty"`
}
