package types

// ------------------------
// Directional input
// ------------------------

type Button string

const (
	ButtonUp      Button = "up"
	ButtonDown    Button = "down"
	ButtonLeft    Button = "left"
	ButtonRight   Button = "right"
	ButtonConfirm Button = "confirm"
	ButtonCancel  Button = "cancel"
)

// InputEvent is published on input/event for every press and release edge.
// Services that auto-repeat track the held level from the two edges.
type InputEvent struct {
	Button  Button `json:"button"`
	Pressed bool   `json:"pressed"`
	TSms    int64  `json:"ts_ms"`
}
