package types

// ------------------------
// XY stage
// ------------------------

type AxisID string

const (
	AxisX AxisID = "x"
	AxisY AxisID = "y"
)

// AxisState mirrors the per-axis motion state machine.
type AxisState string

const (
	AxisIdle     AxisState = "idle"
	AxisStepping AxisState = "stepping"
	AxisAtLimit  AxisState = "at_limit"
)

// StageMove is a relative jog request; Pulses may be negative.
type StageMove struct {
	Axis   AxisID `json:"axis"`
	Pulses int    `json:"pulses"`
}

// StageMoveTo is an absolute target request.
type StageMoveTo struct {
	Axis   AxisID `json:"axis"`
	Target int    `json:"target"`
}

// StageHome drives the axis toward its endstop.
type StageHome struct {
	Axis AxisID `json:"axis"`
}

// AxisPosition is the retained per-axis position report.
type AxisPosition struct {
	Axis   AxisID `json:"axis"`
	Pulses int    `json:"pulses"`
	Homed  bool   `json:"homed"`
	TSms   int64  `json:"ts_ms"`
}

// AxisStatus is the retained per-axis state report.
type AxisStatus struct {
	Axis  AxisID    `json:"axis"`
	State AxisState `json:"state"`
	TSms  int64     `json:"ts_ms"`
}
