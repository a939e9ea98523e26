// Package motion is the stage's motion core: one bounded state machine per
// axis, stepped by an external tick. It never owns a loop and never sleeps.
package motion

import (
	"stagecode-go/x/mathx"
)

// State of one axis.
type State uint8

const (
	Idle State = iota
	Stepping
	AtLimit
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Stepping:
		return "stepping"
	case AtLimit:
		return "at_limit"
	default:
		return "unknown"
	}
}

// StepDriver is the pulse-level interface to a stepper driver. Step emits one
// direction-set + pulse pair; dir < 0 moves toward the home endstop.
type StepDriver interface {
	SetEnabled(on bool)
	Step(dir int)
}

// Endstop reports the axis home switch. Polled, never stored.
type Endstop interface {
	Triggered() bool
}

// EndstopFunc adapts a closure to Endstop.
type EndstopFunc func() bool

func (f EndstopFunc) Triggered() bool { return f() }

// AxisConfig parametrises one axis. X and Y are symmetric instances.
type AxisConfig struct {
	Name        string
	RangePulses int // travel range, position stays in [0, RangePulses]

	// MaxPulsesPerTick bounds the work done by one Tick so the host frame
	// loop is never blocked. Zero means the default.
	MaxPulsesPerTick int
}

const defaultMaxPulsesPerTick = 8

// Axis is one bounded linear axis. Not safe for concurrent use; the owning
// service serialises commands and ticks.
type Axis struct {
	cfg      AxisConfig
	drv      StepDriver
	es       Endstop
	state    State
	pos      int // pulses from home reference
	target   int
	limitDir int // -1 home limit, +1 far limit; valid in AtLimit
	homed    bool
}

func NewAxis(cfg AxisConfig, drv StepDriver, es Endstop) *Axis {
	if cfg.MaxPulsesPerTick <= 0 {
		cfg.MaxPulsesPerTick = defaultMaxPulsesPerTick
	}
	return &Axis{cfg: cfg, drv: drv, es: es}
}

func (a *Axis) Name() string  { return a.cfg.Name }
func (a *Axis) State() State  { return a.state }
func (a *Axis) Position() int { return a.pos }
func (a *Axis) Target() int   { return a.target }
func (a *Axis) Homed() bool   { return a.homed }
func (a *Axis) Range() int    { return a.cfg.RangePulses }

// OverwritePosition seeds the position counter from a previous session.
// The axis stays unhomed until an endstop fires.
func (a *Axis) OverwritePosition(p int) {
	a.pos = mathx.Clamp(p, 0, a.cfg.RangePulses)
	a.target = a.pos
}

// SetRange applies a changed travel-range setting, re-clamping position and
// target into the new bounds.
func (a *Axis) SetRange(rangePulses int) {
	a.cfg.RangePulses = rangePulses
	a.pos = mathx.Clamp(a.pos, 0, rangePulses)
	a.target = mathx.Clamp(a.target, 0, rangePulses)
}

// Move requests a relative move. The target is clamped so the resulting
// position stays within [0, RangePulses]; a zero-pulse move changes nothing.
// In AtLimit, only a command away from the limit is accepted.
func (a *Axis) Move(pulses int) {
	if pulses == 0 {
		return
	}
	a.MoveTo(a.pos + pulses)
}

// MoveTo requests an absolute move to target (clamped into bounds).
func (a *Axis) MoveTo(target int) {
	target = mathx.Clamp(target, 0, a.cfg.RangePulses)
	dir := sign(target - a.pos)
	if dir == 0 {
		return
	}
	if a.state == AtLimit && dir == a.limitDir {
		return
	}
	// Leaving AtLimit in the opposite direction is unconditional.
	a.target = target
	a.state = Stepping
}

// Home drives toward the endstop. If the endstop never fires the move ends
// when the configured range is exhausted.
func (a *Axis) Home() {
	a.Move(-a.cfg.RangePulses)
}

// Stop abandons the remaining pulses of the current move.
func (a *Axis) Stop() {
	a.target = a.pos
	if a.state == Stepping {
		a.state = Idle
	}
}

// Tick advances the axis by at most MaxPulsesPerTick pulses toward the
// target. The endstop is polled before every decreasing step; when it fires
// the move halts, the position counter is zeroed to the endstop reference
// and the axis latches AtLimit.
func (a *Axis) Tick() {
	if a.state != Stepping {
		return
	}
	for i := 0; i < a.cfg.MaxPulsesPerTick; i++ {
		dir := sign(a.target - a.pos)
		if dir == 0 {
			a.state = Idle
			return
		}
		if dir < 0 && a.endstopHit() {
			a.latchHome()
			return
		}
		next := a.pos + dir
		if next < 0 || next > a.cfg.RangePulses {
			// Bound reached without an endstop; halt where we are.
			a.target = a.pos
			a.state = AtLimit
			a.limitDir = dir
			return
		}
		a.drv.Step(dir)
		a.pos = next
		// The step just emitted may be the one that closes the switch.
		if dir < 0 && a.endstopHit() {
			a.latchHome()
			return
		}
	}
	if a.pos == a.target {
		a.state = Idle
	}
}

func (a *Axis) endstopHit() bool {
	return a.es != nil && a.es.Triggered()
}

// latchHome zeroes the position to the endstop reference and discards the
// remaining requested pulses.
func (a *Axis) latchHome() {
	a.pos = 0
	a.target = 0
	a.homed = true
	a.state = AtLimit
	a.limitDir = -1
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
