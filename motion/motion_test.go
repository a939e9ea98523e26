package motion

import (
	"testing"
)

// fakeDriver records emitted pulses.
type fakeDriver struct {
	steps   []int
	enabled bool
}

func (f *fakeDriver) Step(dir int)       { f.steps = append(f.steps, dir) }
func (f *fakeDriver) SetEnabled(on bool) { f.enabled = on }

// switchEndstop trips once the driver has emitted hitAfter pulses (0 = wired
// directly to the level field).
type switchEndstop struct {
	drv      *fakeDriver
	hitAfter int
	closed   bool
}

func (s *switchEndstop) Triggered() bool {
	if s.closed {
		return true
	}
	if s.hitAfter > 0 && s.drv != nil && len(s.drv.steps) >= s.hitAfter {
		s.closed = true
	}
	return s.closed
}

func newTestAxis(rangePulses, budget int) (*Axis, *fakeDriver, *switchEndstop) {
	drv := &fakeDriver{}
	es := &switchEndstop{drv: drv}
	a := NewAxis(AxisConfig{Name: "x", RangePulses: rangePulses, MaxPulsesPerTick: budget}, drv, es)
	return a, drv, es
}

func settle(a *Axis) {
	for i := 0; i < 100_000 && a.State() == Stepping; i++ {
		a.Tick()
	}
}

func TestMoveClampsAtFarBound(t *testing.T) {
	a, drv, _ := newTestAxis(100, 8)
	a.OverwritePosition(50)

	a.Move(80)
	settle(a)

	if a.Position() != 100 {
		t.Fatalf("position = %d, want 100", a.Position())
	}
	if a.State() != Idle {
		t.Fatalf("state = %v, want idle (clamped, no endstop at far end)", a.State())
	}
	if len(drv.steps) != 50 {
		t.Fatalf("emitted %d pulses, want 50", len(drv.steps))
	}
	for _, d := range drv.steps {
		if d != 1 {
			t.Fatalf("unexpected pulse direction %d", d)
		}
	}
}

func TestEndstopHaltsHomingMove(t *testing.T) {
	a, drv, es := newTestAxis(100, 8)
	a.OverwritePosition(30)
	es.hitAfter = 30 // switch closes after 30 decreasing pulses

	a.Move(-50)
	settle(a)

	if a.Position() != 0 {
		t.Fatalf("position = %d, want 0", a.Position())
	}
	if a.State() != AtLimit {
		t.Fatalf("state = %v, want at_limit", a.State())
	}
	if !a.Homed() {
		t.Fatal("axis should be homed after endstop hit")
	}
	if len(drv.steps) != 30 {
		t.Fatalf("emitted %d pulses, want 30", len(drv.steps))
	}
}

func TestEndstopZeroesUnhomedPosition(t *testing.T) {
	a, _, es := newTestAxis(100, 4)
	// Session restore put the counter at 50, but the stage is physically
	// only 20 pulses from home.
	a.OverwritePosition(50)
	es.hitAfter = 20

	a.Home()
	settle(a)

	if a.Position() != 0 || a.State() != AtLimit {
		t.Fatalf("position=%d state=%v, want 0/at_limit", a.Position(), a.State())
	}
}

func TestHomingWithoutEndstopExhaustsRange(t *testing.T) {
	a, drv, _ := newTestAxis(100, 8)
	a.OverwritePosition(40)

	a.Home()
	settle(a)

	// No endstop fired: the move ends when the pulse budget runs out.
	if a.Position() != 0 {
		t.Fatalf("position = %d, want 0", a.Position())
	}
	if a.State() != Idle {
		t.Fatalf("state = %v, want idle", a.State())
	}
	if a.Homed() {
		t.Fatal("axis must not claim homed without an endstop hit")
	}
	if len(drv.steps) != 40 {
		t.Fatalf("emitted %d pulses, want 40", len(drv.steps))
	}
}

func TestZeroPulseMoveIsNoOp(t *testing.T) {
	a, drv, _ := newTestAxis(100, 8)
	a.OverwritePosition(25)

	a.Move(0)
	a.Tick()

	if a.Position() != 25 || a.State() != Idle || len(drv.steps) != 0 {
		t.Fatalf("zero-pulse move changed state: pos=%d state=%v steps=%d",
			a.Position(), a.State(), len(drv.steps))
	}
}

func TestPositionNeverLeavesBounds(t *testing.T) {
	a, _, _ := newTestAxis(50, 8)
	moves := []int{30, 100, -200, 10, -5, 500, -1}
	for _, m := range moves {
		a.Move(m)
		settle(a)
		if p := a.Position(); p < 0 || p > 50 {
			t.Fatalf("position %d outside [0,50] after move %d", p, m)
		}
	}
}

func TestAtLimitAcceptsOnlyOppositeDirection(t *testing.T) {
	a, _, es := newTestAxis(100, 8)
	a.OverwritePosition(10)
	es.hitAfter = 5

	a.Home()
	settle(a)
	if a.State() != AtLimit {
		t.Fatalf("state = %v, want at_limit", a.State())
	}

	// Further negative commands are ignored while latched.
	a.Move(-10)
	a.Tick()
	if a.State() != AtLimit || a.Position() != 0 {
		t.Fatalf("negative move accepted at limit: state=%v pos=%d", a.State(), a.Position())
	}

	// The opposite direction is accepted unconditionally, no debounce.
	es.closed = false
	a.Move(10)
	settle(a)
	if a.State() != Idle || a.Position() != 10 {
		t.Fatalf("opposite move rejected: state=%v pos=%d", a.State(), a.Position())
	}
}

func TestTickBudgetBoundsWorkPerInvocation(t *testing.T) {
	a, drv, _ := newTestAxis(1000, 3)

	a.Move(10)
	a.Tick()
	if len(drv.steps) != 3 {
		t.Fatalf("one tick emitted %d pulses, want 3", len(drv.steps))
	}
	a.Tick()
	if len(drv.steps) != 6 {
		t.Fatalf("two ticks emitted %d pulses, want 6", len(drv.steps))
	}
}

func TestStopDiscardsRemainingPulses(t *testing.T) {
	a, drv, _ := newTestAxis(100, 2)
	a.Move(10)
	a.Tick()
	a.Stop()
	a.Tick()

	if len(drv.steps) != 2 {
		t.Fatalf("emitted %d pulses after stop, want 2", len(drv.steps))
	}
	if a.State() != Idle || a.Position() != 2 {
		t.Fatalf("state=%v pos=%d after stop", a.State(), a.Position())
	}
}

func TestSetRangeReclampsPosition(t *testing.T) {
	a, _, _ := newTestAxis(100, 8)
	a.OverwritePosition(90)

	a.SetRange(60)
	if a.Position() != 60 {
		t.Fatalf("position = %d after range shrink, want 60", a.Position())
	}
}

func TestControllerRoutesAndTicksBothAxes(t *testing.T) {
	xd, yd := &fakeDriver{}, &fakeDriver{}
	x := NewAxis(AxisConfig{Name: "x", RangePulses: 100, MaxPulsesPerTick: 4}, xd, nil)
	y := NewAxis(AxisConfig{Name: "y", RangePulses: 100, MaxPulsesPerTick: 4}, yd, nil)
	c := NewController(x, y)

	c.Axis("x").Move(2)
	c.Axis("y").Move(-2) // at 0, clamped: no-op
	c.Tick()

	if len(xd.steps) != 2 {
		t.Fatalf("x emitted %d pulses, want 2", len(xd.steps))
	}
	if len(yd.steps) != 0 {
		t.Fatalf("y emitted %d pulses, want 0", len(yd.steps))
	}
	if c.Busy() {
		t.Fatal("controller still busy after moves settled")
	}
	if c.Axis("z") != nil {
		t.Fatal("unknown axis must resolve to nil")
	}

	c.SetEnabled(false)
	if xd.enabled || yd.enabled {
		t.Fatal("drivers should be disabled")
	}
}
