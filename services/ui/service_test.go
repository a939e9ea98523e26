package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	"stagecode-go/bus"
	storepkg "stagecode-go/settings"
	settingssvc "stagecode-go/services/settings"
	"stagecode-go/types"
)

type harness struct {
	bus  *bus.Bus
	conn *bus.Connection
	disp *RecordingDisplay
}

// newHarness runs the UI against a live settings service and waits for both
// to come up.
func newHarness(t *testing.T) *harness {
	t.Helper()
	b := bus.NewBus(32)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store, err := storepkg.NewStore(storepkg.StageSpecs(), &storepkg.MemPersister{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	settingssvc.NewService(store).Start(ctx, b.NewConnection("settings"))

	disp := &RecordingDisplay{}
	NewService(Config{Display: disp}).Start(ctx, b.NewConnection("ui"))

	conn := b.NewConnection("test")
	for _, svc := range []string{"settings", "ui"} {
		sub := conn.Subscribe(bus.T(svc, "state"))
		select {
		case <-sub.Channel():
		case <-time.After(time.Second):
			t.Fatalf("%s service never became ready", svc)
		}
		conn.Unsubscribe(sub)
	}
	return &harness{bus: b, conn: conn, disp: disp}
}

// press publishes a full press/release pair for one button.
func (h *harness) press(b types.Button) {
	h.conn.Publish(&bus.Message{Topic: bus.T("input", "event"),
		Payload: types.InputEvent{Button: b, Pressed: true}})
	h.conn.Publish(&bus.Message{Topic: bus.T("input", "event"),
		Payload: types.InputEvent{Button: b, Pressed: false}})
}

func (h *harness) waitRows(t *testing.T, want string) []string {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		rows := h.disp.Rows()
		if strings.Contains(strings.Join(rows, "\n"), want) {
			return rows
		}
		if time.Now().After(deadline) {
			t.Fatalf("display never showed %q; last frame:\n%s", want, strings.Join(rows, "\n"))
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestMenuNavigationWraps(t *testing.T) {
	h := newHarness(t)
	h.waitRows(t, "> XYStage")

	h.press(types.ButtonDown)
	h.waitRows(t, "> Settings")

	// Up from the top wraps to the last item.
	h.press(types.ButtonUp)
	h.press(types.ButtonUp)
	h.waitRows(t, "> Exit")
}

func TestStageScreenJogsAxes(t *testing.T) {
	h := newHarness(t)
	sub := h.conn.Subscribe(bus.T("stage", "control", "move"))
	defer h.conn.Unsubscribe(sub)

	h.press(types.ButtonConfirm) // enter XYStage
	h.waitRows(t, "== Stage ==")

	h.press(types.ButtonRight)
	h.press(types.ButtonLeft)
	h.press(types.ButtonUp)
	h.press(types.ButtonDown)

	want := []types.StageMove{
		{Axis: types.AxisX, Pulses: 10},
		{Axis: types.AxisX, Pulses: -10},
		{Axis: types.AxisY, Pulses: 10},
		{Axis: types.AxisY, Pulses: -10},
	}
	for _, w := range want {
		select {
		case m := <-sub.Channel():
			mv, ok := m.Payload.(types.StageMove)
			if !ok || mv != w {
				t.Fatalf("jog = %+v, want %+v", m.Payload, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing jog %+v", w)
		}
	}
}

func TestStageConfirmHomesBothAxes(t *testing.T) {
	h := newHarness(t)
	sub := h.conn.Subscribe(bus.T("stage", "control", "home"))
	defer h.conn.Unsubscribe(sub)

	h.press(types.ButtonConfirm)
	h.waitRows(t, "== Stage ==")
	h.press(types.ButtonConfirm)

	seen := map[types.AxisID]bool{}
	for len(seen) < 2 {
		select {
		case m := <-sub.Channel():
			if hm, ok := m.Payload.(types.StageHome); ok {
				seen[hm.Axis] = true
			}
		case <-time.After(time.Second):
			t.Fatalf("home commands seen: %v", seen)
		}
	}
}

func TestStageCancelStopsAndReturns(t *testing.T) {
	h := newHarness(t)
	sub := h.conn.Subscribe(bus.T("stage", "control", "stop"))
	defer h.conn.Unsubscribe(sub)

	h.press(types.ButtonConfirm)
	h.waitRows(t, "== Stage ==")
	h.press(types.ButtonCancel)

	select {
	case <-sub.Channel():
	case <-time.After(time.Second):
		t.Fatal("no stop command on cancel")
	}
	h.waitRows(t, "> XYStage")
}

func TestStageScreenShowsAxisReports(t *testing.T) {
	h := newHarness(t)
	h.press(types.ButtonConfirm)
	h.waitRows(t, "== Stage ==")

	h.conn.Publish(&bus.Message{
		Topic:    bus.T("stage", "axis", "x", "position"),
		Payload:  types.AxisPosition{Axis: types.AxisX, Pulses: 42, Homed: true},
		Retained: true,
	})
	h.waitRows(t, "X 42 idle homed")
}

func TestSettingsListShowsValues(t *testing.T) {
	h := newHarness(t)
	h.press(types.ButtonDown)    // cursor to Settings
	h.press(types.ButtonConfirm) // enter
	rows := h.waitRows(t, "> width = 2000")

	joined := strings.Join(rows, "\n")
	for _, want := range []string{"height = 3000", "XRange = 1940", "YRange = 3100", "logging = on"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("settings list missing %q:\n%s", want, joined)
		}
	}
}

func TestEditorIncrementAndSet(t *testing.T) {
	h := newHarness(t)
	h.press(types.ButtonDown)
	h.press(types.ButtonConfirm) // settings list
	h.waitRows(t, "> width = 2000")
	h.press(types.ButtonConfirm) // edit width
	h.waitRows(t, "value: 2000")

	h.press(types.ButtonUp) // level 0: +1
	h.waitRows(t, "value: 2001")
	h.press(types.ButtonConfirm) // commit
	h.waitRows(t, "> width = 2001")
}

func TestEditorCancelKeepsValue(t *testing.T) {
	h := newHarness(t)
	h.press(types.ButtonDown)
	h.press(types.ButtonConfirm)
	h.waitRows(t, "> width = 2000")
	h.press(types.ButtonConfirm)
	h.waitRows(t, "value: 2000")

	h.press(types.ButtonUp)
	h.waitRows(t, "value: 2001")
	h.press(types.ButtonCancel)
	h.waitRows(t, "> width = 2000")
}

func TestEditorDefaultAction(t *testing.T) {
	h := newHarness(t)
	h.press(types.ButtonDown)
	h.press(types.ButtonConfirm)
	h.waitRows(t, "> width = 2000")
	h.press(types.ButtonConfirm)
	h.press(types.ButtonUp)
	h.waitRows(t, "value: 2001")

	h.press(types.ButtonRight) // restore default
	h.waitRows(t, "value: 2000")
}

func TestBoolToggle(t *testing.T) {
	h := newHarness(t)
	h.press(types.ButtonDown)
	h.press(types.ButtonConfirm)
	h.waitRows(t, "logging = on")

	for i := 0; i < 4; i++ { // cursor down to logging
		h.press(types.ButtonDown)
	}
	h.press(types.ButtonConfirm)
	h.waitRows(t, "> logging = off")
}

func TestExitPublishesEvent(t *testing.T) {
	h := newHarness(t)
	sub := h.conn.Subscribe(bus.T("ui", "exit"))
	defer h.conn.Unsubscribe(sub)

	h.press(types.ButtonUp) // wrap to Exit
	h.waitRows(t, "> Exit")
	h.press(types.ButtonConfirm)

	select {
	case <-sub.Channel():
	case <-time.After(time.Second):
		t.Fatal("no exit event")
	}
}

func TestAboutScreen(t *testing.T) {
	h := newHarness(t)
	h.press(types.ButtonDown)
	h.press(types.ButtonDown) // About
	h.press(types.ButtonConfirm)
	h.waitRows(t, "== About ==")
	h.press(types.ButtonCancel)
	h.waitRows(t, "== XY Stage ==")
}
