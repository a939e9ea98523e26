package input

import (
	"context"
	"testing"
	"time"

	"stagecode-go/bus"
	"stagecode-go/errcode"
	"stagecode-go/hal"
	"stagecode-go/types"
)

const (
	tpUp      = 10
	tpConfirm = 14
)

func startService(t *testing.T) (*hal.SimRegistry, *bus.Connection) {
	t.Helper()
	reg := hal.NewSimRegistry(tpUp, tpConfirm)
	reg.Manual = true

	b := bus.NewBus(16)
	svc := NewService(Config{
		Registry: reg,
		Pins: map[types.Button]int{
			types.ButtonUp:      tpUp,
			types.ButtonConfirm: tpConfirm,
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := svc.Start(ctx, b.NewConnection("input")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn := b.NewConnection("test")
	sub := conn.Subscribe(bus.T("input", "state"))
	defer conn.Unsubscribe(sub)
	select {
	case <-sub.Channel():
	case <-time.After(time.Second):
		t.Fatal("input service never published state")
	}
	return reg, conn
}

func poll(reg *hal.SimRegistry) {
	reg.Timer(0).Fire()
	time.Sleep(time.Millisecond)
}

func nextEvent(t *testing.T, sub *bus.Subscription) types.InputEvent {
	t.Helper()
	select {
	case m := <-sub.Channel():
		ev, ok := m.Payload.(types.InputEvent)
		if !ok {
			t.Fatalf("payload type %T", m.Payload)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("no input event")
		return types.InputEvent{}
	}
}

func TestPressAndReleaseEdges(t *testing.T) {
	reg, conn := startService(t)
	sub := conn.Subscribe(bus.T("input", "event"))
	defer conn.Unsubscribe(sub)

	// Buttons idle high via pull-up; pressing pulls to ground.
	reg.Pin(tpUp).SetLevel(false)
	poll(reg)
	ev := nextEvent(t, sub)
	if ev.Button != types.ButtonUp || !ev.Pressed {
		t.Fatalf("event = %+v, want up pressed", ev)
	}

	reg.Pin(tpUp).SetLevel(true)
	poll(reg)
	ev = nextEvent(t, sub)
	if ev.Button != types.ButtonUp || ev.Pressed {
		t.Fatalf("event = %+v, want up released", ev)
	}
}

func TestHeldButtonEmitsNoRepeatEvents(t *testing.T) {
	reg, conn := startService(t)
	sub := conn.Subscribe(bus.T("input", "event"))
	defer conn.Unsubscribe(sub)

	reg.Pin(tpConfirm).SetLevel(false)
	poll(reg)
	nextEvent(t, sub) // the press edge

	// Further polls with the level unchanged must stay silent; repeats are
	// the UI's job.
	poll(reg)
	poll(reg)
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected event while held: %+v", m.Payload)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestLaunchFailsOnClaimedPin(t *testing.T) {
	reg := hal.NewSimRegistry(tpUp)
	reg.Manual = true
	if _, err := reg.ClaimPin("other", tpUp); err != nil {
		t.Fatalf("pre-claim: %v", err)
	}

	b := bus.NewBus(8)
	svc := NewService(Config{
		Registry: reg,
		Pins:     map[types.Button]int{types.ButtonUp: tpUp},
	})
	err := svc.Start(context.Background(), b.NewConnection("input"))
	if errcode.Of(err) != errcode.ResourceUnavailable {
		t.Fatalf("Start = %v, want resource_unavailable", err)
	}
}
