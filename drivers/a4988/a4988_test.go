package a4988

import (
	"testing"

	"stagecode-go/hal"
)

func newDriver(t *testing.T, cfg Config) (*Driver, *hal.SimPin, *hal.SimPin, *hal.SimPin) {
	t.Helper()
	reg := hal.NewSimRegistry(1, 2, 3)
	claim := func(n int) hal.GPIOHandle {
		h, err := reg.ClaimPin("test", n)
		if err != nil {
			t.Fatalf("claim pin %d: %v", n, err)
		}
		return h
	}
	d, err := New(claim(1), claim(2), claim(3), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, reg.Pin(1), reg.Pin(2), reg.Pin(3)
}

func TestStepEmitsOnePulsePerCall(t *testing.T) {
	d, step, _, _ := newDriver(t, Config{})
	d.SetEnabled(true)

	for i := 0; i < 5; i++ {
		d.Step(1)
	}
	if got := step.RisingEdges(); got != 5 {
		t.Fatalf("step pin saw %d rising edges, want 5", got)
	}
}

func TestDirectionPinTracksSign(t *testing.T) {
	d, _, dir, _ := newDriver(t, Config{})
	d.SetEnabled(true)

	d.Step(1)
	if dir.Get() {
		t.Fatal("dir pin high for a forward step")
	}
	d.Step(-1)
	if !dir.Get() {
		t.Fatal("dir pin low for a reverse step")
	}
}

func TestInvertDir(t *testing.T) {
	d, _, dir, _ := newDriver(t, Config{InvertDir: true})
	d.Step(1)
	if !dir.Get() {
		t.Fatal("inverted dir pin should be high for a forward step")
	}
}

func TestEnableIsActiveLow(t *testing.T) {
	d, _, _, en := newDriver(t, Config{})

	if !en.Get() {
		t.Fatal("enable pin should start high (chip disabled)")
	}
	d.SetEnabled(true)
	if en.Get() {
		t.Fatal("enable pin should be low when enabled")
	}
	d.SetEnabled(false)
	if !en.Get() {
		t.Fatal("enable pin should be high when disabled")
	}
}
