package ui

import (
	"testing"
	"time"
)

func TestRepeaterFirstDelayIsStartDelay(t *testing.T) {
	r := newRepeater(400*time.Millisecond, 25*time.Millisecond)
	if d := r.Press(); d != 400*time.Millisecond {
		t.Fatalf("Press = %v, want 400ms", d)
	}
}

func TestRepeaterAccelerates(t *testing.T) {
	r := newRepeater(400*time.Millisecond, 25*time.Millisecond)
	r.Press()

	iv, level := r.Fire()
	if level != 0 || iv != 200*time.Millisecond {
		t.Fatalf("first repeat = %v level %d, want 200ms level 0", iv, level)
	}

	// Level climbs every repeatsPerLevel repeats, halving the interval.
	for i := 1; i < repeatsPerLevel; i++ {
		r.Fire()
	}
	iv, level = r.Fire()
	if level != 1 || iv != 100*time.Millisecond {
		t.Fatalf("repeat %d = %v level %d, want 100ms level 1", repeatsPerLevel+1, iv, level)
	}
}

func TestRepeaterFloorsAtMinInterval(t *testing.T) {
	r := newRepeater(400*time.Millisecond, 60*time.Millisecond)
	r.Press()
	for i := 0; i < 5*repeatsPerLevel; i++ {
		r.Fire()
	}
	iv, _ := r.Fire()
	if iv != 60*time.Millisecond {
		t.Fatalf("interval = %v, want floor 60ms", iv)
	}
}

func TestRepeaterLevelCapped(t *testing.T) {
	r := newRepeater(400*time.Millisecond, 25*time.Millisecond)
	r.Press()
	for i := 0; i < 100*repeatsPerLevel; i++ {
		r.Fire()
	}
	if lvl := r.Level(); lvl != maxRepeatLevel {
		t.Fatalf("level = %d, want cap %d", lvl, maxRepeatLevel)
	}
}

func TestRepeaterPressResets(t *testing.T) {
	r := newRepeater(400*time.Millisecond, 25*time.Millisecond)
	r.Press()
	for i := 0; i < 3*repeatsPerLevel; i++ {
		r.Fire()
	}
	r.Press()
	if lvl := r.Level(); lvl != 0 {
		t.Fatalf("level = %d after new press, want 0", lvl)
	}
}

func TestRepeaterDefaults(t *testing.T) {
	r := newRepeater(0, 0)
	if r.startDelay != 400*time.Millisecond || r.minInterval != 25*time.Millisecond {
		t.Fatalf("defaults = %v/%v", r.startDelay, r.minInterval)
	}
}
