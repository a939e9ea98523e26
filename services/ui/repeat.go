package ui

import "time"

// repeater schedules auto-repeat for a held button. The first repeat waits
// startDelay; after that the interval halves per level down to minInterval.
// The level also scales edit increments: level 0 steps by 1, level 1 snaps to
// tens, level 2 to hundreds, and so on (capped so a step never exceeds the
// largest setting bound).
type repeater struct {
	startDelay  time.Duration
	minInterval time.Duration
	count       int
}

const (
	repeatsPerLevel = 8
	maxRepeatLevel  = 4
)

func newRepeater(startDelay, minInterval time.Duration) *repeater {
	if startDelay <= 0 {
		startDelay = 400 * time.Millisecond
	}
	if minInterval <= 0 {
		minInterval = 25 * time.Millisecond
	}
	return &repeater{startDelay: startDelay, minInterval: minInterval}
}

// Press arms the repeater and returns the delay before the first repeat.
func (r *repeater) Press() time.Duration {
	r.count = 0
	return r.startDelay
}

// Fire records one repeat and returns the next interval and the current
// acceleration level.
func (r *repeater) Fire() (time.Duration, int) {
	r.count++
	level := r.Level()
	iv := r.startDelay >> (level + 1)
	if iv < r.minInterval {
		iv = r.minInterval
	}
	return iv, level
}

// Level grows by one for every repeatsPerLevel repeats of the current hold.
func (r *repeater) Level() int {
	level := r.count / repeatsPerLevel
	if level > maxRepeatLevel {
		level = maxRepeatLevel
	}
	return level
}
