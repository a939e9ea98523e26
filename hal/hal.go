// Package hal owns the board's claimable resources: GPIO pins and the small
// pool of step timers. Services claim what they need at start and fail fast
// when the board cannot provide it.
package hal

import (
	"stagecode-go/errcode"
)

// ---- GPIO handles ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOHandle interface {
	Number() int
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(bool)
	Get() bool
	Toggle()
}

// ---- Timers ----

// TimerHandle is a periodic callback source. The callback runs off the
// claimant's goroutine; keep it short and non-blocking.
type TimerHandle interface {
	ID() int
	Start(freqHz uint32, fn func()) error
	Stop()
}

// ---- Unified registry interface ----

// Registry hands out exclusively-owned resources. Claims are per device ID;
// a second claim of the same pin or an exhausted timer pool is an error, not
// a queue.
type Registry interface {
	ClaimPin(devID string, pin int) (GPIOHandle, error)
	ReleasePin(devID string, pin int)

	ClaimTimer(devID string) (TimerHandle, error)
	ReleaseTimer(devID string, t TimerHandle)
}

// Short claim errors, shared by all providers.
var (
	ErrUnknownPin  error = errcode.UnknownPin
	ErrPinInUse    error = errcode.PinInUse
	ErrNoFreeTimer error = errcode.NoFreeTimer
)
