package hal

import (
	"sync"
	"time"

	"stagecode-go/x/timex"
)

// -----------------------------------------------------------------------------
// Simulated provider (host builds and tests)
// -----------------------------------------------------------------------------

const simTimerCount = 4

// SimRegistry implements Registry over in-memory pins and timers. Pins must
// be declared up front; claiming an undeclared pin fails the same way an
// unmapped pin does on the board.
type SimRegistry struct {
	mu     sync.Mutex
	pins   map[int]*SimPin
	owner  map[int]string
	timers [simTimerCount]*SimTimer

	// Manual disables the timer goroutines; tests drive SimTimer.Fire.
	Manual bool
}

func NewSimRegistry(pins ...int) *SimRegistry {
	r := &SimRegistry{
		pins:  make(map[int]*SimPin, len(pins)),
		owner: make(map[int]string, len(pins)),
	}
	for _, n := range pins {
		r.pins[n] = &SimPin{n: n}
	}
	for i := range r.timers {
		r.timers[i] = &SimTimer{id: i, reg: r}
	}
	return r
}

func (r *SimRegistry) ClaimPin(devID string, pin int) (GPIOHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pins[pin]
	if !ok {
		return nil, ErrUnknownPin
	}
	if r.owner[pin] != "" && r.owner[pin] != devID {
		return nil, ErrPinInUse
	}
	r.owner[pin] = devID
	return p, nil
}

func (r *SimRegistry) ReleasePin(devID string, pin int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owner[pin] == devID {
		delete(r.owner, pin)
	}
}

func (r *SimRegistry) ClaimTimer(devID string) (TimerHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.timers {
		if t.owner == "" {
			t.owner = devID
			return t, nil
		}
	}
	return nil, ErrNoFreeTimer
}

func (r *SimRegistry) ReleaseTimer(devID string, th TimerHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := th.(*SimTimer); ok && t.owner == devID {
		t.stopLocked()
		t.owner = ""
	}
}

// Pin exposes a declared pin to tests (to flip endstops, read step counts).
func (r *SimRegistry) Pin(n int) *SimPin {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pins[n]
}

// Timer exposes a timer slot to tests for manual firing.
func (r *SimRegistry) Timer(id int) *SimTimer {
	if id < 0 || id >= simTimerCount {
		return nil
	}
	return r.timers[id]
}

// -----------------------------------------------------------------------------
// SimPin
// -----------------------------------------------------------------------------

type SimPin struct {
	mu    sync.Mutex
	n     int
	level bool
	out   bool
	pull  Pull
	rises int
}

func (p *SimPin) Number() int { return p.n }

func (p *SimPin) ConfigureInput(pull Pull) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = false
	p.pull = pull
	// An unwired input reads its pull level.
	p.level = pull == PullUp
	return nil
}

func (p *SimPin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = true
	p.level = initial
	return nil
}

func (p *SimPin) Set(b bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b && !p.level {
		p.rises++
	}
	p.level = b
}

func (p *SimPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *SimPin) Toggle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.level {
		p.rises++
	}
	p.level = !p.level
}

// SetLevel drives an input pin externally (endstop switches in tests).
func (p *SimPin) SetLevel(b bool) { p.Set(b) }

// RisingEdges counts rising edges seen on the pin since creation.
func (p *SimPin) RisingEdges() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rises
}

// -----------------------------------------------------------------------------
// SimTimer
// -----------------------------------------------------------------------------

type SimTimer struct {
	mu    sync.Mutex
	id    int
	reg   *SimRegistry
	owner string
	fn    func()
	tick  *time.Ticker
	quit  chan struct{}
}

func (t *SimTimer) ID() int { return t.id }

func (t *SimTimer) Start(freqHz uint32, fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopInner()
	t.fn = fn
	if t.reg.Manual {
		return nil
	}
	t.tick = time.NewTicker(timex.PeriodFromHz(freqHz))
	t.quit = make(chan struct{})
	go func(tick *time.Ticker, quit chan struct{}) {
		for {
			select {
			case <-quit:
				return
			case <-tick.C:
				fn()
			}
		}
	}(t.tick, t.quit)
	return nil
}

func (t *SimTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopInner()
}

// caller holds reg.mu, not t.mu
func (t *SimTimer) stopLocked() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopInner()
}

// caller holds t.mu
func (t *SimTimer) stopInner() {
	if t.tick != nil {
		t.tick.Stop()
		close(t.quit)
		t.tick = nil
		t.quit = nil
	}
	t.fn = nil
}

// Fire invokes the registered callback once, synchronously. Tests use it to
// advance time deterministically under Manual mode.
func (t *SimTimer) Fire() {
	t.mu.Lock()
	fn := t.fn
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}
