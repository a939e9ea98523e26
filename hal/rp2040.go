//go:build rp2040

package hal

import (
	"machine"
	"sync"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/easystepper"

	"stagecode-go/x/timex"
)

// -----------------------------------------------------------------------------
// Board pin map
// -----------------------------------------------------------------------------

// Fixed at build time: the stage add-on board has no identifying memory, so
// there is nothing to probe.
const (
	PinXStep    = 3
	PinXDir     = 0
	PinXEnable  = 1 // active low
	PinXEndstop = 2 // switch to ground

	PinYCoilA   = 4
	PinYCoilB   = 5
	PinYCoilC   = 6
	PinYCoilD   = 7
	PinYEndstop = 8 // switch to ground

	PinBtnUp      = 10
	PinBtnDown    = 11
	PinBtnLeft    = 12
	PinBtnRight   = 13
	PinBtnConfirm = 14
	PinBtnCancel  = 15
)

// BoardPins lists every claimable pin on this board.
var BoardPins = []int{
	PinXStep, PinXDir, PinXEnable, PinXEndstop,
	PinYCoilA, PinYCoilB, PinYCoilC, PinYCoilD, PinYEndstop,
	PinBtnUp, PinBtnDown, PinBtnLeft, PinBtnRight, PinBtnConfirm, PinBtnCancel,
}

// -----------------------------------------------------------------------------
// GPIO handle
// -----------------------------------------------------------------------------

type rp2GPIO struct {
	p machine.Pin
	n int
}

func (r *rp2GPIO) Number() int { return r.n }

func (r *rp2GPIO) ConfigureInput(pull Pull) error {
	var mode machine.PinMode
	switch pull {
	case PullUp:
		mode = machine.PinInputPullup
	case PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2GPIO) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2GPIO) Set(b bool) { r.p.Set(b) }
func (r *rp2GPIO) Get() bool  { return r.p.Get() }
func (r *rp2GPIO) Toggle() {
	if r.p.Get() {
		r.p.Low()
	} else {
		r.p.High()
	}
}

// -----------------------------------------------------------------------------
// Timers
// -----------------------------------------------------------------------------

const rp2TimerCount = 4

type rp2Timer struct {
	mu    sync.Mutex
	id    int
	owner string
	tick  *time.Ticker
	quit  chan struct{}
}

func (t *rp2Timer) ID() int { return t.id }

func (t *rp2Timer) Start(freqHz uint32, fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopInner()
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

func (t *rp2Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopInner()
}

func (t *rp2Timer) stopInner() {
	if t.tick != nil {
		t.tick.Stop()
		close(t.quit)
		t.tick = nil
		t.quit = nil
	}
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

var _ Registry = (*rp2Registry)(nil)

type rp2Registry struct {
	mu     sync.Mutex
	pins   map[int]*rp2GPIO
	owner  map[int]string
	timers [rp2TimerCount]*rp2Timer
}

// NewBoardRegistry builds the registry for the fixed board pin map and
// brings up the debug console on UART0.
func NewBoardRegistry() Registry {
	r := &rp2Registry{
		pins:  make(map[int]*rp2GPIO, len(BoardPins)),
		owner: make(map[int]string, len(BoardPins)),
	}
	for _, n := range BoardPins {
		r.pins[n] = &rp2GPIO{p: machine.Pin(n), n: n}
	}
	for i := range r.timers {
		r.timers[i] = &rp2Timer{id: i}
	}
	_ = uartx.UART0.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	return r
}

// Console returns the debug console writer (UART0).
func Console() interface{ Write([]byte) (int, error) } {
	return uartx.UART0
}

func (r *rp2Registry) ClaimPin(devID string, pin int) (GPIOHandle, error) {
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

func (r *rp2Registry) ReleasePin(devID string, pin int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owner[pin] == devID {
		delete(r.owner, pin)
	}
}

func (r *rp2Registry) ClaimTimer(devID string) (TimerHandle, error) {
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

func (r *rp2Registry) ReleaseTimer(devID string, th TimerHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := th.(*rp2Timer); ok && t.owner == devID {
		t.Stop()
		t.owner = ""
	}
}

// -----------------------------------------------------------------------------
// Coil stepper (Y axis)
// -----------------------------------------------------------------------------

// CoilStepper adapts a four-wire coil stepper to the step/dir shape the
// motion controller drives. One Step is one motor step; easystepper owns the
// coil sequencing.
type CoilStepper struct {
	dev *easystepper.Device
}

func NewCoilStepper(stepCount uint, rpm float64) (*CoilStepper, error) {
	dev, err := easystepper.New(easystepper.DeviceConfig{
		Pin1: machine.Pin(PinYCoilA), Pin2: machine.Pin(PinYCoilB),
		Pin3: machine.Pin(PinYCoilC), Pin4: machine.Pin(PinYCoilD),
		StepCount: stepCount,
		RPM:       rpm,
		Mode:      easystepper.ModeFour,
	})
	if err != nil {
		return nil, err
	}
	dev.Configure()
	return &CoilStepper{dev: dev}, nil
}

func (c *CoilStepper) Step(dir int) {
	if dir >= 0 {
		c.dev.Move(1)
	} else {
		c.dev.Move(-1)
	}
}

func (c *CoilStepper) SetEnabled(on bool) {
	if !on {
		c.dev.Off()
	}
}
