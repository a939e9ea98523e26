// Package input polls the six navswitch buttons and publishes an event for
// every press and release edge. Buttons are switch-to-ground with pull-ups,
// so a low level is a press.
package input

import (
	"context"

	"stagecode-go/bus"
	"stagecode-go/errcode"
	"stagecode-go/hal"
	"stagecode-go/types"
	"stagecode-go/x/timex"
)

const serviceName = "input"

var (
	topicEvent = bus.T(serviceName, "event")
	topicState = bus.T(serviceName, "state")
)

type Config struct {
	Registry hal.Registry
	// Pins maps each button to its GPIO number.
	Pins map[types.Button]int
	// PollHz is the scan rate; 100 Hz is plenty for a thumb switch.
	PollHz uint32
}

const defaultPollHz = 100

type button struct {
	name types.Button
	pin  hal.GPIOHandle
	down bool
}

type Service struct {
	Name string
	cfg  Config

	buttons []*button
	timer   hal.TimerHandle
	pollCh  chan struct{}
}

func NewService(cfg Config) *Service {
	if cfg.PollHz == 0 {
		cfg.PollHz = defaultPollHz
	}
	return &Service{Name: serviceName, cfg: cfg, pollCh: make(chan struct{}, 1)}
}

// Start claims the button pins and one poll timer. Claim failure is a launch
// failure, retained on the state topic and returned.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if err := s.claim(); err != nil {
		publishState(conn, "error", string(errcode.Of(err)))
		return &errcode.E{C: errcode.ResourceUnavailable, Op: "input.start", Err: err}
	}
	s.timer.Start(s.cfg.PollHz, func() {
		select {
		case s.pollCh <- struct{}{}:
		default:
		}
	})
	go s.serviceLoop(ctx, conn)
	return nil
}

func (s *Service) claim() error {
	for name, n := range s.cfg.Pins {
		h, err := s.cfg.Registry.ClaimPin(serviceName, n)
		if err != nil {
			return err
		}
		if err := h.ConfigureInput(hal.PullUp); err != nil {
			return err
		}
		s.buttons = append(s.buttons, &button{name: name, pin: h})
	}
	t, err := s.cfg.Registry.ClaimTimer(serviceName)
	if err != nil {
		return err
	}
	s.timer = t
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	publishState(conn, "ready", "")
	for {
		select {
		case <-ctx.Done():
			s.timer.Stop()
			publishState(conn, "stopped", "")
			return
		case <-s.pollCh:
			s.scan(conn)
		}
	}
}

// scan reads every button and publishes the edges since the last poll.
func (s *Service) scan(conn *bus.Connection) {
	now := timex.NowMs()
	for _, b := range s.buttons {
		down := !b.pin.Get()
		if down == b.down {
			continue
		}
		b.down = down
		conn.Publish(&bus.Message{
			Topic:   topicEvent,
			Payload: types.InputEvent{Button: b.name, Pressed: down, TSms: now},
		})
	}
}

func publishState(conn *bus.Connection, level, errStr string) {
	conn.Publish(&bus.Message{
		Topic:    topicState,
		Payload:  types.ServiceState{Level: level, Error: errStr, TSms: timex.NowMs()},
		Retained: true,
	})
}
