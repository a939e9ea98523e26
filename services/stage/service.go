// Package stage is the bus front-end for the motion core. It claims the
// stepper pins and two timers at start, consumes stage/control commands,
// ticks both axes from the frame timer, and retains per-axis position and
// state on the bus. The Axis machines are only ever touched from the service
// loop goroutine; timers signal the loop instead of calling in.
package stage

import (
	"context"
	"time"

	"stagecode-go/bus"
	"stagecode-go/drivers/a4988"
	"stagecode-go/errcode"
	"stagecode-go/hal"
	"stagecode-go/motion"
	"stagecode-go/types"
	"stagecode-go/x/timex"
)

const serviceName = "stage"

var (
	topicControl  = bus.T(serviceName, "control", bus.WildcardOne)
	topicState    = bus.T(serviceName, "state")
	topicConfig   = bus.T("config", serviceName)
	topicSettings = bus.T("settings", "value", bus.WildcardOne)
	topicInput    = bus.T("input", "event")
)

// AxisPins is the pin assignment for one a4988-driven axis.
type AxisPins struct {
	Step, Dir, Enable int
}

// Config wires the service to the board. YDriver, when set, replaces the
// a4988 built from YPins (the badge's Y axis is a four-coil stepper driven
// directly).
type Config struct {
	Registry hal.Registry

	XPins    AxisPins
	XEndstop int
	YPins    AxisPins
	YEndstop int
	YDriver  motion.StepDriver

	TickHz           uint32
	MaxPulsesPerTick int
	IdleTimeout      time.Duration

	// Initial travel ranges; live updates arrive via settings values.
	XRange, YRange int
}

const (
	defaultTickHz      = 200
	defaultIdleTimeout = 120 * time.Second
)

type Service struct {
	Name string
	cfg  Config

	ctrl    *motion.Controller
	frame   hal.TimerHandle
	house   hal.TimerHandle
	tickCh  chan struct{}
	houseCh chan struct{}

	enabled      bool
	lastActivity time.Time
	lastPos      map[string]int
	lastState    map[string]motion.State
	lastHomed    map[string]bool
}

func NewService(cfg Config) *Service {
	if cfg.TickHz == 0 {
		cfg.TickHz = defaultTickHz
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	return &Service{
		Name:      serviceName,
		cfg:       cfg,
		tickCh:    make(chan struct{}, 1),
		houseCh:   make(chan struct{}, 1),
		lastPos:   map[string]int{},
		lastState: map[string]motion.State{},
		lastHomed: map[string]bool{},
	}
}

// Start claims pins and timers, builds both axes and enters the service
// loop. A claim failure is a launch failure: the error state is retained on
// the bus and returned; nothing keeps running.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if err := s.claimAndBuild(); err != nil {
		e := &errcode.E{C: errcode.ResourceUnavailable, Op: "stage.start", Err: err}
		publishState(conn, "error", string(errcode.Of(err)))
		return e
	}

	s.frame.Start(s.cfg.TickHz, func() {
		select {
		case s.tickCh <- struct{}{}:
		default:
		}
	})
	s.house.Start(1, func() {
		select {
		case s.houseCh <- struct{}{}:
		default:
		}
	})

	go s.serviceLoop(ctx, conn)
	return nil
}

func (s *Service) claimAndBuild() error {
	reg := s.cfg.Registry

	xDrv, err := s.buildAxisDriver(s.cfg.XPins)
	if err != nil {
		return err
	}
	xEs, err := s.claimEndstop(s.cfg.XEndstop)
	if err != nil {
		return err
	}

	yDrv := s.cfg.YDriver
	if yDrv == nil {
		yDrv, err = s.buildAxisDriver(s.cfg.YPins)
		if err != nil {
			return err
		}
	}
	yEs, err := s.claimEndstop(s.cfg.YEndstop)
	if err != nil {
		return err
	}

	s.frame, err = reg.ClaimTimer(serviceName)
	if err != nil {
		return err
	}
	s.house, err = reg.ClaimTimer(serviceName)
	if err != nil {
		return err
	}

	x := motion.NewAxis(motion.AxisConfig{
		Name: "x", RangePulses: s.cfg.XRange, MaxPulsesPerTick: s.cfg.MaxPulsesPerTick,
	}, xDrv, xEs)
	y := motion.NewAxis(motion.AxisConfig{
		Name: "y", RangePulses: s.cfg.YRange, MaxPulsesPerTick: s.cfg.MaxPulsesPerTick,
	}, yDrv, yEs)
	s.ctrl = motion.NewController(x, y)
	return nil
}

func (s *Service) buildAxisDriver(pins AxisPins) (motion.StepDriver, error) {
	reg := s.cfg.Registry
	step, err := reg.ClaimPin(serviceName, pins.Step)
	if err != nil {
		return nil, err
	}
	dir, err := reg.ClaimPin(serviceName, pins.Dir)
	if err != nil {
		return nil, err
	}
	en, err := reg.ClaimPin(serviceName, pins.Enable)
	if err != nil {
		return nil, err
	}
	return a4988.New(step, dir, en, a4988.Config{})
}

// claimEndstop claims a switch-to-ground input; triggered means pulled low.
func (s *Service) claimEndstop(pin int) (motion.Endstop, error) {
	h, err := s.cfg.Registry.ClaimPin(serviceName, pin)
	if err != nil {
		return nil, err
	}
	if err := h.ConfigureInput(hal.PullUp); err != nil {
		return nil, err
	}
	return motion.EndstopFunc(func() bool { return !h.Get() }), nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	ctrlSub := conn.Subscribe(topicControl)
	defer conn.Unsubscribe(ctrlSub)
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)
	setSub := conn.Subscribe(topicSettings)
	defer conn.Unsubscribe(setSub)
	inSub := conn.Subscribe(topicInput)
	defer conn.Unsubscribe(inSub)

	s.enabled = false
	s.lastActivity = time.Now()
	s.publishAxes(conn, true)
	publishState(conn, "ready", "")

	for {
		select {
		case <-ctx.Done():
			s.ctrl.Stop()
			s.ctrl.SetEnabled(false)
			s.frame.Stop()
			s.house.Stop()
			publishState(conn, "stopped", "")
			return
		case <-s.tickCh:
			s.ctrl.Tick()
			s.publishAxes(conn, false)
		case <-s.houseCh:
			s.checkIdle()
		case msg := <-ctrlSub.Channel():
			s.handleControl(conn, msg)
		case msg := <-cfgSub.Channel():
			s.applyConfig(msg.Payload)
		case msg := <-setSub.Channel():
			s.applySetting(msg.Payload)
		case <-inSub.Channel():
			s.lastActivity = time.Now()
		}
	}
}

func (s *Service) handleControl(conn *bus.Connection, msg *bus.Message) {
	s.lastActivity = time.Now()

	op, _ := msg.Topic[2].(string)
	switch op {
	case "move":
		axis, pulses, ok := payloadMove(msg.Payload)
		if !ok {
			replyErr(conn, msg, errcode.InvalidPayload)
			return
		}
		a := s.ctrl.Axis(axis)
		if a == nil {
			replyErr(conn, msg, errcode.UnknownAxis)
			return
		}
		s.wake()
		a.Move(pulses)
		conn.Reply(msg, types.OKReply{OK: true}, false)
	case "moveto":
		axis, target, ok := payloadMoveTo(msg.Payload)
		if !ok {
			replyErr(conn, msg, errcode.InvalidPayload)
			return
		}
		a := s.ctrl.Axis(axis)
		if a == nil {
			replyErr(conn, msg, errcode.UnknownAxis)
			return
		}
		s.wake()
		a.MoveTo(target)
		conn.Reply(msg, types.OKReply{OK: true}, false)
	case "home":
		axis, ok := payloadAxis(msg.Payload)
		if !ok {
			replyErr(conn, msg, errcode.InvalidPayload)
			return
		}
		a := s.ctrl.Axis(axis)
		if a == nil {
			replyErr(conn, msg, errcode.UnknownAxis)
			return
		}
		s.wake()
		a.Home()
		conn.Reply(msg, types.OKReply{OK: true}, false)
	case "stop":
		s.ctrl.Stop()
		conn.Reply(msg, types.OKReply{OK: true}, false)
	default:
		replyErr(conn, msg, errcode.Unsupported)
	}
	s.publishAxes(conn, false)
}

// wake re-enables the drivers after an idle shutdown.
func (s *Service) wake() {
	if !s.enabled {
		s.ctrl.SetEnabled(true)
		s.enabled = true
	}
}

func (s *Service) checkIdle() {
	if s.enabled && !s.ctrl.Busy() && time.Since(s.lastActivity) >= s.cfg.IdleTimeout {
		s.ctrl.SetEnabled(false)
		s.enabled = false
	}
}

// applyConfig consumes the retained config/stage section.
func (s *Service) applyConfig(p any) {
	m, ok := p.(map[string]any)
	if !ok {
		return
	}
	if v, ok := m["idle_timeout_s"].(float64); ok && v > 0 {
		s.cfg.IdleTimeout = time.Duration(v) * time.Second
	}
	// tick_hz and max_pulses_per_tick are applied at build; a live frame
	// timer keeps its rate.
}

// applySetting reacts to travel-range changes from the settings service.
func (s *Service) applySetting(p any) {
	v, ok := p.(types.SettingValue)
	if !ok {
		return
	}
	n, ok := v.Value.(int)
	if !ok {
		return
	}
	switch v.Name {
	case "XRange":
		s.ctrl.X().SetRange(n)
	case "YRange":
		s.ctrl.Y().SetRange(n)
	}
}

// publishAxes retains position and state per axis, skipping unchanged values
// unless force is set.
func (s *Service) publishAxes(conn *bus.Connection, force bool) {
	now := timex.NowMs()
	for _, a := range []*motion.Axis{s.ctrl.X(), s.ctrl.Y()} {
		name := a.Name()
		if force || a.Position() != s.lastPos[name] || a.Homed() != s.lastHomed[name] {
			s.lastPos[name] = a.Position()
			s.lastHomed[name] = a.Homed()
			conn.Publish(&bus.Message{
				Topic: bus.T(serviceName, "axis", name, "position"),
				Payload: types.AxisPosition{
					Axis: types.AxisID(name), Pulses: a.Position(), Homed: a.Homed(), TSms: now,
				},
				Retained: true,
			})
		}
		if force || a.State() != s.lastState[name] {
			s.lastState[name] = a.State()
			conn.Publish(&bus.Message{
				Topic: bus.T(serviceName, "axis", name, "state"),
				Payload: types.AxisStatus{
					Axis: types.AxisID(name), State: types.AxisState(a.State().String()), TSms: now,
				},
				Retained: true,
			})
		}
	}
}

func publishState(conn *bus.Connection, level, errStr string) {
	conn.Publish(&bus.Message{
		Topic:    topicState,
		Payload:  types.ServiceState{Level: level, Error: errStr, TSms: timex.NowMs()},
		Retained: true,
	})
}

func replyErr(conn *bus.Connection, msg *bus.Message, err error) {
	conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
}

// ---- payload coercion ----

func payloadMove(p any) (axis string, pulses int, ok bool) {
	switch v := p.(type) {
	case types.StageMove:
		return string(v.Axis), v.Pulses, v.Axis != ""
	case map[string]any:
		axis, aok := v["axis"].(string)
		n, nok := v["pulses"].(float64)
		return axis, int(n), aok && nok
	}
	return "", 0, false
}

func payloadMoveTo(p any) (axis string, target int, ok bool) {
	switch v := p.(type) {
	case types.StageMoveTo:
		return string(v.Axis), v.Target, v.Axis != ""
	case map[string]any:
		axis, aok := v["axis"].(string)
		n, nok := v["target"].(float64)
		return axis, int(n), aok && nok
	}
	return "", 0, false
}

func payloadAxis(p any) (string, bool) {
	switch v := p.(type) {
	case types.StageHome:
		return string(v.Axis), v.Axis != ""
	case map[string]any:
		axis, ok := v["axis"].(string)
		return axis, ok
	}
	return "", false
}
