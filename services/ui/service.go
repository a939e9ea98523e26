// Package ui is the badge's menu layer: a small screen stack (main menu,
// stage jog screen, settings list and editor, about) driven by button events
// from the input service. Held directional buttons auto-repeat with
// accelerating speed and power-of-ten steps.
package ui

import (
	"context"
	"strconv"
	"time"

	"stagecode-go/bus"
	"stagecode-go/types"
	"stagecode-go/x/mathx"
	"stagecode-go/x/timex"
)

const serviceName = "ui"

var (
	topicState    = bus.T(serviceName, "state")
	topicExit     = bus.T(serviceName, "exit")
	topicConfig   = bus.T("config", serviceName)
	topicInput    = bus.T("input", "event")
	topicStageCmd = bus.T("stage", "control", "move")
	topicPosition = bus.T("stage", "axis", bus.WildcardOne, "position")
	topicAxState  = bus.T("stage", "axis", bus.WildcardOne, "state")
)

type screen uint8

const (
	screenMenu screen = iota
	screenStage
	screenSettings
	screenEdit
	screenAbout
)

var menuItems = []string{"XYStage", "Settings", "About", "Exit"}

const (
	menuStage = iota
	menuSettings
	menuAbout
	menuExit
)

type Config struct {
	Display Display
	// JogPulses is the base jog per button event on the stage screen; held
	// buttons scale it by powers of ten.
	JogPulses int

	RepeatStart time.Duration
	RepeatMin   time.Duration
}

const (
	defaultJogPulses = 10
	maxJogLevel      = 2 // cap held jog at 100x base
	requestTimeout   = 250 * time.Millisecond
)

type axisView struct {
	pos   int
	homed bool
	state types.AxisState
}

type Service struct {
	Name string
	cfg  Config
	conn *bus.Connection

	scr    screen
	cursor int

	list     []types.SettingInfo
	listErr  string
	editIdx  int
	editName string
	editVal  int
	editMin  int
	editMax  int
	editDef  int
	editErr  string

	x, y axisView

	held    types.Button
	rep     *repeater
	repeatT *time.Timer
}

func NewService(cfg Config) *Service {
	if cfg.Display == nil {
		cfg.Display = &RecordingDisplay{}
	}
	if cfg.JogPulses <= 0 {
		cfg.JogPulses = defaultJogPulses
	}
	return &Service{
		Name: serviceName,
		cfg:  cfg,
		rep:  newRepeater(cfg.RepeatStart, cfg.RepeatMin),
	}
}

func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go s.serviceLoop(ctx, conn)
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	s.conn = conn

	inSub := conn.Subscribe(topicInput)
	defer conn.Unsubscribe(inSub)
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)
	posSub := conn.Subscribe(topicPosition)
	defer conn.Unsubscribe(posSub)
	axSub := conn.Subscribe(topicAxState)
	defer conn.Unsubscribe(axSub)

	s.repeatT = time.NewTimer(time.Hour)
	s.repeatT.Stop()
	defer s.repeatT.Stop()

	// Retained axis reports overwrite these on subscribe.
	s.x.state, s.y.state = types.AxisIdle, types.AxisIdle

	s.render()
	conn.Publish(&bus.Message{
		Topic:    topicState,
		Payload:  types.ServiceState{Level: "ready", TSms: timex.NowMs()},
		Retained: true,
	})

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-inSub.Channel():
			if ev, ok := msg.Payload.(types.InputEvent); ok {
				s.onInput(ev)
			}
		case msg := <-cfgSub.Channel():
			s.applyConfig(msg.Payload)
		case msg := <-posSub.Channel():
			if p, ok := msg.Payload.(types.AxisPosition); ok {
				s.onPosition(p)
			}
		case msg := <-axSub.Channel():
			if st, ok := msg.Payload.(types.AxisStatus); ok {
				s.onAxisState(st)
			}
		case <-s.repeatT.C:
			if s.held == "" {
				continue
			}
			iv, level := s.rep.Fire()
			s.handle(s.held, level)
			s.repeatT.Reset(iv)
		}
	}
}

func (s *Service) applyConfig(p any) {
	m, ok := p.(map[string]any)
	if !ok {
		return
	}
	start, min := s.rep.startDelay, s.rep.minInterval
	if v, ok := m["repeat_start_ms"].(float64); ok && v > 0 {
		start = time.Duration(v) * time.Millisecond
	}
	if v, ok := m["repeat_min_ms"].(float64); ok && v > 0 {
		min = time.Duration(v) * time.Millisecond
	}
	s.rep = newRepeater(start, min)
}

func (s *Service) onPosition(p types.AxisPosition) {
	switch p.Axis {
	case types.AxisX:
		s.x.pos, s.x.homed = p.Pulses, p.Homed
	case types.AxisY:
		s.y.pos, s.y.homed = p.Pulses, p.Homed
	}
	if s.scr == screenStage {
		s.render()
	}
}

func (s *Service) onAxisState(st types.AxisStatus) {
	switch st.Axis {
	case types.AxisX:
		s.x.state = st.State
	case types.AxisY:
		s.y.state = st.State
	}
	if s.scr == screenStage {
		s.render()
	}
}

func (s *Service) onInput(ev types.InputEvent) {
	if !ev.Pressed {
		if ev.Button == s.held {
			s.held = ""
			s.repeatT.Stop()
		}
		return
	}
	if repeatable(ev.Button) {
		s.held = ev.Button
		s.repeatT.Reset(s.rep.Press())
	}
	s.handle(ev.Button, 0)
}

func repeatable(b types.Button) bool {
	switch b {
	case types.ButtonUp, types.ButtonDown, types.ButtonLeft, types.ButtonRight:
		return true
	}
	return false
}

// handle applies one button action at the given acceleration level, then
// redraws.
func (s *Service) handle(b types.Button, level int) {
	switch s.scr {
	case screenMenu:
		s.handleMenu(b)
	case screenStage:
		s.handleStage(b, level)
	case screenSettings:
		s.handleSettings(b)
	case screenEdit:
		s.handleEdit(b, level)
	case screenAbout:
		if b == types.ButtonCancel || b == types.ButtonConfirm {
			s.scr = screenMenu
		}
	}
	s.render()
}

// ---- main menu ----

func (s *Service) handleMenu(b types.Button) {
	switch b {
	case types.ButtonUp:
		s.cursor = (s.cursor + len(menuItems) - 1) % len(menuItems)
	case types.ButtonDown:
		s.cursor = (s.cursor + 1) % len(menuItems)
	case types.ButtonConfirm:
		switch s.cursor {
		case menuStage:
			s.scr = screenStage
		case menuSettings:
			s.refreshSettings()
			s.scr = screenSettings
			s.cursor = 0
		case menuAbout:
			s.scr = screenAbout
		case menuExit:
			s.conn.Publish(&bus.Message{Topic: topicExit, Payload: types.OKReply{OK: true}})
		}
	}
}

// ---- stage jog screen ----

func (s *Service) handleStage(b types.Button, level int) {
	if level > maxJogLevel {
		level = maxJogLevel
	}
	jog := s.cfg.JogPulses * mathx.Pow10(level)
	switch b {
	case types.ButtonLeft:
		s.jog(types.AxisX, -jog)
	case types.ButtonRight:
		s.jog(types.AxisX, jog)
	case types.ButtonUp:
		s.jog(types.AxisY, jog)
	case types.ButtonDown:
		s.jog(types.AxisY, -jog)
	case types.ButtonConfirm:
		s.home(types.AxisX)
		s.home(types.AxisY)
	case types.ButtonCancel:
		s.conn.Publish(&bus.Message{Topic: bus.T("stage", "control", "stop")})
		s.scr = screenMenu
		s.cursor = menuStage
	}
}

func (s *Service) jog(axis types.AxisID, pulses int) {
	s.conn.Publish(&bus.Message{
		Topic:   topicStageCmd,
		Payload: types.StageMove{Axis: axis, Pulses: pulses},
	})
}

func (s *Service) home(axis types.AxisID) {
	s.conn.Publish(&bus.Message{
		Topic:   bus.T("stage", "control", "home"),
		Payload: types.StageHome{Axis: axis},
	})
}

// ---- settings list ----

func (s *Service) refreshSettings() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	reply, err := s.conn.RequestWait(ctx, &bus.Message{Topic: bus.T("settings", "control", "list")})
	if err != nil {
		s.list = nil
		s.listErr = "settings unavailable"
		return
	}
	l, ok := reply.Payload.(types.SettingsList)
	if !ok {
		s.list = nil
		s.listErr = "settings unavailable"
		return
	}
	s.list = l.Settings
	s.listErr = ""
}

func (s *Service) handleSettings(b types.Button) {
	switch b {
	case types.ButtonUp:
		if len(s.list) > 0 {
			s.cursor = (s.cursor + len(s.list) - 1) % len(s.list)
		}
	case types.ButtonDown:
		if len(s.list) > 0 {
			s.cursor = (s.cursor + 1) % len(s.list)
		}
	case types.ButtonConfirm:
		if s.cursor >= len(s.list) {
			return
		}
		info := s.list[s.cursor]
		if info.Bool {
			cur, _ := info.Value.(bool)
			s.requestSet(info.Name, !cur)
			s.refreshSettings()
			return
		}
		s.enterEditor(s.cursor)
	case types.ButtonCancel:
		s.scr = screenMenu
		s.cursor = menuSettings
	}
}

func (s *Service) enterEditor(idx int) {
	info := s.list[idx]
	val, _ := info.Value.(int)
	def, _ := info.Default.(int)
	s.editIdx = idx
	s.editName = info.Name
	s.editVal = val
	s.editMin = info.Min
	s.editMax = info.Max
	s.editDef = def
	s.editErr = ""
	s.scr = screenEdit
}

// ---- settings editor ----

func (s *Service) handleEdit(b types.Button, level int) {
	switch b {
	case types.ButtonUp:
		s.editVal = mathx.Min(mathx.IncPow10(s.editVal, level), s.editMax)
		s.editErr = ""
	case types.ButtonDown:
		s.editVal = mathx.Max(mathx.DecPow10(s.editVal, level), s.editMin)
		s.editErr = ""
	case types.ButtonRight:
		s.editVal = s.editDef
		s.editErr = ""
	case types.ButtonConfirm:
		if err := s.requestSet(s.editName, s.editVal); err != "" {
			s.editErr = err
			return
		}
		s.refreshSettings()
		s.scr = screenSettings
		s.cursor = s.editIdx
	case types.ButtonCancel:
		s.scr = screenSettings
		s.cursor = s.editIdx
	}
}

// requestSet sends a settings set and returns the error code string, empty
// on success.
func (s *Service) requestSet(name string, value any) string {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	reply, err := s.conn.RequestWait(ctx, &bus.Message{
		Topic:   bus.T("settings", "control", "set"),
		Payload: types.SettingsSet{Name: name, Value: value},
	})
	if err != nil {
		return "timeout"
	}
	if e, ok := reply.Payload.(types.ErrorReply); ok {
		return e.Error
	}
	return ""
}

// ---- rendering ----

func (s *Service) render() {
	var rows []string
	switch s.scr {
	case screenMenu:
		rows = append(rows, "== XY Stage ==")
		for i, item := range menuItems {
			rows = append(rows, cursorMark(i == s.cursor)+item)
		}
	case screenStage:
		rows = append(rows,
			"== Stage ==",
			"X "+axisRow(s.x),
			"Y "+axisRow(s.y),
			"ok:home  cancel:back",
		)
	case screenSettings:
		rows = append(rows, "== Settings ==")
		if s.listErr != "" {
			rows = append(rows, s.listErr)
			break
		}
		for i, info := range s.list {
			rows = append(rows, cursorMark(i == s.cursor)+info.Name+" = "+valueString(info.Value))
		}
	case screenEdit:
		rows = append(rows,
			"== "+s.editName+" ==",
			"value: "+strconv.Itoa(s.editVal),
			"range: "+strconv.Itoa(s.editMin)+" to "+strconv.Itoa(s.editMax),
		)
		if s.editErr != "" {
			rows = append(rows, "error: "+s.editErr)
		}
	case screenAbout:
		rows = append(rows,
			"== About ==",
			"XY stage badge add-on",
			"two axes, two endstops",
		)
	}
	s.cfg.Display.Show(rows)
}

func cursorMark(on bool) string {
	if on {
		return "> "
	}
	return "  "
}

func axisRow(a axisView) string {
	row := strconv.Itoa(a.pos) + " " + string(a.state)
	if a.homed {
		row += " homed"
	}
	return row
}

func valueString(v any) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case bool:
		if x {
			return "on"
		}
		return "off"
	}
	return "?"
}
