// Command stage-sim runs the whole firmware against simulated pins and
// timers: it scripts a jog sequence, closes the endstops at the right
// moments, and mirrors stage traffic to stdout. Useful for poking at the
// motion behaviour without a board attached.
package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"stagecode-go/bus"
	"stagecode-go/hal"
	configsvc "stagecode-go/services/config"
	heartbeatsvc "stagecode-go/services/heartbeat"
	settingssvc "stagecode-go/services/settings"
	stagesvc "stagecode-go/services/stage"
	uisvc "stagecode-go/services/ui"
	"stagecode-go/settings"
	"stagecode-go/types"
)

// Simulated board pin map; mirrors the badge assignments.
const (
	pinXStep    = 3
	pinXDir     = 0
	pinXEnable  = 1
	pinXEndstop = 2
	pinYStep    = 4
	pinYDir     = 5
	pinYEnable  = 6
	pinYEndstop = 8
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = context.WithValue(ctx, configsvc.CtxBoardKey, "sim")

	b := bus.NewBus(32)
	reg := hal.NewSimRegistry(
		pinXStep, pinXDir, pinXEnable, pinXEndstop,
		pinYStep, pinYDir, pinYEnable, pinYEndstop,
	)

	store, err := settings.NewStore(settings.StageSpecs(),
		&settings.FilePersister{Path: "stage-settings.json"})
	if err != nil {
		println("sim: settings store:", err.Error())
	}
	xRange, _ := store.GetInt("XRange")
	yRange, _ := store.GetInt("YRange")

	configsvc.NewService().Start(ctx, b.NewConnection("config"))
	settingssvc.NewService(store).Start(ctx, b.NewConnection("settings"))

	stage := stagesvc.NewService(stagesvc.Config{
		Registry: reg,
		XPins:    stagesvc.AxisPins{Step: pinXStep, Dir: pinXDir, Enable: pinXEnable},
		XEndstop: pinXEndstop,
		YPins:    stagesvc.AxisPins{Step: pinYStep, Dir: pinYDir, Enable: pinYEnable},
		YEndstop: pinYEndstop,
		TickHz:   200,
		XRange:   xRange,
		YRange:   yRange,
	})
	if err := stage.Start(ctx, b.NewConnection("stage")); err != nil {
		println("sim: stage launch failed:", err.Error())
		os.Exit(1)
	}

	uisvc.NewService(uisvc.Config{
		Display: &uisvc.ConsoleDisplay{W: os.Stdout},
	}).Start(ctx, b.NewConnection("ui"))
	(&heartbeatsvc.Service{}).Start(ctx, b.NewConnection("heartbeat"))

	conn := b.NewConnection("sim")

	// Mirror axis reports to the console.
	mon := conn.Subscribe(bus.T("stage", "axis", bus.WildcardAll))
	go func() {
		for m := range mon.Channel() {
			switch p := m.Payload.(type) {
			case types.AxisPosition:
				println("[axis]", string(p.Axis), "pos", p.Pulses, "homed", p.Homed)
			case types.AxisStatus:
				println("[axis]", string(p.Axis), "state", string(p.State))
			}
		}
	}()

	// Quit when the menu's Exit item fires.
	exit := conn.Subscribe(bus.T("ui", "exit"))
	go func() {
		<-exit.Channel()
		println("sim: exit requested")
		cancel()
		os.Exit(0)
	}()

	script(ctx, conn, reg)

	<-ctx.Done()
}

// script drives a short tour: jog X out, home it into its endstop, then jog
// Y and stop mid-move.
func script(ctx context.Context, conn *bus.Connection, reg *hal.SimRegistry) {
	req := func(topic bus.Topic, payload any) {
		rctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if _, err := conn.RequestWait(rctx, &bus.Message{Topic: topic, Payload: payload}); err != nil {
			println("sim: request failed:", err.Error())
		}
	}

	println("sim: jog X +200")
	req(bus.T("stage", "control", "move"), types.StageMove{Axis: types.AxisX, Pulses: 200})
	time.Sleep(500 * time.Millisecond)
	println("sim: steps on X so far: " + strconv.Itoa(reg.Pin(pinXStep).RisingEdges()))

	println("sim: closing X endstop and homing")
	reg.Pin(pinXEndstop).SetLevel(false)
	req(bus.T("stage", "control", "home"), types.StageHome{Axis: types.AxisX})
	time.Sleep(500 * time.Millisecond)

	println("sim: jog Y +400, stop mid-move")
	req(bus.T("stage", "control", "move"), types.StageMove{Axis: types.AxisY, Pulses: 400})
	time.Sleep(100 * time.Millisecond)
	req(bus.T("stage", "control", "stop"), nil)

	println("sim: script done; menu is live (publish input/event to drive it)")
}
