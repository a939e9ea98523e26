//go:build rp2040

package main

import (
	"context"
	"runtime"
	"time"

	"stagecode-go/bus"
	"stagecode-go/hal"
	configsvc "stagecode-go/services/config"
	heartbeatsvc "stagecode-go/services/heartbeat"
	inputsvc "stagecode-go/services/input"
	settingssvc "stagecode-go/services/settings"
	stagesvc "stagecode-go/services/stage"
	uisvc "stagecode-go/services/ui"
	"stagecode-go/settings"
	"stagecode-go/types"
)

// Y axis coil stepper geometry (28BYJ-48 style gearbox).
const (
	yStepCount = 2048
	yRPM       = 12
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(3 * time.Second)
	println("[main] boot")

	ctx := context.WithValue(context.Background(), configsvc.CtxBoardKey, "badge")
	b := bus.NewBus(8)
	reg := hal.NewBoardRegistry()

	// Flash-less board: settings live in RAM, defaults on every boot.
	store, err := settings.NewStore(settings.StageSpecs(), &settings.MemPersister{})
	if err != nil {
		println("[main] settings store:", err.Error())
	}
	xRange, _ := store.GetInt("XRange")
	yRange, _ := store.GetInt("YRange")

	println("[main] starting config + settings …")
	configsvc.NewService().Start(ctx, b.NewConnection("config"))
	settingssvc.NewService(store).Start(ctx, b.NewConnection("settings"))

	println("[main] starting stage …")
	yDrv, err := hal.NewCoilStepper(yStepCount, yRPM)
	if err != nil {
		println("[main] coil stepper:", err.Error())
		return
	}
	stage := stagesvc.NewService(stagesvc.Config{
		Registry: reg,
		XPins:    stagesvc.AxisPins{Step: hal.PinXStep, Dir: hal.PinXDir, Enable: hal.PinXEnable},
		XEndstop: hal.PinXEndstop,
		YDriver:  yDrv,
		YEndstop: hal.PinYEndstop,
		TickHz:   200,
		XRange:   xRange,
		YRange:   yRange,
	})
	if err := stage.Start(ctx, b.NewConnection("stage")); err != nil {
		println("[main] stage launch failed:", err.Error())
		// Keep the bus and UI up so the failure is visible on the console.
	}

	println("[main] starting input + ui + heartbeat …")
	input := inputsvc.NewService(inputsvc.Config{
		Registry: reg,
		Pins: map[types.Button]int{
			types.ButtonUp:      hal.PinBtnUp,
			types.ButtonDown:    hal.PinBtnDown,
			types.ButtonLeft:    hal.PinBtnLeft,
			types.ButtonRight:   hal.PinBtnRight,
			types.ButtonConfirm: hal.PinBtnConfirm,
			types.ButtonCancel:  hal.PinBtnCancel,
		},
	})
	if err := input.Start(ctx, b.NewConnection("input")); err != nil {
		println("[main] input launch failed:", err.Error())
	}
	uisvc.NewService(uisvc.Config{
		Display: &uisvc.ConsoleDisplay{W: hal.Console()},
	}).Start(ctx, b.NewConnection("ui"))
	(&heartbeatsvc.Service{}).Start(ctx, b.NewConnection("heartbeat"))

	tick := time.NewTicker(10 * time.Second)
	defer tick.Stop()
	for range tick.C {
		printMem()
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
// Uses builtin println to avoid fmt overhead/allocations.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
