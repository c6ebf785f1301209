package main

import (
	"context"
	"time"

	"github.com/Auto-one-Family/Automation-One-sub017/bus"
	"github.com/Auto-one-Family/Automation-One-sub017/services/command"
	"github.com/Auto-one-Family/Automation-One-sub017/services/config"
	"github.com/Auto-one-Family/Automation-One-sub017/services/pinmgr"
	"github.com/Auto-one-Family/Automation-One-sub017/services/telemetry"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot")

	ctx := context.Background()
	b := bus.NewBus(8)

	// Hardware baseline first: every pin inert before any service runs, so
	// a reset mid-operation cannot leave a load driven.
	mgr := pinmgr.NewOnboard()
	mgr.ForceAllPinsSafe()
	println("[main] all pins forced safe:", mgr.Board().Name)

	if err := mgr.AutoReserveBusPins(); err != nil {
		println("Error: bus pin reservation:", err.Error())
	}

	println("[main] starting services")
	pinSvc := pinmgr.NewService(b.NewConnection("pinmgr"), mgr)
	go pinSvc.Run(ctx)

	go command.Start(ctx, b.NewConnection("command"))

	tele := telemetry.NewService()
	_ = tele.Start(ctx, b.NewConnection("telemetry"))
	println("[main] boot id:", tele.BootID())

	// Config last: its retained documents trigger the link dial and the
	// telemetry interval, and everything above is already listening.
	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, mgr.Board().Name)
	config.NewConfigService().Start(cfgCtx, b.NewConnection("config"))

	// Idle heartbeat.
	tick := time.NewTicker(60 * time.Second)
	defer tick.Stop()
	for t := range tick.C {
		println("[main]", t.Format("15:04:05"), "up, pins available:", mgr.AvailablePinCount())
	}
}
