//go:build rp2040

package main

import (
	_ "embed"
	"machine"
	"time"

	"ppmtx/config"
	"ppmtx/core"
	"ppmtx/tx"
)

//go:embed default_config.json
var defaultConfig []byte

// ppmStateMachine is the PIO0 state machine driving the PPM pin
const ppmStateMachine = 0

// Debug counters
var (
	panics uint32
	faults uint32
)

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()

	// run only returns on failure
	func() {
		defer func() {
			if r := recover(); r != nil {
				panics++
			}
		}()
		if err := run(); err != nil {
			faults++
		}
	}()

	blinkFault()
	resetViaWatchdog()
}

// run brings up the hardware and hands the CPU to the scheduler
func run() error {
	cfg, err := config.LoadConfig(defaultConfig)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	core.SetADCDriver(NewRPAdcDriver())
	core.SetGPIODriver(NewRPGPIODriver())

	ppm, err := NewPIOPulseTimer(ppmStateMachine, machine.Pin(cfg.Radio.PPMPin))
	if err != nil {
		return err
	}
	core.SetPulseTimer(ppm)

	t, err := tx.New(cfg, tx.Options{Port: usbPort{}})
	if err != nil {
		return err
	}
	ppm.SetInterrupt(t.OnPeriodElapsed)

	enc := newEncoderInput(cfg, t.PostEvent)
	tick := t.Tick
	if enc != nil {
		tick = func() {
			t.Tick()
			enc.poll()
		}
	}
	if err := StartTick(tick); err != nil {
		return err
	}

	t.Run()
	return nil
}

func blinkFault() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < 10; i++ {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}

// resetViaWatchdog restarts the chip; more reliable on RP2040 than
// SYSRESETREQ with USB attached
func resetViaWatchdog() {
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1}); err != nil {
		return
	}
	if err := machine.Watchdog.Start(); err != nil {
		return
	}
	for {
		time.Sleep(1 * time.Millisecond)
	}
}
