//go:build rp2040

package main

import (
	"device/rp"
	"machine"
	"runtime/interrupt"

	"ppmtx/core"
)

// The tick comes from the wrap interrupt of a PWM slice. No pin is muxed to
// the slice, so it only counts.
const tickSlice = 7

var tickHandler func()

// StartTick calls tick from interrupt context every core.TickPeriodUS
func StartTick(tick func()) error {
	err := machine.PWM7.Configure(machine.PWMConfig{
		Period: core.TickPeriodUS * 1000,
	})
	if err != nil {
		return err
	}

	tickHandler = tick
	rp.PWM.INTR.Set(1 << tickSlice)
	rp.PWM.INTE.SetBits(1 << tickSlice)
	intr := interrupt.New(rp.IRQ_PWM_IRQ_WRAP, handleTickInterrupt)
	intr.Enable()
	return nil
}

func handleTickInterrupt(interrupt.Interrupt) {
	// Write 1 to clear
	rp.PWM.INTR.Set(1 << tickSlice)
	if tickHandler != nil {
		core.Interrupt(tickHandler)
	}
}
