//go:build rp2040

package main

// PPM pulse timer on a PIO state machine.
//
// Each FIFO word is one pulse: bits 0-15 hold the mark loop count, bits
// 16-31 the space loop count. The machine raises PIO IRQ 0 as soon as it
// pulls a word, which is the update event of core.PulseTimer: the pulse just
// pulled has started and the next one may be loaded.

import (
	"device/rp"
	"machine"
	"runtime/interrupt"

	"ppmtx/core"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// Fixed instruction overhead per pulse, in state machine cycles
const (
	ppmMarkOverhead  = 2 // set pins, 1 + final jmp x--
	ppmSpaceOverhead = 6 // set pins, 0 + final jmp y-- + pull + irq + 2 out
)

// pioIRQ0 is "irq nowait 0"
const pioIRQ0 = 0xc000

// INTE bit for state machine IRQ flag 0
const pioInteSM0 = 1 << 8

func buildPPMProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),           // 0: pull block
		pioIRQ0,                                  // 1: irq nowait 0
		asm.Out(rp2pio.OutDestX, 16).Encode(),    // 2: out x, 16 (mark)
		asm.Out(rp2pio.OutDestY, 16).Encode(),    // 3: out y, 16 (space)
		asm.Set(rp2pio.SetDestPins, 1).Encode(),  // 4: set pins, 1
		asm.Jmp(5, rp2pio.JmpXNZeroDec).Encode(), // 5: jmp x--, 5
		asm.Set(rp2pio.SetDestPins, 0).Encode(),  // 6: set pins, 0
		asm.Jmp(7, rp2pio.JmpYNZeroDec).Encode(), // 7: jmp y--, 7
		// .wrap
	}
}

const ppmPIOOrigin = 0

// PIOPulseTimer implements core.PulseTimer with one state machine clocked
// at the fine PPM timebase, one cycle per tick
type PIOPulseTimer struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	pin    machine.Pin
	offset uint8
	irq    func()
	errors uint32
}

var ppmTimer *PIOPulseTimer

// NewPIOPulseTimer loads the PPM program on PIO0 state machine smNum
// driving pin. The machine stays stopped until Enable.
func NewPIOPulseTimer(smNum uint8, pin machine.Pin) (*PIOPulseTimer, error) {
	t := &PIOPulseTimer{
		pio: rp2pio.PIO0,
		sm:  rp2pio.PIO0.StateMachine(smNum),
		pin: pin,
	}
	t.sm.TryClaim()

	program := buildPPMProgram()
	offset, err := t.pio.AddProgram(program, ppmPIOOrigin)
	if err != nil {
		return nil, err
	}
	t.offset = offset

	t.pin.Configure(machine.PinConfig{Mode: t.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(t.pin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)

	whole, frac, err := rp2pio.ClkDivFromFrequency(core.PPMTimerFreq, machine.CPUFrequency())
	if err != nil {
		return nil, err
	}
	cfg.SetClkDivIntFrac(whole, frac)

	t.sm.Init(offset, cfg)
	t.sm.SetPindirsConsecutive(t.pin, 1, true)
	t.sm.SetPinsConsecutive(t.pin, 1, false)

	ppmTimer = t
	rp.PIO0.IRQ0_INTE.SetBits(pioInteSM0)
	intr := interrupt.New(rp.IRQ_PIO0_IRQ_0, handlePPMInterrupt)
	intr.Enable()

	return t, nil
}

// SetInterrupt installs the period-elapsed handler
func (t *PIOPulseTimer) SetInterrupt(irq func()) {
	t.irq = irq
}

// Load queues the next pulse. Sync pulses are given in fine ticks like
// channel pulses; at one cycle per fine tick the 16 bit counters cover
// every frame length the configuration allows.
func (t *PIOPulseTimer) Load(tb core.Timebase, period uint32, mark uint16) {
	if uint32(mark) < ppmMarkOverhead || period < uint32(mark)+ppmSpaceOverhead {
		t.errors++
		core.RecordTiming(core.EvtPulseTooShort, 0, period, uint32(mark))
		return
	}
	x := uint32(mark) - ppmMarkOverhead
	y := period - uint32(mark) - ppmSpaceOverhead
	if y > 0xffff {
		y = 0xffff
	}
	for t.sm.IsTxFIFOFull() {
	}
	t.sm.TxPut(x | y<<16)
}

// Enable starts the state machine; it pulls the loaded pulse right away
func (t *PIOPulseTimer) Enable() {
	t.sm.SetEnabled(true)
}

// ForceUpdate has nothing to do: a stalled pull starts the loaded pulse as
// soon as the machine runs
func (t *PIOPulseTimer) ForceUpdate() {}

// Stop halts output and drops queued pulses
func (t *PIOPulseTimer) Stop() {
	t.sm.SetEnabled(false)
	t.sm.ClearFIFOs()
	t.sm.Restart()
	t.sm.Exec(rp2pio.EncodeJmp(t.offset, rp2pio.JmpAlways))
	t.sm.SetPinsConsecutive(t.pin, 1, false)
}

// Errors returns how many pulses were rejected as too short
func (t *PIOPulseTimer) Errors() uint32 {
	return t.errors
}

func handlePPMInterrupt(interrupt.Interrupt) {
	// Write 1 to clear
	rp.PIO0.IRQ.Set(1)
	if t := ppmTimer; t != nil && t.irq != nil {
		core.Interrupt(t.irq)
	}
}
