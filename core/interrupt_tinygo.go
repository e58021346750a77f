//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}

// Interrupt runs an interrupt body. On hardware the body is already executing
// in interrupt context, so it is called directly.
func Interrupt(isr func()) {
	isr()
}
