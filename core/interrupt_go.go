//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// irqLock stands in for the interrupt mask: on the host the "interrupts" are
// goroutines (simulated timers), so critical sections serialize on a mutex.
var irqLock sync.Mutex

// disableInterrupts enters a critical section shared with simulated interrupts
func disableInterrupts() State {
	irqLock.Lock()
	return 0
}

// restoreInterrupts leaves the critical section
func restoreInterrupts(state State) {
	irqLock.Unlock()
}

// Interrupt runs an interrupt body the way hardware would: never concurrently
// with a task-side critical section or with another interrupt body.
func Interrupt(isr func()) {
	irqLock.Lock()
	defer irqLock.Unlock()
	isr()
}
