package core

import "sync/atomic"

// Timebase constants for the PPM pulse timer and the periodic tick
const (
	// PPMTimerFreq is the servo (fine) timebase: 0.5us per tick
	PPMTimerFreq = 2000000

	// SyncPrescaleRatio is how many fine ticks make one coarse (sync) tick
	SyncPrescaleRatio = 2

	// TickPeriodUS is the period of the Clock/Tick interrupt
	TickPeriodUS = 1000
)

// systemTicks counts fine ticks since boot; the tick interrupt advances it
var systemTicks uint32

// GetTime returns the current system time in PPM fine ticks
func GetTime() uint32 {
	return atomic.LoadUint32(&systemTicks)
}

func addSystemTicks(delta uint32) {
	atomic.AddUint32(&systemTicks, delta)
}

// TicksFromUS converts microseconds to fine PPM ticks
func TicksFromUS(us uint32) uint32 {
	return us * (PPMTimerFreq / 1000000)
}

// TicksToUS converts fine PPM ticks to microseconds (truncating)
func TicksToUS(ticks uint32) uint32 {
	return ticks / (PPMTimerFreq / 1000000)
}

// TicksFromValue converts a channel value (0.1us offset from 1500us) to the
// full pulse period in fine ticks, rounded to the nearest tick.
func TicksFromValue(v int16) uint32 {
	return uint32((15000+int32(v))*2+5) / 10
}

// CoarseTicks converts fine ticks to the sync timebase, rounded to nearest.
func CoarseTicks(fine uint32) uint32 {
	return (fine + SyncPrescaleRatio/2) / SyncPrescaleRatio
}
