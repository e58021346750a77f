package core

// Timebase selects the prescaler used for one pulse
type Timebase uint8

const (
	// TimebaseServo is the fine timebase for channel pulses (up to ~3.5ms)
	TimebaseServo Timebase = iota
	// TimebaseSync is the coarse timebase for the sync pulse (up to ~28ms)
	TimebaseSync
)

// PulseTimer is the abstract output-compare/auto-reload timer that emits
// PPM pulses. Period and mark are always given in fine ticks; a backend that
// really switches prescalers for TimebaseSync converts with CoarseTicks.
type PulseTimer interface {
	// Load sets the pulse that starts at the next update event.
	// The pin is driven for mark ticks, then idles for period-mark ticks.
	Load(tb Timebase, period uint32, mark uint16)

	// Enable starts the counter with the period-elapsed interrupt armed.
	Enable()

	// ForceUpdate generates an update event now: the loaded pulse starts
	// immediately and the period-elapsed interrupt fires.
	ForceUpdate()
}

// Global singleton used by core code.
var pulseTimer PulseTimer

// SetPulseTimer is called by target-specific code to register its timer.
func SetPulseTimer(t PulseTimer) {
	pulseTimer = t
}

// MustPulseTimer returns the configured timer or panics if missing.
func MustPulseTimer() PulseTimer {
	if pulseTimer == nil {
		panic("PPM pulse timer not configured")
	}
	return pulseTimer
}

// HasPulseTimer reports whether a timer was registered
func HasPulseTimer() bool {
	return pulseTimer != nil
}
