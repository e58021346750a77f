package mix

import "ppmtx/config"

// ABS pulse cycles and thresholds
const (
	ABSCycleSlowUS   = 120000
	ABSCycleNormalUS = 80000
	ABSCycleFastUS   = 60000

	// ABSReserveUS is how long full brake is held before pulsing starts
	ABSReserveUS = 40000

	// ABSThreshold is the brake magnitude above which ABS is active (50%)
	ABSThreshold = ValueMax / 2
)

// ABSCycleUS returns the pulse cycle of mode, 0 when off
func ABSCycleUS(mode config.ABSMode) uint32 {
	switch mode {
	case config.ABSSlow:
		return ABSCycleSlowUS
	case config.ABSNormal:
		return ABSCycleNormalUS
	case config.ABSFast:
		return ABSCycleFastUS
	}
	return 0
}

// ABS simulates anti-lock braking on the braking half of throttle.
// Once brake has been above the threshold for the reserve window, the
// applied brake is halved on every second half cycle.
type ABS struct {
	elapsed uint32 // us spent above threshold
}

// Reset returns to the released state
func (a *ABS) Reset() {
	a.elapsed = 0
}

// Apply modulates throttle for one frame of frameUS
func (a *ABS) Apply(throttle int16, mode config.ABSMode, frameUS uint32) int16 {
	cycle := ABSCycleUS(mode)
	if cycle == 0 || throttle > -ABSThreshold {
		a.elapsed = 0
		return throttle
	}

	a.elapsed += frameUS
	if a.elapsed <= ABSReserveUS {
		return throttle
	}

	phase := (a.elapsed - ABSReserveUS) % cycle
	if phase >= cycle/2 {
		return throttle / 2
	}
	return throttle
}

// Active reports whether brake is currently held above the threshold
func (a *ABS) Active() bool {
	return a.elapsed > ABSReserveUS
}
