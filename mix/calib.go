package mix

import "ppmtx/config"

// Value range in 0.1us around 1500us
const (
	ValueMax = 5000
	ValueMin = -ValueMax
)

// Calibrate maps an oversampled ADC reading to -5000..5000.
// Readings are clamped to [Left, Right] and read as 0 within Dead of Mid.
// The two sides are scaled independently; a side whose span vanishes inside
// the dead zone reads as full deflection.
func Calibrate(raw uint16, cal config.CalibrationPoint) int16 {
	left, mid, right, dead := int32(cal.Left), int32(cal.Mid), int32(cal.Right), int32(cal.Dead)
	v := int32(raw)

	if v < left {
		v = left
	}
	if v > right {
		v = right
	}

	if v > mid+dead {
		span := right - mid - dead
		if span <= 0 {
			return ValueMax
		}
		return int16((v - mid - dead) * ValueMax / span)
	}
	if v < mid-dead {
		span := mid - dead - left
		if span <= 0 {
			return ValueMin
		}
		return int16(-((mid - dead - v) * ValueMax / span))
	}
	return 0
}

// clamp limits v to [-limit, limit]
func clamp(v int32, limit int32) int16 {
	if v > limit {
		return int16(limit)
	}
	if v < -limit {
		return int16(-limit)
	}
	return int16(v)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
