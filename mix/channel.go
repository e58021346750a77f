package mix

import "ppmtx/config"

// OutputLimit is the final clamp after endpoint, trim and subtrim (700..2300us)
const OutputLimit = 8000

// ChannelParams applies endpoint, trim, subtrim and reverse to the value of
// channel ch (1-based). Only channels 1 and 2 carry trim.
func ChannelParams(ch int, v int16, mc *config.MixConfig) int16 {
	in := int32(clamp(int32(v), ValueMax))

	side := config.SideRight
	if in < 0 {
		side = config.SideLeft
	}
	out := in * int32(mc.Endpoint[ch-1][side]) / 100

	if ch <= len(mc.Trim) {
		trim := int32(mc.Trim[ch-1]) * config.TrimStep
		// Full trim at center, none at full deflection
		out += trim * (ValueMax - abs32(in)) / ValueMax
	}

	out += int32(mc.Subtrim[ch-1]) * config.TrimStep

	if mc.Reversed(ch) {
		out = -out
	}
	return clamp(out, OutputLimit)
}

// FourWS splits steering into front and rear. A positive mix makes the rear
// follow at mix percent; a negative mix keeps the rear at full and reduces
// the front to (100+mix) percent. The rear is opposite to the front unless
// crab is set.
func FourWS(steer int16, mix int8, crab bool) (front, rear int16) {
	s := int32(steer)
	f, r := s, s
	if mix >= 0 {
		r = s * int32(mix) / 100
	} else {
		f = s * (100 + int32(mix)) / 100
	}
	if !crab {
		r = -r
	}
	return int16(f), int16(r)
}

// DIG splits throttle into two motor channels. A positive mix reduces the
// second motor, a negative one the first. With brakeCut the reduction
// doubles, so a full mix drives the reduced motor backwards.
func DIG(throttle int16, mix int8, brakeCut bool) (first, second int16) {
	t := int32(throttle)
	red := abs32(int32(mix))
	if brakeCut {
		red *= 2
	}
	reduced := t * (100 - red) / 100
	if mix > 0 {
		return throttle, int16(reduced)
	}
	if mix < 0 {
		return int16(reduced), throttle
	}
	return throttle, throttle
}

// BrakeChannel remaps the braking half of throttle (0..-5000) to a full
// servo range (-5000..5000). Forward throttle gives brake released.
func BrakeChannel(throttle int16) int16 {
	if throttle >= 0 {
		return ValueMin
	}
	return clamp(-int32(throttle)*2-ValueMax, ValueMax)
}

// Percent converts a stored -100..100 percentage to channel units
func Percent(p int8) int16 {
	return int16(int32(p) * ValueMax / 100)
}
