package mix

// SpeedNoLimit disables rate limiting
const SpeedNoLimit = 100

// MaxDelta is the largest change per frame allowed by speed (1..99),
// expressed per millisecond so the limit is independent of frame length.
func MaxDelta(speed uint8, frameUS uint32) int32 {
	d := int32(uint32(speed) * frameUS / 1000)
	if d < 1 {
		d = 1
	}
	return d
}

// step moves last toward target by at most delta
func step(last, target, delta int32) int32 {
	if target > last+delta {
		return last + delta
	}
	if target < last-delta {
		return last - delta
	}
	return target
}

// SpeedLimit bounds the change from last to target to the frame's MaxDelta.
// Speed 100 returns target unchanged.
func SpeedLimit(last, target int16, speed uint8, frameUS uint32) int16 {
	if speed >= SpeedNoLimit {
		return target
	}
	return int16(step(int32(last), int32(target), MaxDelta(speed, frameUS)))
}

// ThrottleSpeed limits throttle. With forwardOnly only acceleration in the
// forward direction is limited; braking and reverse follow the stick.
func ThrottleSpeed(last, target int16, speed uint8, forwardOnly bool, frameUS uint32) int16 {
	if forwardOnly && (target <= 0 || target <= last) {
		return target
	}
	return SpeedLimit(last, target, speed, frameUS)
}

// SteeringSpeed limits steering with separate rates for turning away from
// center (turn) and returning toward it (ret). A move that crosses center
// spends the return rate reaching it and the rest of the frame at the turn
// rate.
func SteeringSpeed(last, target int16, turn, ret uint8, frameUS uint32) int16 {
	l, t := int32(last), int32(target)
	if l == t || (turn >= SpeedNoLimit && ret >= SpeedNoLimit) {
		return target
	}

	toCenter := (l > 0 && t < l) || (l < 0 && t > l)
	if !toCenter {
		return SpeedLimit(last, target, turn, frameUS)
	}

	// Stays on the same side of center
	if (l > 0 && t >= 0) || (l < 0 && t <= 0) {
		return SpeedLimit(last, target, ret, frameUS)
	}

	// Crosses center: frac/1000 of the frame is left once center is reached
	dist := abs32(l)
	frac := int32(1000)
	if ret < SpeedNoLimit {
		rd := MaxDelta(ret, frameUS)
		if rd < dist {
			return int16(step(l, 0, rd))
		}
		frac = (rd - dist) * 1000 / rd
	}
	if turn >= SpeedNoLimit {
		return target
	}
	td := MaxDelta(turn, frameUS) * frac / 1000
	return int16(step(0, t, td))
}
