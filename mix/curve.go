package mix

// expou is the positive-expo curve on a magnitude 0..5000, e in 0..99:
// (x^3*e/5000^2 + x*(100-e) + 50) / 100
func expou(x, e int32) int32 {
	cubic := int32(int64(x) * int64(x) * int64(x) * int64(e) / (ValueMax * ValueMax))
	return (cubic + x*(100-e) + 50) / 100
}

// Expo applies a cubic expo curve with factor e (-99..99) to v.
// Positive e softens the center, negative e sharpens it. The sign of v is
// kept and |v| is limited to 5000.
func Expo(v int16, e int8) int16 {
	if e == 0 {
		return v
	}
	x := abs32(int32(v))
	if x > ValueMax {
		x = ValueMax
	}

	var y int32
	if e > 0 {
		y = expou(x, int32(e))
	} else {
		y = ValueMax - expou(ValueMax-x, -int32(e))
	}

	if v < 0 {
		return int16(-y)
	}
	return int16(y)
}

// DualRate scales v by percent (0..100)
func DualRate(v int16, percent uint8) int16 {
	if percent >= 100 {
		return v
	}
	return int16(int32(v) * int32(percent) / 100)
}
