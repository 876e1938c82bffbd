package gamepad

// scaleStick maps v from [lo, hi] onto the signed 16-bit XInput stick range.
func scaleStick(v, lo, hi int32) int16 {
	if hi <= lo {
		return 0
	}
	n := (int64(v)-int64(lo))*65535/(int64(hi)-int64(lo)) - 32768
	return clamp16(n)
}

// invertStick flips an axis whose positive direction points down.
func invertStick(v int16) int16 {
	return clamp16(-int64(v))
}

// scaleTrigger maps v from [lo, hi] onto 0..255.
func scaleTrigger(v, lo, hi int32) uint8 {
	if hi <= lo {
		return 0
	}
	n := (int64(v) - int64(lo)) * 255 / (int64(hi) - int64(lo))
	switch {
	case n < 0:
		return 0
	case n > 255:
		return 255
	}
	return uint8(n)
}

func clamp16(n int64) int16 {
	switch {
	case n < -32768:
		return -32768
	case n > 32767:
		return 32767
	}
	return int16(n)
}

// hatButtons returns the d-pad bits for hat axis values in -1..1.
func hatButtons(x, y int32) uint16 {
	var b uint16
	switch {
	case x < 0:
		b |= uint16(DPadLeft)
	case x > 0:
		b |= uint16(DPadRight)
	}
	switch {
	case y < 0:
		b |= uint16(DPadUp)
	case y > 0:
		b |= uint16(DPadDown)
	}
	return b
}
