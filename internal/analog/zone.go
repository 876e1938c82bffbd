// Package analog quantizes thumbstick positions into 8-way zones and maps
// zones onto a virtual split keyboard.
package analog

import (
	"fmt"
	"math"
)

// cotPi8 is cot(pi/8). An axis counts as dominant when the stick is within
// 22.5 degrees of it.
const cotPi8 = 2.414213562373095048801688724209

// Zone is a quantized stick position. Each component is -1, 0 or 1.
type Zone struct {
	X int8
	Y int8
}

// Centered reports whether neither axis is deflected.
func (z Zone) Centered() bool {
	return z.X == 0 && z.Y == 0
}

func (z Zone) String() string {
	return fmt.Sprintf("(%d,%d)", z.X, z.Y)
}

// Quantize maps the stick sample (x, y) to a zone. Samples whose squared
// magnitude does not exceed deadzoneSquared are centered. Outside the
// deadzone each axis is set to its sign when the other axis is less than
// cot(pi/8) times it, which yields eight directions. The comparison is
// strict, so a sample exactly on the 22.5 degree boundary leaves that axis
// unset.
func Quantize(x, y, deadzoneSquared int) Zone {
	var z Zone

	x64, y64 := int64(x), int64(y)
	if x64*x64+y64*y64 <= int64(deadzoneSquared) {
		return z
	}
	if y != 0 && math.Abs(float64(x)/float64(y)) < cotPi8 {
		z.Y = signum(y)
	}
	if x != 0 && math.Abs(float64(y)/float64(x)) < cotPi8 {
		z.X = signum(x)
	}
	return z
}

func signum(v int) int8 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
