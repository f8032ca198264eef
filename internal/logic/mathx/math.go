package mathx

import "math"

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FloorCell maps a continuous coordinate onto a grid of the given size.
func FloorCell(pos float64, size int) int {
	// size > 0
	return int(math.Floor(pos / float64(size)))
}
