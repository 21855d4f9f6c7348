package scoring

import "math"

// All strategies share the same shape: clamp a raw signal into [0,1], shape
// it, then linearly interpolate into a [min,max] band and round.

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// bandScore maps a shaped value in [0,1] onto the [min,max] integer band.
func bandScore(min, max int, shaped float64) int {
	score := float64(min) + float64(max-min)*clamp01(shaped)
	rounded := int(math.Round(score))
	if rounded < min {
		return min
	}
	if rounded > max {
		return max
	}
	return rounded
}
