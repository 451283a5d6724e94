package effects

import "math"

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

func validSampleRate(sampleRate float64) bool {
	return isFinite(sampleRate) && sampleRate > 0
}
