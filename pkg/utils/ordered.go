package utils

import (
	"golang.org/x/exp/constraints"
)

// Returns the value limited to the closed range [low, high]
func Clamp[T constraints.Ordered](value T, low T, high T) T {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
