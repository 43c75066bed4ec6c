// Package scoremath provides the numeric primitives shared by the scoring
// engines: clamped ranges, weighted sums, and diminishing-return factors.
package scoremath

import (
	"math"

	"golang.org/x/exp/constraints"
)

// DefaultDecay is the decay rate used for repeated-behavior penalties.
const DefaultDecay = 0.2

// Number is any integer or floating point type.
type Number interface {
	constraints.Integer | constraints.Float
}

// Clamp bounds v to [lo, hi].
func Clamp[T Number](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Diminishing returns 1/(1+count*decay). A count of zero yields 1.
func Diminishing(count int, decay float64) float64 {
	if count < 0 {
		count = 0
	}
	return 1.0 / (1.0 + float64(count)*decay)
}

// Term is one weighted component of a score.
type Term struct {
	Value  float64
	Weight float64
}

// WeightedSum returns Σ value×weight.
func WeightedSum(terms []Term) float64 {
	total := 0.0
	for _, t := range terms {
		total += t.Value * t.Weight
	}
	return total
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean[T Number](values []T) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation, or 0 for an empty slice.
func StdDev[T Number](values []T) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		d := float64(v) - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

// Round rounds half to even, matching banker's rounding used for karma.
func Round(v float64) int {
	return int(math.RoundToEven(v))
}
