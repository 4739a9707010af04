package indicator

import (
	"fmt"
	"math"

	"github.com/dnldd/impulse/shared"
)

// undefinedLine returns n undefined values.
func undefinedLine(n int) []shared.Value {
	return make([]shared.Value, n)
}

// Mean returns the arithmetic mean of the provided numbers.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: mean of an empty set", shared.ErrInsufficientData)
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values)), nil
}

// StdDev returns the standard deviation of the provided numbers with ddof delta degrees of
// freedom: 0 for the population and 1 for the sample standard deviation.
func StdDev(values []float64, ddof int) (float64, error) {
	if len(values)-ddof <= 0 {
		return 0, fmt.Errorf("%w: standard deviation of %d values with ddof %d",
			shared.ErrInsufficientData, len(values), ddof)
	}

	mean, err := Mean(values)
	if err != nil {
		return 0, err
	}

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}

	return math.Sqrt(sq / float64(len(values)-ddof)), nil
}

// Last returns the final value of the provided line and whether it is defined.
func Last(values []shared.Value) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	return values[len(values)-1].Get()
}

// wilderAverage applies Wilder's average over the provided line. It seeds with the mean of
// the first w consecutive defined values and then recurses with
// avg = (prev*(w-1) + x) / w. An undefined input clears the state and seeding restarts.
func wilderAverage(values []shared.Value, w int) []shared.Value {
	out := undefinedLine(len(values))
	if w <= 0 {
		return out
	}

	var avg, sum float64
	var run int
	for idx := range values {
		x, ok := values[idx].Get()
		if !ok {
			run, sum = 0, 0
			continue
		}

		run++
		switch {
		case run < w:
			sum += x
		case run == w:
			sum += x
			avg = sum / float64(w)
			out[idx] = shared.Defined(avg)
		default:
			avg = (avg*float64(w-1) + x) / float64(w)
			out[idx] = shared.Defined(avg)
		}
	}

	return out
}

// trueRange returns the true range of bar idx. The first bar's true range is its high-low.
func trueRange(high, low, close []float64, idx int) float64 {
	hl := high[idx] - low[idx]
	if idx == 0 {
		return hl
	}

	prev := close[idx-1]
	return max(hl, math.Abs(high[idx]-prev), math.Abs(low[idx]-prev))
}

// sameLength asserts the provided slices share a length.
func sameLength(lines ...[]float64) bool {
	for idx := 1; idx < len(lines); idx++ {
		if len(lines[idx]) != len(lines[0]) {
			return false
		}
	}

	return true
}
