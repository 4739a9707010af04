package indicator

import "github.com/dnldd/impulse/shared"

// ATR returns the average true range over w. The first bar's true range is its high-low
// range. The average is seeded at bar w-1 with the mean of the first w true ranges and
// continues as atr = (prev*(w-1) + tr) / w.
func ATR(high, low, close []float64, w int) []shared.Value {
	n := len(close)
	if w <= 0 || n < w || !sameLength(high, low, close) {
		return undefinedLine(n)
	}

	tr := make([]shared.Value, n)
	for idx := range close {
		tr[idx] = shared.Defined(trueRange(high, low, close, idx))
	}

	return wilderAverage(tr, w)
}
