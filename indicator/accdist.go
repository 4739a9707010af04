package indicator

import "github.com/dnldd/impulse/shared"

// AccumulationDistribution returns the cumulative sum of the money flow multiplier times
// volume, where the multiplier is ((close-low) - (high-close)) / (high-low) and zero for a
// flat bar. It is defined from the first bar.
func AccumulationDistribution(high, low, close, volume []float64) []shared.Value {
	n := len(close)
	if !sameLength(high, low, close, volume) {
		return undefinedLine(n)
	}

	out := make([]shared.Value, n)
	var ad float64
	for idx := range close {
		var multiplier float64
		if span := high[idx] - low[idx]; span != 0 {
			multiplier = ((close[idx] - low[idx]) - (high[idx] - close[idx])) / span
		}

		ad += multiplier * volume[idx]
		out[idx] = shared.Defined(ad)
	}

	return out
}
