package indicator

import "github.com/dnldd/impulse/shared"

// Stochastic returns the stochastic oscillator %K over w and its %D signal, the strict
// simple moving average of %K over smooth.
//
// %K = 100 * (close - lowest low) / (highest high - lowest low) over the trailing w bars.
// A flat range leaves %K undefined, and any undefined %K leaves the %D windows covering it
// undefined.
func Stochastic(high, low, close []float64, w int, smooth int) (k []shared.Value, d []shared.Value) {
	n := len(close)
	if w <= 0 || n < w || !sameLength(high, low, close) {
		return undefinedLine(n), undefinedLine(n)
	}

	k = undefinedLine(n)
	for idx := w - 1; idx < n; idx++ {
		lowest, highest := low[idx], high[idx]
		for j := idx - w + 1; j < idx; j++ {
			lowest = min(lowest, low[j])
			highest = max(highest, high[j])
		}

		span := highest - lowest
		if span == 0 {
			continue
		}

		k[idx] = shared.Defined(100 * (close[idx] - lowest) / span)
	}

	return k, smaLine(k, smooth)
}
