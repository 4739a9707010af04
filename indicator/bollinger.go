package indicator

import (
	"math"

	"github.com/dnldd/impulse/shared"
)

// Bollinger returns the Bollinger bands over w: the simple moving average and the bands k
// population standard deviations above and below it.
func Bollinger(closes []float64, w int, k float64) (mid []shared.Value, upper []shared.Value, lower []shared.Value) {
	n := len(closes)
	mid = SMA(closes, w)
	upper, lower = undefinedLine(n), undefinedLine(n)
	if w <= 0 || n < w {
		return mid, upper, lower
	}

	for idx := w - 1; idx < n; idx++ {
		mean, ok := mid[idx].Get()
		if !ok {
			continue
		}

		var sq float64
		for j := idx - w + 1; j <= idx; j++ {
			d := closes[j] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(w))

		upper[idx] = shared.Defined(mean + k*std)
		lower[idx] = shared.Defined(mean - k*std)
	}

	return mid, upper, lower
}
