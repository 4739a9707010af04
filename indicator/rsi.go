package indicator

import "github.com/dnldd/impulse/shared"

// RSI returns the relative strength index of the provided closes over w.
//
// Gains and losses of close-to-close deltas (the first delta being zero) are smoothed with
// Wilder's exponential average (alpha = 1/w) seeded at the first bar. The index is defined
// from bar w-1 and is 100 when the smoothed loss is zero.
func RSI(closes []float64, w int) []shared.Value {
	n := len(closes)
	if w <= 0 || n < w {
		return undefinedLine(n)
	}

	gains := make([]shared.Value, n)
	losses := make([]shared.Value, n)
	for idx := range closes {
		var delta float64
		if idx > 0 {
			delta = closes[idx] - closes[idx-1]
		}

		gains[idx] = shared.Defined(max(delta, 0))
		losses[idx] = shared.Defined(max(-delta, 0))
	}

	alpha := 1 / float64(w)
	avgGains := ewm(gains, alpha, w)
	avgLosses := ewm(losses, alpha, w)

	out := undefinedLine(n)
	for idx := range out {
		gain, gok := avgGains[idx].Get()
		loss, lok := avgLosses[idx].Get()
		if !gok || !lok {
			continue
		}

		if loss == 0 {
			out[idx] = shared.Defined(100)
			continue
		}

		out[idx] = shared.Defined(100 - 100/(1+gain/loss))
	}

	return out
}
