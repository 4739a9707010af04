package indicator

import "github.com/dnldd/impulse/shared"

// MACD returns the moving average convergence divergence line, its signal and histogram.
//
// The line is EMA(fast) - EMA(slow), defined from bar max(fast, slow)-1. The signal is the
// EMA(sign) of the line seeded at its first defined value, and the histogram is the line
// minus the signal.
func MACD(closes []float64, fast, slow, sign int) (line []shared.Value, signal []shared.Value, hist []shared.Value) {
	n := len(closes)
	if fast <= 0 || slow <= 0 || sign <= 0 {
		return undefinedLine(n), undefinedLine(n), undefinedLine(n)
	}

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	line = undefinedLine(n)
	for idx := range closes {
		f, fok := emaFast[idx].Get()
		s, sok := emaSlow[idx].Get()
		if fok && sok {
			line[idx] = shared.Defined(f - s)
		}
	}

	signal = emaLine(line, sign)

	hist = undefinedLine(n)
	for idx := range closes {
		l, lok := line[idx].Get()
		s, sok := signal[idx].Get()
		if lok && sok {
			hist[idx] = shared.Defined(l - s)
		}
	}

	return line, signal, hist
}
