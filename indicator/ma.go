package indicator

import "github.com/dnldd/impulse/shared"

// SMA returns the simple moving average of the provided values over w. It is defined from
// index w-1.
func SMA(values []float64, w int) []shared.Value {
	out := undefinedLine(len(values))
	if w <= 0 || len(values) < w {
		return out
	}

	var sum float64
	for idx := range values {
		sum += values[idx]
		if idx >= w {
			sum -= values[idx-w]
		}
		if idx >= w-1 {
			out[idx] = shared.Defined(sum / float64(w))
		}
	}

	return out
}

// smaLine returns the strict simple moving average of the provided line over w. A position
// is defined only when all w inputs ending at it are defined.
func smaLine(values []shared.Value, w int) []shared.Value {
	out := undefinedLine(len(values))
	if w <= 0 {
		return out
	}

	var sum float64
	var run int
	for idx := range values {
		x, ok := values[idx].Get()
		if !ok {
			run, sum = 0, 0
			continue
		}

		run++
		sum += x
		if run > w {
			prev, _ := values[idx-w].Get()
			sum -= prev
		}
		if run >= w {
			out[idx] = shared.Defined(sum / float64(w))
		}
	}

	return out
}

// EMA returns the exponential moving average of the provided values over w, with
// alpha = 2/(w+1). The average is seeded with the first value and is defined from index w-1.
func EMA(values []float64, w int) []shared.Value {
	line := make([]shared.Value, len(values))
	for idx := range values {
		line[idx] = shared.Defined(values[idx])
	}

	return emaLine(line, w)
}

// emaLine returns the exponential moving average of the provided line over w. Leading
// undefined values are skipped, the first defined value seeds the average and a position is
// defined once w values have been observed. Undefined values after seeding are undefined in
// the output and leave the average unchanged.
func emaLine(values []shared.Value, w int) []shared.Value {
	return ewm(values, 2/float64(w+1), w)
}

// ewm returns the non-adjusted exponentially weighted mean of the provided line with the
// provided alpha, defined once minPeriods values have been observed.
func ewm(values []shared.Value, alpha float64, minPeriods int) []shared.Value {
	out := undefinedLine(len(values))
	if minPeriods <= 0 {
		return out
	}

	var avg float64
	var seen int
	for idx := range values {
		x, ok := values[idx].Get()
		if !ok {
			continue
		}

		if seen == 0 {
			avg = x
		} else {
			avg = alpha*x + (1-alpha)*avg
		}

		seen++
		if seen >= minPeriods {
			out[idx] = shared.Defined(avg)
		}
	}

	return out
}
