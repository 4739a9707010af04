package indicator

import (
	"math"

	"github.com/dnldd/impulse/shared"
)

// ADX returns Wilder's average directional index over w with its positive and negative
// directional indicators.
//
// Directional movement and true range sums are seeded at bar w with the sum of bars 1..w
// and then smoothed with s = s - s/w + x. The directional indicators are defined from bar w,
// undefined where the smoothed true range is zero. The index is seeded at bar 2w-1 with the
// mean of w directional index values and is Wilder-averaged afterwards.
func ADX(high, low, close []float64, w int) (adx []shared.Value, plusDI []shared.Value, minusDI []shared.Value) {
	n := len(close)
	adx, plusDI, minusDI = undefinedLine(n), undefinedLine(n), undefinedLine(n)
	if w <= 0 || n <= w || !sameLength(high, low, close) {
		return adx, plusDI, minusDI
	}

	dx := undefinedLine(n)
	var sTR, sPlus, sMinus float64
	for idx := 1; idx < n; idx++ {
		up := high[idx] - high[idx-1]
		down := low[idx-1] - low[idx]

		var plusDM, minusDM float64
		if up > down && up > 0 {
			plusDM = up
		}
		if down > up && down > 0 {
			minusDM = down
		}
		tr := trueRange(high, low, close, idx)

		switch {
		case idx < w:
			sTR += tr
			sPlus += plusDM
			sMinus += minusDM
			continue
		case idx == w:
			sTR += tr
			sPlus += plusDM
			sMinus += minusDM
		default:
			fw := float64(w)
			sTR = sTR - sTR/fw + tr
			sPlus = sPlus - sPlus/fw + plusDM
			sMinus = sMinus - sMinus/fw + minusDM
		}

		if sTR == 0 {
			continue
		}

		pdi := 100 * sPlus / sTR
		mdi := 100 * sMinus / sTR
		plusDI[idx] = shared.Defined(pdi)
		minusDI[idx] = shared.Defined(mdi)

		sum := pdi + mdi
		if sum == 0 {
			dx[idx] = shared.Defined(0)
			continue
		}
		dx[idx] = shared.Defined(100 * math.Abs(pdi-mdi) / sum)
	}

	return wilderAverage(dx, w), plusDI, minusDI
}
