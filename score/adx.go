package score

import (
	"fmt"

	"github.com/dnldd/impulse/indicator"
	"github.com/dnldd/impulse/shared"
)

// ClassifyADX scores the directional system: 2 when +DI > ADX > -DI, 1 when ADX is below
// both directional indicators and 0 otherwise.
func ClassifyADX(adx, plusDI, minusDI float64) Score {
	switch {
	case plusDI > adx && adx > minusDI:
		return 2
	case adx < plusDI && adx < minusDI:
		return 1
	default:
		return 0
	}
}

// ADXLevel scores the latest ADX(adxWindow), +DI and -DI of the provided series.
func ADXLevel(series *shared.Series, adxWindow int) (Score, error) {
	err := checkWindows(namedWindow{"adx", adxWindow})
	if err != nil {
		return 0, fmt.Errorf("evaluating %s adx level: %w", series.Market, err)
	}
	if series.Len() < 2*adxWindow {
		return 0, fmt.Errorf("evaluating %s adx level: %w: %d bars for window %d",
			series.Market, shared.ErrInsufficientData, series.Len(), adxWindow)
	}

	adx, plusDI, minusDI := indicator.ADX(series.Highs(), series.Lows(), series.Closes(), adxWindow)
	a, aok := indicator.Last(adx)
	p, pok := indicator.Last(plusDI)
	m, mok := indicator.Last(minusDI)
	if !aok || !pok || !mok {
		return 0, fmt.Errorf("evaluating %s adx level: %w: directional system undefined",
			series.Market, shared.ErrDegenerateInput)
	}

	return ClassifyADX(a, p, m), nil
}
