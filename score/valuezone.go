package score

import (
	"fmt"

	"github.com/dnldd/impulse/indicator"
	"github.com/dnldd/impulse/shared"
)

// ClassifyValueZone scores the price against two moving averages: 2 below both, 1 strictly
// between them in either order and 0 otherwise.
func ClassifyValueZone(price, emaShort, emaLong float64) Score {
	switch {
	case price < emaShort && price < emaLong:
		return 2
	case (emaShort > price && price > emaLong) || (emaLong > price && price > emaShort):
		return 1
	default:
		return 0
	}
}

// ValueZone scores the last close of the provided series against its EMA(emaShort) and
// EMA(emaLong).
func ValueZone(series *shared.Series, emaShort, emaLong int) (Score, error) {
	err := checkWindows(namedWindow{"short ema", emaShort}, namedWindow{"long ema", emaLong})
	if err != nil {
		return 0, fmt.Errorf("evaluating %s value zone: %w", series.Market, err)
	}

	last, ok := series.Last()
	if !ok {
		return 0, fmt.Errorf("%w: empty series", shared.ErrInsufficientData)
	}

	closes := series.Closes()
	short, sok := indicator.Last(indicator.EMA(closes, emaShort))
	long, lok := indicator.Last(indicator.EMA(closes, emaLong))
	if !sok || !lok {
		return 0, fmt.Errorf("%w: %d bars cannot define ema(%d) and ema(%d) for %s",
			shared.ErrInsufficientData, series.Len(), emaShort, emaLong, series.Market)
	}

	return ClassifyValueZone(last.Close, short, long), nil
}
