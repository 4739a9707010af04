package score

import (
	"fmt"

	"github.com/dnldd/impulse/indicator"
	"github.com/dnldd/impulse/shared"
)

// ImpulseResult represents an evaluated impulse signal.
type ImpulseResult struct {
	// Score is the impulse score.
	Score Score
	// Index is the position of the later bar of the slope pair that decided the score.
	Index int
	// Resolved reports whether the score was decided by the backward scan.
	Resolved bool
}

// slopes returns the ema and histogram slopes ending at idx.
func slopes(ema []shared.Value, hist []shared.Value, idx int) (float64, float64, bool) {
	e1, ok1 := ema[idx].Get()
	e0, ok0 := ema[idx-1].Get()
	h1, ok3 := hist[idx].Get()
	h0, ok2 := hist[idx-1].Get()
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return 0, 0, false
	}

	return e1 - e0, h1 - h0, true
}

// EvaluateImpulse evaluates the impulse signal from aligned ema and macd histogram lines.
//
// When the last slopes agree the score is 1 for rising and 0 for falling slopes. Otherwise
// the slopes are compared one bar earlier at a time until they strictly agree in sign, and
// the mapping inverts: 0 for rising and 2 for falling slopes. Zero slopes never agree. The
// scan fails once a slope would need an undefined value or a bar before the series start.
func EvaluateImpulse(ema []shared.Value, hist []shared.Value) (ImpulseResult, error) {
	n := len(ema)
	if n != len(hist) {
		return ImpulseResult{}, fmt.Errorf("ema and histogram lengths differ: %d != %d", n, len(hist))
	}
	if n < 2 {
		return ImpulseResult{}, fmt.Errorf("%w: impulse needs at least 2 values, got %d",
			shared.ErrInsufficientData, n)
	}

	emaSlope, histSlope, ok := slopes(ema, hist, n-1)
	if !ok {
		return ImpulseResult{}, fmt.Errorf("%w: last ema or histogram values undefined",
			shared.ErrInsufficientData)
	}

	switch {
	case emaSlope > 0 && histSlope > 0:
		return ImpulseResult{Score: 1, Index: n - 1}, nil
	case emaSlope < 0 && histSlope < 0:
		return ImpulseResult{Score: 0, Index: n - 1}, nil
	}

	for idx := n - 2; idx >= 1; idx-- {
		emaSlope, histSlope, ok = slopes(ema, hist, idx)
		if !ok {
			return ImpulseResult{}, fmt.Errorf("%w: reached undefined values at %d",
				shared.ErrUnresolvedDisagreement, idx)
		}

		switch {
		case emaSlope > 0 && histSlope > 0:
			return ImpulseResult{Score: 0, Index: idx, Resolved: true}, nil
		case emaSlope < 0 && histSlope < 0:
			return ImpulseResult{Score: 2, Index: idx, Resolved: true}, nil
		}
	}

	return ImpulseResult{}, fmt.Errorf("%w: reached the series start", shared.ErrUnresolvedDisagreement)
}

// WeeklyImpulse scores the impulse signal of the provided series, intended to be weekly
// bars, from its EMA(emaShort) and MACD(macdFast, macdSlow, macdSign) histogram.
func WeeklyImpulse(series *shared.Series, emaShort, macdSlow, macdFast, macdSign int) (Score, error) {
	res, err := weeklyImpulse(series, emaShort, macdSlow, macdFast, macdSign)
	if err != nil {
		return 0, err
	}

	return res.Score, nil
}

// weeklyImpulse evaluates the impulse signal of the provided series.
func weeklyImpulse(series *shared.Series, emaShort, macdSlow, macdFast, macdSign int) (ImpulseResult, error) {
	err := checkWindows(namedWindow{"short ema", emaShort}, namedWindow{"macd slow", macdSlow},
		namedWindow{"macd fast", macdFast}, namedWindow{"macd sign", macdSign})
	if err != nil {
		return ImpulseResult{}, fmt.Errorf("evaluating %s impulse: %w", series.Market, err)
	}

	closes := series.Closes()
	ema := indicator.EMA(closes, emaShort)
	_, _, hist := indicator.MACD(closes, macdFast, macdSlow, macdSign)

	res, err := EvaluateImpulse(ema, hist)
	if err != nil {
		return ImpulseResult{}, fmt.Errorf("evaluating %s impulse: %w", series.Market, err)
	}

	return res, nil
}
