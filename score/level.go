package score

import (
	"fmt"
	"time"

	"github.com/dnldd/impulse/indicator"
	"github.com/dnldd/impulse/shared"
)

const (
	// LevelLookback is the trailing calendar window level signals are evaluated over.
	LevelLookback = time.Hour * 24 * 182
)

// ClassifyLevel scores the current value against the band mean ± std: 2 below the band,
// 1 within it (bounds included) and 0 above it.
func ClassifyLevel(current, mean, std float64) Score {
	switch {
	case current < mean-std:
		return 2
	case current <= mean+std:
		return 1
	default:
		return 0
	}
}

// Level scores the most recent value of the provided line against the mean and sample
// standard deviation of its defined values.
func Level(values []shared.Value) (Score, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: empty indicator line", shared.ErrInsufficientData)
	}

	defined := shared.DefinedValues(values)
	if len(defined) < 2 {
		return 0, fmt.Errorf("%w: %d defined values", shared.ErrInsufficientData, len(defined))
	}

	current, ok := indicator.Last(values)
	if !ok {
		return 0, fmt.Errorf("%w: current indicator value undefined", shared.ErrDegenerateInput)
	}

	mean, err := indicator.Mean(defined)
	if err != nil {
		return 0, err
	}

	std, err := indicator.StdDev(defined, 1)
	if err != nil {
		return 0, err
	}

	return ClassifyLevel(current, mean, std), nil
}

// RSILevel scores the current RSI(rsiWindow) against its trailing level band, computed over
// the bars of the last 182 calendar days.
func RSILevel(series *shared.Series, rsiWindow int) (Score, error) {
	err := checkWindows(namedWindow{"rsi", rsiWindow})
	if err != nil {
		return 0, fmt.Errorf("evaluating %s rsi level: %w", series.Market, err)
	}

	trailing := series.Since(LevelLookback)

	s, err := Level(indicator.RSI(trailing.Closes(), rsiWindow))
	if err != nil {
		return 0, fmt.Errorf("evaluating %s rsi level: %w", series.Market, err)
	}

	return s, nil
}

// StochasticLevel scores the current stochastic %K(soWindow) against its trailing level
// band, computed over the bars of the last 182 calendar days. The smoothing window only
// affects %D and is validated for parity with the oscillator.
func StochasticLevel(series *shared.Series, soWindow, soSmoothWindow int) (Score, error) {
	err := checkWindows(namedWindow{"stochastic", soWindow}, namedWindow{"stochastic smooth", soSmoothWindow})
	if err != nil {
		return 0, fmt.Errorf("evaluating %s stochastic level: %w", series.Market, err)
	}

	trailing := series.Since(LevelLookback)
	k, _ := indicator.Stochastic(trailing.Highs(), trailing.Lows(), trailing.Closes(), soWindow, soSmoothWindow)

	s, err := Level(k)
	if err != nil {
		return 0, fmt.Errorf("evaluating %s stochastic level: %w", series.Market, err)
	}

	return s, nil
}
