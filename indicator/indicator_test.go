package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dnldd/impulse/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

const tolerance = 1e-9

// valueOpts allows comparing indicator values.
var valueOpts = cmp.AllowUnexported(shared.Value{})

// assertClose asserts the provided value is defined and within tolerance of want.
func assertClose(t *testing.T, label string, got shared.Value, want float64) {
	t.Helper()

	v, ok := got.Get()
	if !ok {
		t.Fatalf("%s: expected %v, got undefined", label, want)
	}
	if math.Abs(v-want) > tolerance {
		t.Fatalf("%s: expected %v, got %v", label, want, v)
	}
}

// assertUndefined asserts the provided values are undefined.
func assertUndefined(t *testing.T, label string, values []shared.Value) {
	t.Helper()

	for idx := range values {
		if values[idx].IsDefined() {
			t.Fatalf("%s: expected undefined at %d, got %s", label, idx, values[idx])
		}
	}
}

// waveCloses generates a deterministic oscillating close series.
func waveCloses(n int) []float64 {
	closes := make([]float64, n)
	for idx := range closes {
		closes[idx] = 100 + 10*math.Sin(float64(idx)/3) + float64(idx%7)
	}

	return closes
}

// trendSeries builds a series of n daily bars whose lows rise by step per bar, with a high
// two above the low and the close in the middle.
func trendSeries(t *testing.T, n int, step float64) *shared.Series {
	t.Helper()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]shared.Candlestick, n)
	for idx := range candles {
		low := 500 + step*float64(idx)
		candles[idx] = shared.Candlestick{
			Open:   low + 1,
			Low:    low,
			High:   low + 2,
			Close:  low + 1,
			Volume: 100,
			Date:   start.AddDate(0, 0, idx),
		}
	}

	series, err := shared.NewSeries("TEST", shared.OneDay, candles)
	assert.NoError(t, err)

	return series
}

func TestSMA(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.Equal(t, len(out), 5)
	assertUndefined(t, "sma warm-up", out[:2])
	assertClose(t, "sma[2]", out[2], 2)
	assertClose(t, "sma[3]", out[3], 3)
	assertClose(t, "sma[4]", out[4], 4)

	// Ensure short inputs and invalid windows are undefined.
	assertUndefined(t, "sma short", SMA([]float64{1, 2}, 3))
	assertUndefined(t, "sma zero window", SMA([]float64{1, 2, 3}, 0))
}

func TestEMA(t *testing.T) {
	// alpha = 0.5: 1, 1.5, 2.25, 3.125, 4.0625.
	out := EMA([]float64{1, 2, 3, 4, 5}, 3)
	assertUndefined(t, "ema warm-up", out[:2])
	assertClose(t, "ema[2]", out[2], 2.25)
	assertClose(t, "ema[3]", out[3], 3.125)
	assertClose(t, "ema[4]", out[4], 4.0625)

	// Ensure a line with a leading undefined run seeds at its first defined value.
	line := []shared.Value{shared.Undefined, shared.Undefined, shared.Defined(2), shared.Defined(4), shared.Defined(6)}
	ema := emaLine(line, 2)
	assertUndefined(t, "ema line warm-up", ema[:3])
	// alpha = 2/3: 2, 2 + 2/3*2, ...
	assertClose(t, "ema line[3]", ema[3], 2+(2.0/3.0)*2)

	assertUndefined(t, "ema invalid window", EMA([]float64{1, 2, 3}, -1))
}

func TestStrictSMA(t *testing.T) {
	line := []shared.Value{shared.Defined(1), shared.Defined(2), shared.Undefined,
		shared.Defined(3), shared.Defined(4), shared.Defined(5)}

	out := smaLine(line, 2)
	assertUndefined(t, "strict sma before gap", out[:1])
	assertClose(t, "strict sma[1]", out[1], 1.5)
	assertUndefined(t, "strict sma gap", out[2:4])
	assertClose(t, "strict sma[4]", out[4], 3.5)
	assertClose(t, "strict sma[5]", out[5], 4.5)
}

func TestRSI(t *testing.T) {
	// Deltas 0, 1, 1, -1, 1 with alpha = 0.5.
	out := RSI([]float64{1, 2, 3, 2, 3}, 2)
	assertUndefined(t, "rsi warm-up", out[:1])
	assertClose(t, "rsi[1]", out[1], 100)
	assertClose(t, "rsi[2]", out[2], 100)
	assertClose(t, "rsi[3]", out[3], 100-100/(1+0.375/0.5))
	assertClose(t, "rsi[4]", out[4], 100-100/(1+0.6875/0.25))

	// Ensure rsi is bounded and defined after its warm-up.
	w := 14
	closes := waveCloses(300)
	out = RSI(closes, w)
	assertUndefined(t, "rsi wave warm-up", out[:w-1])
	defined := shared.DefinedValues(out)
	assert.Equal(t, len(defined), len(closes)-w+1)
	for _, v := range defined {
		assert.True(t, v >= 0 && v <= 100)
	}

	// Ensure a steadily falling series has an rsi of zero.
	falling := make([]float64, 30)
	for idx := range falling {
		falling[idx] = float64(100 - idx)
	}
	out = RSI(falling, w)
	assertClose(t, "rsi falling", out[29], 0)

	// Ensure rsi is idempotent.
	if diff := cmp.Diff(RSI(closes, w), RSI(closes, w), valueOpts); diff != "" {
		t.Fatalf("rsi not idempotent (-first +second):\n%s", diff)
	}

	assertUndefined(t, "rsi short", RSI([]float64{1, 2}, 3))
}

func TestStochastic(t *testing.T) {
	high := []float64{10, 12, 11, 14, 13, 12}
	low := []float64{8, 9, 7, 10, 11, 9}
	close := []float64{9, 12, 7, 14, 12, 10}

	k, d := Stochastic(high, low, close, 3, 2)
	assertUndefined(t, "%k warm-up", k[:2])

	// Ensure %K is 0 when the close is the window's lowest low.
	assertClose(t, "%k[2]", k[2], 0)
	// Ensure %K is 100 when the close is the window's highest high.
	assertClose(t, "%k[3]", k[3], 100)
	// Window [11, 14, 13] and [7, 10, 11]: (12 - 7) / (14 - 7).
	assertClose(t, "%k[4]", k[4], 100*5.0/7.0)
	// Window [14, 13, 12] and [10, 11, 9]: (10 - 9) / (14 - 9).
	assertClose(t, "%k[5]", k[5], 20)

	assertUndefined(t, "%d warm-up", d[:3])
	assertClose(t, "%d[3]", d[3], 50)
	assertClose(t, "%d[5]", d[5], (100*5.0/7.0+20)/2)

	// Ensure a flat range is undefined and never divides by zero.
	flat := []float64{5, 5, 5, 5}
	k, d = Stochastic(flat, flat, flat, 2, 2)
	assertUndefined(t, "flat %k", k)
	assertUndefined(t, "flat %d", d)

	// Ensure mismatched inputs are undefined.
	k, _ = Stochastic(high, low[:3], close, 3, 2)
	assertUndefined(t, "mismatched %k", k)
}

func TestADX(t *testing.T) {
	w := 14

	// Ensure a steady uptrend has +DI 50, -DI 0 and an ADX of 100.
	up := trendSeries(t, 60, 1)
	adx, plusDI, minusDI := ADX(up.Highs(), up.Lows(), up.Closes(), w)
	assertUndefined(t, "+di warm-up", plusDI[:w])
	assertUndefined(t, "adx warm-up", adx[:2*w-1])
	assertClose(t, "+di", plusDI[w], 50)
	assertClose(t, "-di", minusDI[w], 0)
	assertClose(t, "adx seed", adx[2*w-1], 100)
	assertClose(t, "adx last", adx[59], 100)

	// Ensure a steady downtrend mirrors the directional indicators.
	down := trendSeries(t, 60, -1)
	adx, plusDI, minusDI = ADX(down.Highs(), down.Lows(), down.Closes(), w)
	assertClose(t, "downtrend +di", plusDI[59], 0)
	assertClose(t, "downtrend -di", minusDI[59], 50)
	assertClose(t, "downtrend adx", adx[59], 100)

	// Ensure flat bars leave the directional system undefined.
	flat := []float64{5, 5, 5, 5, 5, 5, 5, 5}
	adx, plusDI, _ = ADX(flat, flat, flat, 3)
	assertUndefined(t, "flat +di", plusDI)
	assertUndefined(t, "flat adx", adx)

	// Ensure a series no longer than the window is undefined.
	adx, _, _ = ADX(up.Highs()[:w], up.Lows()[:w], up.Closes()[:w], w)
	assertUndefined(t, "short adx", adx)
}

func TestMACD(t *testing.T) {
	closes := waveCloses(40)

	line, signal, hist := MACD(closes, 3, 5, 2)
	assertUndefined(t, "macd warm-up", line[:4])
	assert.True(t, line[4].IsDefined())
	assertUndefined(t, "signal warm-up", signal[:5])
	assert.True(t, signal[5].IsDefined())
	assertUndefined(t, "histogram warm-up", hist[:5])

	// Ensure the histogram is the line minus the signal.
	for idx := 5; idx < len(closes); idx++ {
		l, _ := line[idx].Get()
		s, _ := signal[idx].Get()
		assertClose(t, "histogram", hist[idx], l-s)
	}

	// Ensure a constant series has a zero histogram.
	constant := make([]float64, 40)
	for idx := range constant {
		constant[idx] = 50
	}
	_, _, hist = MACD(constant, 12, 26, 9)
	assertUndefined(t, "constant histogram warm-up", hist[:33])
	assertClose(t, "constant histogram", hist[33], 0)

	_, _, hist = MACD(closes, 0, 26, 9)
	assertUndefined(t, "invalid macd", hist)
}

func TestATR(t *testing.T) {
	high := []float64{12, 12, 12, 12, 12}
	low := []float64{10, 10, 10, 10, 10}
	close := []float64{11, 11, 11, 11, 11}

	out := ATR(high, low, close, 3)
	assertUndefined(t, "atr warm-up", out[:2])
	assertClose(t, "atr seed", out[2], 2)
	assertClose(t, "atr last", out[4], 2)

	// Gap up: true range uses the previous close.
	high = []float64{12, 12, 20, 20}
	low = []float64{10, 10, 18, 18}
	close = []float64{11, 11, 19, 19}
	out = ATR(high, low, close, 2)
	assertClose(t, "atr seed", out[1], 2)
	// tr = max(2, |20 - 11|, |18 - 11|) = 9: (2 + 9) / 2.
	assertClose(t, "atr gap", out[2], 5.5)
	// tr = 2: (5.5 + 2) / 2.
	assertClose(t, "atr after gap", out[3], 3.75)
}

func TestBollinger(t *testing.T) {
	mid, upper, lower := Bollinger([]float64{1, 2, 3}, 3, 2)
	assertUndefined(t, "bollinger warm-up", mid[:2])
	assertClose(t, "mid", mid[2], 2)

	std := math.Sqrt(2.0 / 3.0)
	assertClose(t, "upper", upper[2], 2+2*std)
	assertClose(t, "lower", lower[2], 2-2*std)

	// Ensure constant closes collapse the bands.
	mid, upper, lower = Bollinger([]float64{4, 4, 4, 4}, 2, 2)
	assertClose(t, "constant upper", upper[3], 4)
	assertClose(t, "constant lower", lower[3], 4)
	assertClose(t, "constant mid", mid[3], 4)
}

func TestAccumulationDistribution(t *testing.T) {
	high := []float64{10, 10, 10}
	low := []float64{0, 10, 0}
	close := []float64{10, 10, 0}
	volume := []float64{5, 100, 2}

	out := AccumulationDistribution(high, low, close, volume)
	assertClose(t, "a/d[0]", out[0], 5)
	// Ensure a flat bar contributes nothing.
	assertClose(t, "a/d[1]", out[1], 5)
	assertClose(t, "a/d[2]", out[2], 3)
}

func TestStats(t *testing.T) {
	values := []float64{40, 60, 40, 60}

	mean, err := Mean(values)
	assert.NoError(t, err)
	assert.Equal(t, mean, float64(50))

	population, err := StdDev(values, 0)
	assert.NoError(t, err)
	assert.Equal(t, population, float64(10))

	sample, err := StdDev(values, 1)
	assert.NoError(t, err)
	assert.True(t, math.Abs(sample-10*math.Sqrt(4.0/3.0)) < tolerance)

	// Ensure statistics over too few values report insufficient data.
	_, err = Mean(nil)
	assert.True(t, errors.Is(err, shared.ErrInsufficientData))
	_, err = StdDev([]float64{1}, 1)
	assert.True(t, errors.Is(err, shared.ErrInsufficientData))

	v, ok := Last([]shared.Value{shared.Defined(1), shared.Defined(2)})
	assert.True(t, ok)
	assert.Equal(t, v, float64(2))
	_, ok = Last([]shared.Value{shared.Defined(1), shared.Undefined})
	assert.False(t, ok)
	_, ok = Last(nil)
	assert.False(t, ok)
}

func TestWilderAverage(t *testing.T) {
	line := []shared.Value{shared.Defined(1), shared.Defined(3), shared.Defined(5),
		shared.Undefined, shared.Defined(2), shared.Defined(4)}

	out := wilderAverage(line, 2)
	assertUndefined(t, "wilder warm-up", out[:1])
	assertClose(t, "wilder seed", out[1], 2)
	assertClose(t, "wilder[2]", out[2], 3.5)
	// Ensure an undefined input restarts seeding.
	assertUndefined(t, "wilder gap", out[3:5])
	assertClose(t, "wilder reseed", out[5], 3)
}

func TestCompute(t *testing.T) {
	series := trendSeries(t, 80, 1)

	tests := []struct {
		name   string
		kind   Kind
		params Params
		lines  []string
	}{
		{"sma", SMAKind, Params{Window: 10}, []string{ValueLine}},
		{"ema", EMAKind, Params{Window: 10}, []string{ValueLine}},
		{"rsi", RSIKind, Params{Window: 14}, []string{ValueLine}},
		{"stochastic", StochasticKind, Params{Window: 14, Smooth: 3}, []string{KLine, DLine}},
		{"adx", ADXKind, Params{Window: 14}, []string{ADXLine, PlusDILine, MinusDILine}},
		{"macd", MACDKind, Params{Fast: 12, Slow: 26, Signal: 9}, []string{MACDLine, SignalLine, HistLine}},
		{"atr", ATRKind, Params{Window: 14}, []string{ValueLine}},
		{"bollinger", BollingerKind, Params{Window: 20}, []string{MidLine, UpperLine, LowerLine}},
		{"accdist", AccumulationDistributionKind, Params{}, []string{ValueLine}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, err := Compute(series, test.kind, test.params)
			assert.NoError(t, err)
			assert.Equal(t, out.Kind, test.kind)
			assert.Equal(t, len(out.Dates), series.Len())
			assert.Equal(t, len(out.Lines), len(test.lines))

			for _, name := range test.lines {
				values, ok := out.Line(name)
				assert.True(t, ok)
				assert.Equal(t, len(values), series.Len())
				_, ok = Last(values)
				assert.True(t, ok)
			}

			// Ensure computing twice yields identical output.
			again, err := Compute(series, test.kind, test.params)
			assert.NoError(t, err)
			if diff := cmp.Diff(out.Lines, again.Lines, valueOpts); diff != "" {
				t.Fatalf("compute not idempotent (-first +second):\n%s", diff)
			}
		})
	}

	// Ensure non-positive windows error.
	_, err := Compute(series, RSIKind, Params{Window: 0})
	assert.True(t, errors.Is(err, shared.ErrInvalidWindow))
	_, err = Compute(series, MACDKind, Params{Fast: 12, Slow: -1, Signal: 9})
	assert.True(t, errors.Is(err, shared.ErrInvalidWindow))

	// Ensure unknown kinds error.
	_, err = Compute(series, Kind(99), Params{Window: 3})
	assert.Error(t, err)

	// Ensure series shorter than the warm-up yield undefined output.
	out, err := Compute(series, SMAKind, Params{Window: 200})
	assert.NoError(t, err)
	values, _ := out.Line(ValueLine)
	assertUndefined(t, "long window", values)
}

func TestOutputFrom(t *testing.T) {
	series := trendSeries(t, 30, 1)
	out, err := Compute(series, EMAKind, Params{Window: 5})
	assert.NoError(t, err)

	trimmed := out.From(series.Candle(20).Date)
	assert.Equal(t, len(trimmed.Dates), 10)
	values, ok := trimmed.Line(ValueLine)
	assert.True(t, ok)
	assert.Equal(t, len(values), 10)

	full, _ := out.Line(ValueLine)
	if diff := cmp.Diff(full[20:], values, valueOpts); diff != "" {
		t.Fatalf("trimmed values mismatch (-want +got):\n%s", diff)
	}

	_, ok = trimmed.Line("missing")
	assert.False(t, ok)
}

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds {
		parsed, err := ParseKind(kind.String())
		assert.NoError(t, err)
		assert.Equal(t, parsed, kind)
	}

	_, err := ParseKind("vwap")
	assert.Error(t, err)
}
