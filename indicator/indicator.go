package indicator

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/impulse/shared"
)

// Kind represents an indicator type.
type Kind int

const (
	SMAKind Kind = iota
	EMAKind
	RSIKind
	StochasticKind
	ADXKind
	MACDKind
	ATRKind
	BollingerKind
	AccumulationDistributionKind
)

// Kinds lists all supported indicator kinds.
var Kinds = []Kind{SMAKind, EMAKind, RSIKind, StochasticKind, ADXKind, MACDKind, ATRKind,
	BollingerKind, AccumulationDistributionKind}

// String stringifies the provided indicator kind.
func (k Kind) String() string {
	switch k {
	case SMAKind:
		return "sma"
	case EMAKind:
		return "ema"
	case RSIKind:
		return "rsi"
	case StochasticKind:
		return "stochastic"
	case ADXKind:
		return "adx"
	case MACDKind:
		return "macd"
	case ATRKind:
		return "atr"
	case BollingerKind:
		return "bollinger"
	case AccumulationDistributionKind:
		return "accdist"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its string form.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind parses the provided indicator kind string.
func ParseKind(s string) (Kind, error) {
	for _, kind := range Kinds {
		if kind.String() == s {
			return kind, nil
		}
	}

	return 0, fmt.Errorf("unknown indicator '%s', available indicators: %v", s, Kinds)
}

// Line names.
const (
	ValueLine   = "value"
	KLine       = "k"
	DLine       = "d"
	ADXLine     = "adx"
	PlusDILine  = "+di"
	MinusDILine = "-di"
	MACDLine    = "macd"
	SignalLine  = "signal"
	HistLine    = "histogram"
	MidLine     = "mid"
	UpperLine   = "upper"
	LowerLine   = "lower"
)

// Params represents indicator window parameters. Window is used by single window
// indicators, Smooth by the stochastic %D, Fast, Slow and Signal by MACD and Deviations by
// Bollinger bands.
type Params struct {
	Window     int
	Smooth     int
	Fast       int
	Slow       int
	Signal     int
	Deviations float64
}

// Line represents a named indicator output line.
type Line struct {
	Name   string         `json:"name"`
	Values []shared.Value `json:"values"`
}

// Output represents indicator output lines aligned to the dates of their series.
type Output struct {
	Kind  Kind        `json:"kind"`
	Dates []time.Time `json:"dates"`
	Lines []Line      `json:"lines"`
}

// Line returns the named output line.
func (o *Output) Line(name string) ([]shared.Value, bool) {
	for idx := range o.Lines {
		if o.Lines[idx].Name == name {
			return o.Lines[idx].Values, true
		}
	}

	return nil, false
}

// From returns the output restricted to positions dated at or after the provided time.
func (o *Output) From(start time.Time) *Output {
	idx := len(o.Dates)
	for i := range o.Dates {
		if !o.Dates[i].Before(start) {
			idx = i
			break
		}
	}

	out := &Output{
		Kind:  o.Kind,
		Dates: o.Dates[idx:],
		Lines: make([]Line, len(o.Lines)),
	}
	for i := range o.Lines {
		out.Lines[i] = Line{Name: o.Lines[i].Name, Values: o.Lines[i].Values[idx:]}
	}

	return out
}

// validateWindows asserts the provided windows are positive.
func validateWindows(windows map[string]int) error {
	var errs error
	for name, w := range windows {
		if w <= 0 {
			errs = errors.Join(errs, fmt.Errorf("%w: %s must be positive, got %d", shared.ErrInvalidWindow, name, w))
		}
	}

	return errs
}

// Compute computes the provided indicator kind over the series. Non-positive windows error,
// series shorter than the warm-up yield undefined outputs.
func Compute(series *shared.Series, kind Kind, p Params) (*Output, error) {
	out := &Output{Kind: kind, Dates: series.Dates()}

	switch kind {
	case SMAKind, EMAKind, RSIKind, ATRKind:
		err := validateWindows(map[string]int{"window": p.Window})
		if err != nil {
			return nil, err
		}

		var values []shared.Value
		switch kind {
		case SMAKind:
			values = SMA(series.Closes(), p.Window)
		case EMAKind:
			values = EMA(series.Closes(), p.Window)
		case RSIKind:
			values = RSI(series.Closes(), p.Window)
		case ATRKind:
			values = ATR(series.Highs(), series.Lows(), series.Closes(), p.Window)
		}
		out.Lines = []Line{{Name: ValueLine, Values: values}}

	case StochasticKind:
		err := validateWindows(map[string]int{"window": p.Window, "smooth": p.Smooth})
		if err != nil {
			return nil, err
		}

		k, d := Stochastic(series.Highs(), series.Lows(), series.Closes(), p.Window, p.Smooth)
		out.Lines = []Line{{Name: KLine, Values: k}, {Name: DLine, Values: d}}

	case ADXKind:
		err := validateWindows(map[string]int{"window": p.Window})
		if err != nil {
			return nil, err
		}

		adx, plusDI, minusDI := ADX(series.Highs(), series.Lows(), series.Closes(), p.Window)
		out.Lines = []Line{
			{Name: ADXLine, Values: adx},
			{Name: PlusDILine, Values: plusDI},
			{Name: MinusDILine, Values: minusDI},
		}

	case MACDKind:
		err := validateWindows(map[string]int{"fast": p.Fast, "slow": p.Slow, "signal": p.Signal})
		if err != nil {
			return nil, err
		}

		line, signal, hist := MACD(series.Closes(), p.Fast, p.Slow, p.Signal)
		out.Lines = []Line{
			{Name: MACDLine, Values: line},
			{Name: SignalLine, Values: signal},
			{Name: HistLine, Values: hist},
		}

	case BollingerKind:
		err := validateWindows(map[string]int{"window": p.Window})
		if err != nil {
			return nil, err
		}

		deviations := p.Deviations
		if deviations == 0 {
			deviations = 2
		}

		mid, upper, lower := Bollinger(series.Closes(), p.Window, deviations)
		out.Lines = []Line{
			{Name: MidLine, Values: mid},
			{Name: UpperLine, Values: upper},
			{Name: LowerLine, Values: lower},
		}

	case AccumulationDistributionKind:
		values := AccumulationDistribution(series.Highs(), series.Lows(), series.Closes(), series.Volumes())
		out.Lines = []Line{{Name: ValueLine, Values: values}}

	default:
		return nil, fmt.Errorf("unknown indicator kind: %s", kind)
	}

	return out, nil
}
