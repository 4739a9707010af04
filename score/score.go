package score

import (
	"fmt"
	"time"

	"github.com/dnldd/impulse/shared"
	"github.com/google/uuid"
)

// Score represents a discrete signal state, one of 0, 1 or 2. Its meaning depends on the
// signal that produced it.
type Score int

// Kind represents a signal type.
type Kind int

const (
	WeeklyImpulseKind Kind = iota
	ValueZoneKind
	RSILevelKind
	StochasticLevelKind
	ADXLevelKind
)

// Kinds lists all signal kinds in evaluation order.
var Kinds = []Kind{WeeklyImpulseKind, ValueZoneKind, RSILevelKind, StochasticLevelKind, ADXLevelKind}

// String stringifies the provided signal kind.
func (k Kind) String() string {
	switch k {
	case WeeklyImpulseKind:
		return "weekly_impulse"
	case ValueZoneKind:
		return "value_zone"
	case RSILevelKind:
		return "rsi_level"
	case StochasticLevelKind:
		return "so_level"
	case ADXLevelKind:
		return "adx_level"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its string form.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes the kind from its string form.
func (k *Kind) UnmarshalText(b []byte) error {
	kind, err := ParseKind(string(b))
	if err != nil {
		return err
	}

	*k = kind
	return nil
}

// ParseKind parses the provided signal kind string.
func ParseKind(s string) (Kind, error) {
	for _, kind := range Kinds {
		if kind.String() == s {
			return kind, nil
		}
	}

	return 0, fmt.Errorf("unknown signal '%s'", s)
}

// Describe returns a short description of the provided score for the signal kind.
func (k Kind) Describe(s Score) string {
	switch k {
	case WeeklyImpulseKind:
		switch s {
		case 0:
			return "bearish impulse"
		case 1:
			return "bullish impulse"
		case 2:
			return "impulse transition"
		}
	case ValueZoneKind:
		switch s {
		case 0:
			return "above value"
		case 1:
			return "inside value zone"
		case 2:
			return "below value"
		}
	case RSILevelKind, StochasticLevelKind:
		switch s {
		case 0:
			return "overbought"
		case 1:
			return "neutral"
		case 2:
			return "oversold"
		}
	case ADXLevelKind:
		switch s {
		case 0:
			return "no directional edge"
		case 1:
			return "no trend"
		case 2:
			return "rising trend"
		}
	}

	return "unknown"
}

// namedWindow is a window parameter with the name it is reported by.
type namedWindow struct {
	name string
	size int
}

// checkWindows errors with ErrInvalidWindow for the first non-positive window.
func checkWindows(windows ...namedWindow) error {
	for _, w := range windows {
		if w.size <= 0 {
			return fmt.Errorf("%w: %s window must be positive, got %d", shared.ErrInvalidWindow, w.name, w.size)
		}
	}

	return nil
}

// Windows represents the window parameters used to evaluate signals.
type Windows struct {
	RSIWindow      int
	SOWindow       int
	SOSmoothWindow int
	ADXWindow      int
	MACDFast       int
	MACDSlow       int
	MACDSign       int
	EMAShort       int
	EMALong        int
}

// Outcome represents the result of evaluating a single signal: either a score or the error
// that prevented scoring.
type Outcome struct {
	Kind        Kind   `json:"kind"`
	Score       Score  `json:"score"`
	Description string `json:"description,omitempty"`
	Err         error  `json:"-"`
	Error       string `json:"error,omitempty"`
}

// Failed reports whether the signal could not be scored.
func (o *Outcome) Failed() bool {
	return o.Err != nil || o.Error != ""
}

// newOutcome creates an outcome for the provided signal evaluation.
func newOutcome(kind Kind, s Score, err error) Outcome {
	if err != nil {
		return Outcome{Kind: kind, Err: err, Error: err.Error()}
	}

	return Outcome{Kind: kind, Score: s, Description: kind.Describe(s)}
}

// Card represents the independently evaluated signals of a market at a point in time.
type Card struct {
	ID       string    `json:"id"`
	Market   string    `json:"market"`
	Date     time.Time `json:"date"`
	Outcomes []Outcome `json:"outcomes"`
}

// Outcome returns the outcome of the provided signal kind.
func (c *Card) Outcome(kind Kind) (Outcome, bool) {
	for idx := range c.Outcomes {
		if c.Outcomes[idx].Kind == kind {
			return c.Outcomes[idx], true
		}
	}

	return Outcome{}, false
}

// Failed returns the number of signals that could not be scored.
func (c *Card) Failed() int {
	var failed int
	for idx := range c.Outcomes {
		if c.Outcomes[idx].Failed() {
			failed++
		}
	}

	return failed
}

// Evaluate scores every signal independently. The weekly impulse is evaluated over the
// weekly series, every other signal over the daily series. Signals are never combined.
func Evaluate(daily *shared.Series, weekly *shared.Series, w Windows) (*Card, error) {
	last, ok := daily.Last()
	if !ok {
		return nil, fmt.Errorf("%w: empty daily series", shared.ErrInsufficientData)
	}

	card := &Card{
		ID:       uuid.New().String(),
		Market:   daily.Market,
		Date:     last.Date,
		Outcomes: make([]Outcome, 0, len(Kinds)),
	}

	s, err := WeeklyImpulse(weekly, w.EMAShort, w.MACDSlow, w.MACDFast, w.MACDSign)
	card.Outcomes = append(card.Outcomes, newOutcome(WeeklyImpulseKind, s, err))

	s, err = ValueZone(daily, w.EMAShort, w.EMALong)
	card.Outcomes = append(card.Outcomes, newOutcome(ValueZoneKind, s, err))

	s, err = RSILevel(daily, w.RSIWindow)
	card.Outcomes = append(card.Outcomes, newOutcome(RSILevelKind, s, err))

	s, err = StochasticLevel(daily, w.SOWindow, w.SOSmoothWindow)
	card.Outcomes = append(card.Outcomes, newOutcome(StochasticLevelKind, s, err))

	s, err = ADXLevel(daily, w.ADXWindow)
	card.Outcomes = append(card.Outcomes, newOutcome(ADXLevelKind, s, err))

	return card, nil
}
