package params

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dnldd/impulse/indicator"
	"github.com/dnldd/impulse/score"
	"github.com/dnldd/impulse/shared"
)

const (
	// MinWindow is the smallest accepted window parameter.
	MinWindow = 3
	// MaxWindow is the largest accepted window parameter.
	MaxWindow = 300
)

// Window parameter keys.
const (
	RSIWindowKey      = "rsi_window"
	SOWindowKey       = "so_window"
	SOSmoothWindowKey = "so_smooth_window"
	ADXWindowKey      = "adx_window"
	MACDFastKey       = "macd_fast"
	MACDSlowKey       = "macd_slow"
	MACDSignKey       = "macd_sign"
	EMAShortKey       = "ema_short"
	EMALongKey        = "ema_long"
	ATRWindowKey      = "atr_window"
	ATREMAWindowKey   = "atr_ema_window"
	BBWindowKey       = "bb_window"

	// ModeKey is the chart theme key.
	ModeKey = "mode"
)

// ErrUnknownKey is returned for parameter keys that do not exist.
var ErrUnknownKey = errors.New("unknown parameter key")

// ErrOutOfBounds is returned for window parameters outside [MinWindow, MaxWindow].
var ErrOutOfBounds = errors.New("parameter out of bounds")

// Params represents the tunable indicator and chart parameters.
type Params struct {
	RSIWindow      int          `yaml:"rsi_window" json:"rsi_window"`
	SOWindow       int          `yaml:"so_window" json:"so_window"`
	SOSmoothWindow int          `yaml:"so_smooth_window" json:"so_smooth_window"`
	ADXWindow      int          `yaml:"adx_window" json:"adx_window"`
	MACDFast       int          `yaml:"macd_fast" json:"macd_fast"`
	MACDSlow       int          `yaml:"macd_slow" json:"macd_slow"`
	MACDSign       int          `yaml:"macd_sign" json:"macd_sign"`
	EMAShort       int          `yaml:"ema_short" json:"ema_short"`
	EMALong        int          `yaml:"ema_long" json:"ema_long"`
	ATRWindow      int          `yaml:"atr_window" json:"atr_window"`
	ATREMAWindow   int          `yaml:"atr_ema_window" json:"atr_ema_window"`
	BBWindow       int          `yaml:"bb_window" json:"bb_window"`
	Mode           shared.Theme `yaml:"mode" json:"mode"`
}

// Default returns the default parameters.
func Default() Params {
	return Params{
		RSIWindow:      14,
		SOWindow:       14,
		SOSmoothWindow: 3,
		ADXWindow:      14,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSign:       9,
		EMAShort:       13,
		EMALong:        26,
		ATRWindow:      14,
		ATREMAWindow:   22,
		BBWindow:       20,
		Mode:           shared.Light,
	}
}

// windows returns the addressable window parameters keyed by name.
func (p *Params) windows() map[string]*int {
	return map[string]*int{
		RSIWindowKey:      &p.RSIWindow,
		SOWindowKey:       &p.SOWindow,
		SOSmoothWindowKey: &p.SOSmoothWindow,
		ADXWindowKey:      &p.ADXWindow,
		MACDFastKey:       &p.MACDFast,
		MACDSlowKey:       &p.MACDSlow,
		MACDSignKey:       &p.MACDSign,
		EMAShortKey:       &p.EMAShort,
		EMALongKey:        &p.EMALong,
		ATRWindowKey:      &p.ATRWindow,
		ATREMAWindowKey:   &p.ATREMAWindow,
		BBWindowKey:       &p.BBWindow,
	}
}

// Keys returns the sorted window parameter keys.
func Keys() []string {
	var p Params
	keys := make([]string, 0, 12)
	for k := range p.windows() {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}

// checkBounds asserts the provided window is within bounds.
func checkBounds(key string, value int) error {
	if value < MinWindow || value > MaxWindow {
		return fmt.Errorf("%w: %s must be within [%d, %d], got %d", ErrOutOfBounds, key,
			MinWindow, MaxWindow, value)
	}

	return nil
}

// Validate asserts the parameters are sane.
func (p *Params) Validate() error {
	var errs error
	for _, key := range Keys() {
		err := checkBounds(key, *p.windows()[key])
		if err != nil {
			errs = errors.Join(errs, err)
		}
	}

	if !slices.Contains(shared.Themes, p.Mode) {
		errs = errors.Join(errs, fmt.Errorf("unknown mode: %s", p.Mode))
	}

	return errs
}

// Get returns the window parameter of the provided key.
func (p *Params) Get(key string) (int, error) {
	w, ok := p.windows()[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	return *w, nil
}

// Set updates the window parameter of the provided key.
func (p *Params) Set(key string, value int) error {
	w, ok := p.windows()[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	err := checkBounds(key, value)
	if err != nil {
		return err
	}

	*w = value
	return nil
}

// Windows returns the windows used to score signals.
func (p *Params) Windows() score.Windows {
	return score.Windows{
		RSIWindow:      p.RSIWindow,
		SOWindow:       p.SOWindow,
		SOSmoothWindow: p.SOSmoothWindow,
		ADXWindow:      p.ADXWindow,
		MACDFast:       p.MACDFast,
		MACDSlow:       p.MACDSlow,
		MACDSign:       p.MACDSign,
		EMAShort:       p.EMAShort,
		EMALong:        p.EMALong,
	}
}

// Indicator returns the parameters of the provided indicator kind.
func (p *Params) Indicator(kind indicator.Kind) indicator.Params {
	switch kind {
	case indicator.SMAKind, indicator.EMAKind:
		return indicator.Params{Window: p.EMAShort}
	case indicator.RSIKind:
		return indicator.Params{Window: p.RSIWindow}
	case indicator.StochasticKind:
		return indicator.Params{Window: p.SOWindow, Smooth: p.SOSmoothWindow}
	case indicator.ADXKind:
		return indicator.Params{Window: p.ADXWindow}
	case indicator.MACDKind:
		return indicator.Params{Fast: p.MACDFast, Slow: p.MACDSlow, Signal: p.MACDSign}
	case indicator.ATRKind:
		return indicator.Params{Window: p.ATRWindow}
	case indicator.BollingerKind:
		return indicator.Params{Window: p.BBWindow, Deviations: 2}
	default:
		return indicator.Params{}
	}
}
