package params

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dnldd/impulse/indicator"
	"github.com/dnldd/impulse/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

func TestParams(t *testing.T) {
	// Ensure the default parameters are valid.
	p := Default()
	assert.NoError(t, p.Validate())
	assert.Equal(t, len(Keys()), 12)

	// Ensure parameters can be read and updated by key.
	w, err := p.Get(RSIWindowKey)
	assert.NoError(t, err)
	assert.Equal(t, w, 14)

	err = p.Set(RSIWindowKey, 21)
	assert.NoError(t, err)
	assert.Equal(t, p.RSIWindow, 21)

	// Ensure bounds are inclusive.
	assert.NoError(t, p.Set(EMALongKey, MinWindow))
	assert.NoError(t, p.Set(EMALongKey, MaxWindow))

	// Ensure out of bounds updates are rejected and leave the parameter unchanged.
	err = p.Set(EMALongKey, 2)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	err = p.Set(EMALongKey, 301)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.Equal(t, p.EMALong, MaxWindow)

	// Ensure unknown keys are rejected.
	_, err = p.Get("vwap_window")
	assert.True(t, errors.Is(err, ErrUnknownKey))
	err = p.Set("vwap_window", 10)
	assert.True(t, errors.Is(err, ErrUnknownKey))

	// Ensure validation reports every invalid parameter.
	invalid := Default()
	invalid.ADXWindow = 0
	invalid.MACDSign = 1000
	err = invalid.Validate()
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.True(t, strings.Contains(err.Error(), ADXWindowKey))
	assert.True(t, strings.Contains(err.Error(), MACDSignKey))
}

func TestParamsMappings(t *testing.T) {
	p := Default()

	// Ensure scoring windows are derived from the parameters.
	w := p.Windows()
	assert.Equal(t, w.RSIWindow, 14)
	assert.Equal(t, w.SOSmoothWindow, 3)
	assert.Equal(t, w.MACDSlow, 26)
	assert.Equal(t, w.EMALong, 26)

	// Ensure indicator parameters are derived from the parameters.
	tests := []struct {
		kind indicator.Kind
		want indicator.Params
	}{
		{kind: indicator.RSIKind, want: indicator.Params{Window: 14}},
		{kind: indicator.StochasticKind, want: indicator.Params{Window: 14, Smooth: 3}},
		{kind: indicator.MACDKind, want: indicator.Params{Fast: 12, Slow: 26, Signal: 9}},
		{kind: indicator.ATRKind, want: indicator.Params{Window: 14}},
		{kind: indicator.BollingerKind, want: indicator.Params{Window: 20, Deviations: 2}},
		{kind: indicator.AccumulationDistributionKind, want: indicator.Params{}},
	}

	for _, test := range tests {
		t.Run(test.kind.String(), func(t *testing.T) {
			assert.Equal(t, p.Indicator(test.kind), test.want)
		})
	}
}

func TestStore(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "config.yml")

	// Ensure a missing parameter file is created with the defaults.
	store, err := NewStore(&StoreConfig{Path: path, Logger: &logger})
	assert.NoError(t, err)
	assert.Equal(t, store.Params(), Default())
	_, err = os.Stat(path)
	assert.NoError(t, err)

	// Ensure updates are persisted.
	p, err := store.Set(SOWindowKey, 5)
	assert.NoError(t, err)
	assert.Equal(t, p.SOWindow, 5)

	p, err = store.SetMode(shared.DarkBlue)
	assert.NoError(t, err)
	assert.Equal(t, p.Mode, shared.DarkBlue)

	reloaded, err := NewStore(&StoreConfig{Path: path, Logger: &logger})
	assert.NoError(t, err)
	if diff := cmp.Diff(store.Params(), reloaded.Params()); diff != "" {
		t.Fatalf("reloaded parameters mismatch (-want +got):\n%s", diff)
	}

	// Ensure rejected updates are not persisted.
	_, err = store.Set(SOWindowKey, 500)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.Equal(t, store.Params().SOWindow, 5)

	// Ensure partial parameter files keep defaults for missing fields.
	partial := filepath.Join(t.TempDir(), "partial.yml")
	err = os.WriteFile(partial, []byte("rsi_window: 9\nmode: dark\n"), 0o644)
	assert.NoError(t, err)
	store, err = NewStore(&StoreConfig{Path: partial, Logger: &logger})
	assert.NoError(t, err)
	assert.Equal(t, store.Params().RSIWindow, 9)
	assert.Equal(t, store.Params().ADXWindow, 14)
	assert.Equal(t, store.Params().Mode, shared.Dark)

	// Ensure invalid parameter files are rejected.
	invalid := filepath.Join(t.TempDir(), "invalid.yml")
	err = os.WriteFile(invalid, []byte("rsi_window: 1\n"), 0o644)
	assert.NoError(t, err)
	_, err = NewStore(&StoreConfig{Path: invalid, Logger: &logger})
	assert.True(t, errors.Is(err, ErrOutOfBounds))

	malformed := filepath.Join(t.TempDir(), "malformed.yml")
	err = os.WriteFile(malformed, []byte("mode: sepia\n"), 0o644)
	assert.NoError(t, err)
	_, err = NewStore(&StoreConfig{Path: malformed, Logger: &logger})
	assert.Error(t, err)
}
