package chart

import (
	"github.com/dnldd/impulse/shared"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Palette represents the colors a chart is drawn with.
type Palette struct {
	Background drawing.Color
	Canvas     drawing.Color
	Text       drawing.Color
	Grid       drawing.Color
	Price      drawing.Color
	EMA        drawing.Color
	EMAShort   drawing.Color
	EMALong    drawing.Color
	ATR1       drawing.Color
	ATR2       drawing.Color
	ATR3       drawing.Color
	Up         drawing.Color
	Down       drawing.Color
	Average    drawing.Color
	RSI        drawing.Color
	SO         drawing.Color
	SOSignal   drawing.Color
	ADX        drawing.Color
	PlusDI     drawing.Color
	MinusDI    drawing.Color
	MACD       drawing.Color
	MACDSignal drawing.Color
	AccDist    drawing.Color
	Cycles     []drawing.Color
}

var palettes = map[shared.Theme]Palette{
	shared.Light: {
		Background: drawing.ColorFromHex("ffffff"),
		Canvas:     drawing.ColorFromHex("ffffff"),
		Text:       drawing.ColorFromHex("222222"),
		Grid:       drawing.ColorFromHex("dddddd"),
		Price:      drawing.ColorFromHex("1f1f1f"),
		EMA:        drawing.ColorFromHex("1f77b4"),
		EMAShort:   drawing.ColorFromHex("ff7f0e"),
		EMALong:    drawing.ColorFromHex("1f77b4"),
		ATR1:       drawing.ColorFromHex("2ca02c"),
		ATR2:       drawing.ColorFromHex("ff7f0e"),
		ATR3:       drawing.ColorFromHex("d62728"),
		Up:         drawing.ColorFromHex("2ca02c"),
		Down:       drawing.ColorFromHex("d62728"),
		Average:    drawing.ColorFromHex("7f7f7f"),
		RSI:        drawing.ColorFromHex("9467bd"),
		SO:         drawing.ColorFromHex("1f77b4"),
		SOSignal:   drawing.ColorFromHex("ff7f0e"),
		ADX:        drawing.ColorFromHex("1f1f1f"),
		PlusDI:     drawing.ColorFromHex("2ca02c"),
		MinusDI:    drawing.ColorFromHex("d62728"),
		MACD:       drawing.ColorFromHex("1f77b4"),
		MACDSignal: drawing.ColorFromHex("ff7f0e"),
		AccDist:    drawing.ColorFromHex("8c564b"),
		Cycles: []drawing.Color{
			drawing.ColorFromHex("1f77b4"), drawing.ColorFromHex("ff7f0e"), drawing.ColorFromHex("2ca02c"),
			drawing.ColorFromHex("d62728"), drawing.ColorFromHex("9467bd"), drawing.ColorFromHex("8c564b"),
		},
	},
	shared.Dark: {
		Background: drawing.ColorFromHex("121212"),
		Canvas:     drawing.ColorFromHex("1e1e1e"),
		Text:       drawing.ColorFromHex("e0e0e0"),
		Grid:       drawing.ColorFromHex("3a3a3a"),
		Price:      drawing.ColorFromHex("f5f5f5"),
		EMA:        drawing.ColorFromHex("4fc3f7"),
		EMAShort:   drawing.ColorFromHex("ffb74d"),
		EMALong:    drawing.ColorFromHex("4fc3f7"),
		ATR1:       drawing.ColorFromHex("81c784"),
		ATR2:       drawing.ColorFromHex("ffb74d"),
		ATR3:       drawing.ColorFromHex("e57373"),
		Up:         drawing.ColorFromHex("81c784"),
		Down:       drawing.ColorFromHex("e57373"),
		Average:    drawing.ColorFromHex("9e9e9e"),
		RSI:        drawing.ColorFromHex("ba68c8"),
		SO:         drawing.ColorFromHex("4fc3f7"),
		SOSignal:   drawing.ColorFromHex("ffb74d"),
		ADX:        drawing.ColorFromHex("f5f5f5"),
		PlusDI:     drawing.ColorFromHex("81c784"),
		MinusDI:    drawing.ColorFromHex("e57373"),
		MACD:       drawing.ColorFromHex("4fc3f7"),
		MACDSignal: drawing.ColorFromHex("ffb74d"),
		AccDist:    drawing.ColorFromHex("a1887f"),
		Cycles: []drawing.Color{
			drawing.ColorFromHex("4fc3f7"), drawing.ColorFromHex("ffb74d"), drawing.ColorFromHex("81c784"),
			drawing.ColorFromHex("e57373"), drawing.ColorFromHex("ba68c8"), drawing.ColorFromHex("a1887f"),
		},
	},
	shared.DarkBlue: {
		Background: drawing.ColorFromHex("0b1a2e"),
		Canvas:     drawing.ColorFromHex("10243f"),
		Text:       drawing.ColorFromHex("d6e4f5"),
		Grid:       drawing.ColorFromHex("24405f"),
		Price:      drawing.ColorFromHex("e8f1fb"),
		EMA:        drawing.ColorFromHex("64b5f6"),
		EMAShort:   drawing.ColorFromHex("ffd54f"),
		EMALong:    drawing.ColorFromHex("64b5f6"),
		ATR1:       drawing.ColorFromHex("4db6ac"),
		ATR2:       drawing.ColorFromHex("ffd54f"),
		ATR3:       drawing.ColorFromHex("ef5350"),
		Up:         drawing.ColorFromHex("4db6ac"),
		Down:       drawing.ColorFromHex("ef5350"),
		Average:    drawing.ColorFromHex("90a4ae"),
		RSI:        drawing.ColorFromHex("ce93d8"),
		SO:         drawing.ColorFromHex("64b5f6"),
		SOSignal:   drawing.ColorFromHex("ffd54f"),
		ADX:        drawing.ColorFromHex("e8f1fb"),
		PlusDI:     drawing.ColorFromHex("4db6ac"),
		MinusDI:    drawing.ColorFromHex("ef5350"),
		MACD:       drawing.ColorFromHex("64b5f6"),
		MACDSignal: drawing.ColorFromHex("ffd54f"),
		AccDist:    drawing.ColorFromHex("bcaaa4"),
		Cycles: []drawing.Color{
			drawing.ColorFromHex("64b5f6"), drawing.ColorFromHex("ffd54f"), drawing.ColorFromHex("4db6ac"),
			drawing.ColorFromHex("ef5350"), drawing.ColorFromHex("ce93d8"), drawing.ColorFromHex("bcaaa4"),
		},
	},
}

// PaletteFor returns the palette of the provided theme, the light palette for unknown themes.
func PaletteFor(theme shared.Theme) Palette {
	p, ok := palettes[theme]
	if !ok {
		return palettes[shared.Light]
	}

	return p
}
