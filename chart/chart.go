package chart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/dnldd/impulse/indicator"
	"github.com/dnldd/impulse/params"
	"github.com/dnldd/impulse/shared"
	"github.com/rs/zerolog"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	// DefaultWidth is the default chart width in pixels.
	DefaultWidth = 1280
	// DefaultHeight is the default chart height in pixels.
	DefaultHeight = 640
)

// Kind represents a chart type.
type Kind int

const (
	PriceKind Kind = iota
	AccDistKind
	AveragesKind
	RSIKind
	StochasticKind
	ADXKind
	MACDKind
	CyclesKind
	BollingerKind
)

// Kinds lists all supported chart kinds.
var Kinds = []Kind{PriceKind, AccDistKind, AveragesKind, RSIKind, StochasticKind, ADXKind,
	MACDKind, CyclesKind, BollingerKind}

// String stringifies the provided chart kind.
func (k Kind) String() string {
	switch k {
	case PriceKind:
		return "price"
	case AccDistKind:
		return "accdist"
	case AveragesKind:
		return "averages"
	case RSIKind:
		return "rsi"
	case StochasticKind:
		return "stochastic"
	case ADXKind:
		return "adx"
	case MACDKind:
		return "macd"
	case CyclesKind:
		return "cycles"
	case BollingerKind:
		return "bollinger"
	default:
		return "unknown"
	}
}

// ParseKind parses the provided chart kind string.
func ParseKind(s string) (Kind, error) {
	for _, kind := range Kinds {
		if kind.String() == s {
			return kind, nil
		}
	}

	return 0, fmt.Errorf("unknown chart '%s', available charts: %v", s, Kinds)
}

// KindsFor returns the chart kinds available for the provided period.
func KindsFor(period shared.Period) []Kind {
	kinds := make([]Kind, 0, len(Kinds))
	for _, kind := range Kinds {
		if kind == CyclesKind && !period.ShowsCycles() {
			continue
		}
		kinds = append(kinds, kind)
	}

	return kinds
}

// RendererConfig represents the configuration of the chart renderer.
type RendererConfig struct {
	// Width is the chart width in pixels.
	Width int
	// Height is the chart height in pixels.
	Height int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Renderer renders indicator charts as PNG images.
type Renderer struct {
	cfg *RendererConfig
}

// NewRenderer initializes a chart renderer.
func NewRenderer(cfg *RendererConfig) *Renderer {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}

	return &Renderer{cfg: cfg}
}

// plot represents the series and guides of a chart before rendering.
type plot struct {
	title     string
	series    []gochart.Series
	secondary bool
}

// timeSeries builds a time series from the defined points of the provided line.
func timeSeries(name string, dates []time.Time, values []shared.Value, style gochart.Style) (gochart.TimeSeries, int) {
	ts := gochart.TimeSeries{
		Name:    name,
		Style:   style,
		XValues: make([]time.Time, 0, len(values)),
		YValues: make([]float64, 0, len(values)),
	}

	for idx := range values {
		v, ok := values[idx].Get()
		if !ok {
			continue
		}
		ts.XValues = append(ts.XValues, dates[idx])
		ts.YValues = append(ts.YValues, v)
	}

	return ts, len(ts.YValues)
}

// guide builds a constant dashed line across the provided dates.
func guide(name string, dates []time.Time, level float64, color drawing.Color) gochart.TimeSeries {
	ys := make([]float64, len(dates))
	for idx := range ys {
		ys[idx] = level
	}

	return gochart.TimeSeries{
		Name:    name,
		XValues: dates,
		YValues: ys,
		Style: gochart.Style{
			StrokeColor:     color,
			StrokeWidth:     1,
			StrokeDashArray: []float64{4, 4},
		},
	}
}

// guides builds mean and mean ± std lines of the defined values of a line.
func guides(dates []time.Time, values []shared.Value, color drawing.Color) ([]gochart.Series, error) {
	defined := shared.DefinedValues(values)
	mean, err := indicator.Mean(defined)
	if err != nil {
		return nil, err
	}
	std, err := indicator.StdDev(defined, 1)
	if err != nil {
		return nil, err
	}

	return []gochart.Series{
		guide("mean", dates, mean, color),
		guide("mean+std", dates, mean+std, color),
		guide("mean-std", dates, mean-std, color),
	}, nil
}

// lineSpec describes an indicator line to draw.
type lineSpec struct {
	name  string
	label string
	style gochart.Style
}

// lines converts indicator output lines to time series, every line requiring at least two
// defined points.
func lines(out *indicator.Output, specs ...lineSpec) ([]gochart.Series, error) {
	series := make([]gochart.Series, 0, len(specs))
	for _, spec := range specs {
		values, ok := out.Line(spec.name)
		if !ok {
			return nil, fmt.Errorf("%s output has no %s line", out.Kind, spec.name)
		}

		ts, n := timeSeries(spec.label, out.Dates, values, spec.style)
		if n < 2 {
			return nil, fmt.Errorf("%w: %s has %d defined points", shared.ErrInsufficientData, spec.label, n)
		}
		series = append(series, ts)
	}

	return series, nil
}

// stroke returns a solid line style.
func stroke(color drawing.Color) gochart.Style {
	return gochart.Style{StrokeColor: color, StrokeWidth: 1.5}
}

// dashed returns a dashed line style.
func dashed(color drawing.Color) gochart.Style {
	return gochart.Style{StrokeColor: color, StrokeWidth: 1, StrokeDashArray: []float64{6, 3}}
}

// dotted returns a dash-dot line style.
func dotted(color drawing.Color) gochart.Style {
	return gochart.Style{StrokeColor: color, StrokeWidth: 1, StrokeDashArray: []float64{6, 2, 1, 2}}
}

// compute computes the provided indicator over the full series and trims it to start.
func compute(series *shared.Series, kind indicator.Kind, p indicator.Params, start time.Time) (*indicator.Output, error) {
	out, err := indicator.Compute(series, kind, p)
	if err != nil {
		return nil, err
	}

	return out.From(start), nil
}

// closeLine returns the closes of the series as defined values.
func closeLine(series *shared.Series) []shared.Value {
	closes := series.Closes()
	values := make([]shared.Value, len(closes))
	for idx := range closes {
		values[idx] = shared.Defined(closes[idx])
	}

	return values
}

// pricePlot draws the close with EMA ± 1, 2 and 3 ATR channels.
func pricePlot(series *shared.Series, p *params.Params, start time.Time, pal Palette) (*plot, error) {
	ema, err := indicator.Compute(series, indicator.EMAKind, indicator.Params{Window: p.ATREMAWindow})
	if err != nil {
		return nil, err
	}
	atr, err := indicator.Compute(series, indicator.ATRKind, p.Indicator(indicator.ATRKind))
	if err != nil {
		return nil, err
	}

	emaValues, _ := ema.Line(indicator.ValueLine)
	atrValues, _ := atr.Line(indicator.ValueLine)

	channels := &indicator.Output{Kind: indicator.ATRKind, Dates: series.Dates()}
	channels.Lines = append(channels.Lines, indicator.Line{Name: "close", Values: closeLine(series)})
	channels.Lines = append(channels.Lines, indicator.Line{Name: "ema", Values: emaValues})
	for mult := 1; mult <= 3; mult++ {
		upper := make([]shared.Value, len(emaValues))
		lower := make([]shared.Value, len(emaValues))
		for idx := range emaValues {
			e, ok := emaValues[idx].Get()
			a, aok := atrValues[idx].Get()
			if !ok || !aok {
				continue
			}
			upper[idx] = shared.Defined(e + float64(mult)*a)
			lower[idx] = shared.Defined(e - float64(mult)*a)
		}
		channels.Lines = append(channels.Lines,
			indicator.Line{Name: fmt.Sprintf("+%datr", mult), Values: upper},
			indicator.Line{Name: fmt.Sprintf("-%datr", mult), Values: lower})
	}
	channels = channels.From(start)

	atrColors := []drawing.Color{pal.ATR1, pal.ATR2, pal.ATR3}
	specs := []lineSpec{
		{name: "close", label: "close", style: stroke(pal.Price)},
		{name: "ema", label: fmt.Sprintf("ema(%d)", p.ATREMAWindow), style: stroke(pal.EMA)},
	}
	for mult := 1; mult <= 3; mult++ {
		style := dashed(atrColors[mult-1])
		if mult == 3 {
			style = dotted(atrColors[mult-1])
		}
		specs = append(specs,
			lineSpec{name: fmt.Sprintf("+%datr", mult), label: fmt.Sprintf("+%d atr", mult), style: style},
			lineSpec{name: fmt.Sprintf("-%datr", mult), label: fmt.Sprintf("-%d atr", mult), style: style})
	}

	drawn, err := lines(channels, specs...)
	if err != nil {
		return nil, err
	}

	return &plot{
		title:  fmt.Sprintf("%s price, ema(%d) ± atr(%d)", series.Market, p.ATREMAWindow, p.ATRWindow),
		series: drawn,
	}, nil
}

// accDistPlot draws the accumulation/distribution line.
func accDistPlot(series *shared.Series, start time.Time, pal Palette) (*plot, error) {
	out, err := compute(series, indicator.AccumulationDistributionKind, indicator.Params{}, start)
	if err != nil {
		return nil, err
	}

	drawn, err := lines(out, lineSpec{name: indicator.ValueLine, label: "a/d", style: stroke(pal.AccDist)})
	if err != nil {
		return nil, err
	}

	return &plot{title: fmt.Sprintf("%s accumulation/distribution", series.Market), series: drawn}, nil
}

// averagesPlot draws the short and long EMAs with their difference on the secondary axis.
func averagesPlot(series *shared.Series, p *params.Params, start time.Time, pal Palette) (*plot, error) {
	short, err := indicator.Compute(series, indicator.EMAKind, indicator.Params{Window: p.EMAShort})
	if err != nil {
		return nil, err
	}
	long, err := indicator.Compute(series, indicator.EMAKind, indicator.Params{Window: p.EMALong})
	if err != nil {
		return nil, err
	}

	shortValues, _ := short.Line(indicator.ValueLine)
	longValues, _ := long.Line(indicator.ValueLine)
	diff := make([]shared.Value, len(shortValues))
	for idx := range shortValues {
		s, ok := shortValues[idx].Get()
		l, lok := longValues[idx].Get()
		if ok && lok {
			diff[idx] = shared.Defined(s - l)
		}
	}

	out := (&indicator.Output{
		Kind:  indicator.EMAKind,
		Dates: series.Dates(),
		Lines: []indicator.Line{
			{Name: "short", Values: shortValues},
			{Name: "long", Values: longValues},
			{Name: "diff", Values: diff},
		},
	}).From(start)

	diffStyle := gochart.Style{StrokeColor: pal.Average, FillColor: pal.Average.WithAlpha(64), StrokeWidth: 1}
	drawn, err := lines(out,
		lineSpec{name: "short", label: fmt.Sprintf("ema(%d)", p.EMAShort), style: stroke(pal.EMAShort)},
		lineSpec{name: "long", label: fmt.Sprintf("ema(%d)", p.EMALong), style: stroke(pal.EMALong)},
		lineSpec{name: "diff", label: "difference", style: diffStyle},
	)
	if err != nil {
		return nil, err
	}

	diffSeries := drawn[2].(gochart.TimeSeries)
	diffSeries.YAxis = gochart.YAxisSecondary
	drawn[2] = diffSeries

	return &plot{
		title:     fmt.Sprintf("%s ema(%d) and ema(%d)", series.Market, p.EMAShort, p.EMALong),
		series:    drawn,
		secondary: true,
	}, nil
}

// oscillatorPlot draws an oscillator line with mean ± std guides over the display window.
func oscillatorPlot(title string, out *indicator.Output, guideLine string, pal Palette, specs ...lineSpec) (*plot, error) {
	drawn, err := lines(out, specs...)
	if err != nil {
		return nil, err
	}

	values, _ := out.Line(guideLine)
	extra, err := guides(out.Dates, values, pal.Average)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInsufficientData, err)
	}

	return &plot{title: title, series: append(drawn, extra...)}, nil
}

// cyclesPlot overlays each year of closes normalized by that year's max close, against the
// day of year.
func cyclesPlot(series *shared.Series, start time.Time, pal Palette) (*plot, error) {
	window := series.From(start)

	type cycle struct {
		days   []float64
		closes []float64
		max    float64
	}

	years := make([]int, 0, 16)
	cycles := make(map[int]*cycle)
	for idx := 0; idx < window.Len(); idx++ {
		candle := window.Candle(idx)
		year := candle.Date.Year()
		c, ok := cycles[year]
		if !ok {
			c = &cycle{}
			cycles[year] = c
			years = append(years, year)
		}
		c.days = append(c.days, float64(candle.Date.YearDay()))
		c.closes = append(c.closes, candle.Close)
		c.max = max(c.max, candle.Close)
	}

	drawn := make([]gochart.Series, 0, len(years))
	for idx, year := range years {
		c := cycles[year]
		if len(c.closes) < 2 {
			continue
		}

		ys := make([]float64, len(c.closes))
		for i := range c.closes {
			ys[i] = c.closes[i] / c.max
		}

		drawn = append(drawn, gochart.ContinuousSeries{
			Name:    fmt.Sprintf("%d", year),
			Style:   stroke(pal.Cycles[idx%len(pal.Cycles)]),
			XValues: c.days,
			YValues: ys,
		})
	}

	if len(drawn) == 0 {
		return nil, fmt.Errorf("%w: no year has two bars", shared.ErrInsufficientData)
	}

	return &plot{title: fmt.Sprintf("%s yearly cycles", series.Market), series: drawn}, nil
}

// build assembles the plot of the provided chart kind.
func build(series *shared.Series, p *params.Params, start time.Time, kind Kind, pal Palette) (*plot, error) {
	switch kind {
	case PriceKind:
		return pricePlot(series, p, start, pal)

	case AccDistKind:
		return accDistPlot(series, start, pal)

	case AveragesKind:
		return averagesPlot(series, p, start, pal)

	case RSIKind:
		out, err := compute(series, indicator.RSIKind, p.Indicator(indicator.RSIKind), start)
		if err != nil {
			return nil, err
		}

		return oscillatorPlot(fmt.Sprintf("%s rsi(%d)", series.Market, p.RSIWindow), out, indicator.ValueLine, pal,
			lineSpec{name: indicator.ValueLine, label: "rsi", style: stroke(pal.RSI)})

	case StochasticKind:
		out, err := compute(series, indicator.StochasticKind, p.Indicator(indicator.StochasticKind), start)
		if err != nil {
			return nil, err
		}

		return oscillatorPlot(fmt.Sprintf("%s stochastic(%d, %d)", series.Market, p.SOWindow, p.SOSmoothWindow),
			out, indicator.KLine, pal,
			lineSpec{name: indicator.KLine, label: "%k", style: stroke(pal.SO)},
			lineSpec{name: indicator.DLine, label: "%d", style: dashed(pal.SOSignal)})

	case ADXKind:
		out, err := compute(series, indicator.ADXKind, p.Indicator(indicator.ADXKind), start)
		if err != nil {
			return nil, err
		}

		drawn, err := lines(out,
			lineSpec{name: indicator.ADXLine, label: "adx", style: stroke(pal.ADX)},
			lineSpec{name: indicator.PlusDILine, label: "+di", style: stroke(pal.PlusDI)},
			lineSpec{name: indicator.MinusDILine, label: "-di", style: stroke(pal.MinusDI)})
		if err != nil {
			return nil, err
		}

		return &plot{title: fmt.Sprintf("%s adx(%d)", series.Market, p.ADXWindow), series: drawn}, nil

	case MACDKind:
		out, err := compute(series, indicator.MACDKind, p.Indicator(indicator.MACDKind), start)
		if err != nil {
			return nil, err
		}

		hist, _ := out.Line(indicator.HistLine)
		up := make([]shared.Value, len(hist))
		down := make([]shared.Value, len(hist))
		for idx := range hist {
			v, ok := hist[idx].Get()
			if !ok {
				continue
			}
			if v >= 0 {
				up[idx], down[idx] = shared.Defined(v), shared.Defined(0)
				continue
			}
			up[idx], down[idx] = shared.Defined(0), shared.Defined(v)
		}
		out.Lines = append(out.Lines,
			indicator.Line{Name: "up", Values: up},
			indicator.Line{Name: "down", Values: down})

		drawn, err := lines(out,
			lineSpec{name: indicator.MACDLine, label: "macd", style: stroke(pal.MACD)},
			lineSpec{name: indicator.SignalLine, label: "signal", style: stroke(pal.MACDSignal)},
			lineSpec{name: "up", label: "histogram+", style: gochart.Style{StrokeColor: pal.Up, FillColor: pal.Up.WithAlpha(96)}},
			lineSpec{name: "down", label: "histogram-", style: gochart.Style{StrokeColor: pal.Down, FillColor: pal.Down.WithAlpha(96)}})
		if err != nil {
			return nil, err
		}

		for _, idx := range []int{2, 3} {
			ts := drawn[idx].(gochart.TimeSeries)
			ts.YAxis = gochart.YAxisSecondary
			drawn[idx] = ts
		}

		return &plot{
			title:     fmt.Sprintf("%s macd(%d, %d, %d)", series.Market, p.MACDFast, p.MACDSlow, p.MACDSign),
			series:    drawn,
			secondary: true,
		}, nil

	case CyclesKind:
		return cyclesPlot(series, start, pal)

	case BollingerKind:
		out, err := compute(series, indicator.BollingerKind, p.Indicator(indicator.BollingerKind), start)
		if err != nil {
			return nil, err
		}
		out.Lines = append(out.Lines, indicator.Line{Name: "close", Values: closeLine(series.From(start))})

		drawn, err := lines(out,
			lineSpec{name: "close", label: "close", style: stroke(pal.Price)},
			lineSpec{name: indicator.MidLine, label: "mid", style: stroke(pal.EMA)},
			lineSpec{name: indicator.UpperLine, label: "upper", style: dashed(pal.ATR2)},
			lineSpec{name: indicator.LowerLine, label: "lower", style: dashed(pal.ATR2)})
		if err != nil {
			return nil, err
		}

		return &plot{title: fmt.Sprintf("%s bollinger(%d)", series.Market, p.BBWindow), series: drawn}, nil

	default:
		return nil, fmt.Errorf("unknown chart kind: %s", kind)
	}
}

// axisStyle returns the axis style of the provided palette.
func axisStyle(pal Palette) gochart.Style {
	return gochart.Style{FontColor: pal.Text, StrokeColor: pal.Grid}
}

// Render renders the provided chart kind of the series as a PNG. Indicators are computed over
// the full series and displayed from start onwards.
func (r *Renderer) Render(series *shared.Series, p params.Params, theme shared.Theme, start time.Time, kind Kind) ([]byte, error) {
	if series.From(start).Len() < 2 {
		return nil, fmt.Errorf("%w: %s chart of %s needs at least two bars", shared.ErrInsufficientData, kind, series.Market)
	}

	pal := PaletteFor(theme)
	pl, err := build(series, &p, start, kind, pal)
	if err != nil {
		return nil, fmt.Errorf("building %s chart of %s: %w", kind, series.Market, err)
	}

	graph := gochart.Chart{
		Title:      pl.title,
		TitleStyle: gochart.Style{FontColor: pal.Text},
		Width:      r.cfg.Width,
		Height:     r.cfg.Height,
		Background: gochart.Style{
			FillColor: pal.Background,
			Padding:   gochart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16},
		},
		Canvas: gochart.Style{FillColor: pal.Canvas},
		XAxis: gochart.XAxis{
			Style:          axisStyle(pal),
			ValueFormatter: gochart.TimeValueFormatterWithFormat(shared.DayLayout),
		},
		YAxis: gochart.YAxis{
			Style:          axisStyle(pal),
			GridMajorStyle: gochart.Style{StrokeColor: pal.Grid, StrokeWidth: 1},
		},
		Series: pl.series,
	}
	if kind == CyclesKind {
		graph.XAxis.Name = "day of year"
		graph.XAxis.ValueFormatter = nil
	}
	if pl.secondary {
		graph.YAxisSecondary = gochart.YAxis{Style: axisStyle(pal)}
	}
	graph.Elements = []gochart.Renderable{
		gochart.Legend(&graph, gochart.Style{FillColor: pal.Canvas, FontColor: pal.Text, StrokeColor: pal.Grid}),
	}

	var buf bytes.Buffer
	err = graph.Render(gochart.PNG, &buf)
	if err != nil {
		r.cfg.Logger.Error().Msgf("rendering %s chart of %s: %v", kind, series.Market, err)
		return nil, fmt.Errorf("rendering %s chart of %s: %w", kind, series.Market, err)
	}

	return buf.Bytes(), nil
}
