package dashboard

import (
	"fmt"
	"math"
	"strconv"
)

// View is the render-ready output of a widget renderer.
type View interface {
	Kind() WidgetType
}

// WidgetRenderer maps fetched data plus widget config into a view.
type WidgetRenderer interface {
	Render(w Widget, data []Series) (View, error)
}

// RendererFunc adapts a function to WidgetRenderer.
type RendererFunc func(w Widget, data []Series) (View, error)

// Render calls f.
func (f RendererFunc) Render(w Widget, data []Series) (View, error) { return f(w, data) }

func defaultRenderers() map[WidgetType]WidgetRenderer {
	return map[WidgetType]WidgetRenderer{
		WidgetLineChart: LineRenderer{},
		WidgetBarChart:  CategoryRenderer{},
		WidgetPieChart:  CategoryRenderer{},
		WidgetGauge:     GaugeRenderer{},
		WidgetCard:      CardRenderer{},
	}
}

// SeriesSummary carries the latest value and relative change of one line.
type SeriesSummary struct {
	Name   string  `json:"name"`
	Latest float64 `json:"latest"`
	Trend  float64 `json:"trend"`
}

// LineView keeps the multi-series time structure as fetched.
type LineView struct {
	Series    []Series        `json:"series"`
	Summaries []SeriesSummary `json:"summaries"`
	Config    LineChartConfig `json:"config"`
}

func (LineView) Kind() WidgetType { return WidgetLineChart }

// CategoryItem is one bar or slice.
type CategoryItem struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// CategoryView backs bar and pie charts.
type CategoryView struct {
	Type  WidgetType      `json:"type"`
	Items []CategoryItem  `json:"items"`
	Bar   *BarChartConfig `json:"bar,omitempty"`
	Pie   *PieChartConfig `json:"pie,omitempty"`
}

func (v CategoryView) Kind() WidgetType { return v.Type }

// GaugeView is a value mapped onto the gauge sweep.
type GaugeView struct {
	Value      float64     `json:"value"`
	Fraction   float64     `json:"fraction"`
	Angle      float64     `json:"angle"`
	Clamped    bool        `json:"clamped"`
	Config     GaugeConfig `json:"config"`
	DisplayMin float64     `json:"min"`
	DisplayMax float64     `json:"max"`
}

func (GaugeView) Kind() WidgetType { return WidgetGauge }

// TrendDirection classifies the change between the last two card samples.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

const (
	trendThreshold = 0.5
	cardHistoryLen = 10
)

// CardView is a single metric with trend and sparkline history.
type CardView struct {
	Value     float64        `json:"value"`
	Formatted string         `json:"formatted"`
	Trend     TrendDirection `json:"trend"`
	TrendPct  float64        `json:"trendValue"`
	History   []float64      `json:"history"`
	Config    CardConfig     `json:"config"`
}

func (CardView) Kind() WidgetType { return WidgetCard }

// LineRenderer passes time series through and summarizes each line.
type LineRenderer struct{}

// Render implements WidgetRenderer.
func (LineRenderer) Render(w Widget, data []Series) (View, error) {
	cfg, ok := configAs[*LineChartConfig](w)
	if !ok {
		return nil, configMismatch(w)
	}
	view := LineView{Series: cloneSeries(data), Config: *cfg}
	if view.Config.XAxisLabel == "" {
		view.Config.XAxisLabel = "Time"
	}
	if view.Config.YAxisLabel == "" {
		view.Config.YAxisLabel = "Value"
	}
	for _, s := range data {
		view.Summaries = append(view.Summaries, SeriesSummary{
			Name:   s.Name,
			Latest: s.Latest(),
			Trend:  lineTrend(s.Points),
		})
	}
	return view, nil
}

func lineTrend(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	last := points[len(points)-1].Value
	prev := points[len(points)-2].Value
	if prev == 0 {
		return 0
	}
	return (last - prev) / prev
}

// CategoryRenderer reduces each series to its latest value.
type CategoryRenderer struct{}

// Render implements WidgetRenderer.
func (CategoryRenderer) Render(w Widget, data []Series) (View, error) {
	view := CategoryView{Type: w.Type, Items: CategoryItems(data)}
	switch cfg := effectiveConfig(w).(type) {
	case *BarChartConfig:
		c := *cfg
		if c.XAxisLabel == "" {
			c.XAxisLabel = "Category"
		}
		if c.YAxisLabel == "" {
			c.YAxisLabel = "Value"
		}
		view.Bar = &c
	case *PieChartConfig:
		c := *cfg
		view.Pie = &c
	default:
		return nil, configMismatch(w)
	}
	return view, nil
}

// CategoryItems maps time series to {name, latest}. Scalar input passes through.
func CategoryItems(data []Series) []CategoryItem {
	items := make([]CategoryItem, 0, len(data))
	for _, s := range data {
		items = append(items, CategoryItem{Name: s.Name, Value: s.Latest()})
	}
	return items
}

// GaugeRenderer maps the first metric onto the configured sweep.
type GaugeRenderer struct{}

// Render implements WidgetRenderer. The displayed value is never clamped; only
// the needle position is held inside [min, max].
func (GaugeRenderer) Render(w Widget, data []Series) (View, error) {
	cfg, ok := configAs[*GaugeConfig](w)
	if !ok {
		return nil, configMismatch(w)
	}
	value := 0.0
	if len(data) > 0 {
		value = data[0].Latest()
	}
	fraction, clamped := GaugeFraction(value, cfg.Min, cfg.Max)
	return GaugeView{
		Value:      value,
		Fraction:   fraction,
		Angle:      cfg.StartAngle + fraction*cfg.AngleSpan,
		Clamped:    clamped,
		Config:     *cfg,
		DisplayMin: cfg.Min,
		DisplayMax: cfg.Max,
	}, nil
}

// GaugeFraction returns the position of value between min and max in [0, 1]
// and whether it had to be clamped.
func GaugeFraction(value, lo, hi float64) (float64, bool) {
	if hi <= lo || math.IsNaN(value) {
		return 0, true
	}
	f := (value - lo) / (hi - lo)
	switch {
	case f < 0:
		return 0, true
	case f > 1:
		return 1, true
	}
	return f, false
}

// CardRenderer shows the latest value of the first metric with its trend.
type CardRenderer struct{}

// Render implements WidgetRenderer.
func (CardRenderer) Render(w Widget, data []Series) (View, error) {
	cfg, ok := configAs[*CardConfig](w)
	if !ok {
		return nil, configMismatch(w)
	}
	view := CardView{Trend: TrendStable, History: []float64{}, Config: *cfg}
	if view.Config.Icon == "" {
		view.Config.Icon = "assessment"
	}
	if view.Config.Color == "" {
		view.Config.Color = "#5AA454"
	}
	if view.Config.TextColor == "" {
		view.Config.TextColor = "#ffffff"
	}
	if len(data) > 0 {
		first := data[0]
		view.Value = first.Latest()
		values := seriesValues(first)
		if n := len(values); n >= 2 {
			view.TrendPct = PercentChange(values[n-2], values[n-1])
			view.Trend = ClassifyTrend(view.TrendPct)
		}
		if n := len(values); n > cardHistoryLen {
			values = values[n-cardHistoryLen:]
		}
		view.History = values
	}
	view.Formatted = strconv.FormatFloat(view.Value, 'f', view.Config.Decimals, 64)
	if view.Config.Units != "" {
		view.Formatted += " " + view.Config.Units
	}
	return view, nil
}

func seriesValues(s Series) []float64 {
	if !s.HasPoints() {
		return []float64{s.Value}
	}
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// PercentChange is the change from prev to latest in percent; 0 when prev is 0.
func PercentChange(prev, latest float64) float64 {
	if prev == 0 {
		return 0
	}
	return (latest - prev) / prev * 100
}

// ClassifyTrend buckets a percentage change with a ±0.5% dead band.
func ClassifyTrend(pct float64) TrendDirection {
	switch {
	case pct >= trendThreshold:
		return TrendUp
	case pct <= -trendThreshold:
		return TrendDown
	}
	return TrendStable
}

func effectiveConfig(w Widget) WidgetConfig {
	if w.Config == nil {
		return DecodedDefaults(w.Type)
	}
	return w.Config
}

func configAs[T WidgetConfig](w Widget) (T, bool) {
	typed, ok := effectiveConfig(w).(T)
	return typed, ok
}

func configMismatch(w Widget) error {
	if w.Config == nil {
		return fmt.Errorf("dashboard: widget %s has no config for type %s", w.ID, w.Type)
	}
	return fmt.Errorf("dashboard: widget %s of type %s carries %s config", w.ID, w.Type, w.Config.WidgetType())
}
