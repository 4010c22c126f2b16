package dashboard

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// WidgetForm mirrors a widget into editable property fields. The same form
// backs the inline detail panel and the modal properties dialog.
type WidgetForm struct {
	Type          WidgetType            `json:"type"`
	Title         string                `json:"title"`
	General       GeneralSettings       `json:"general"`
	DataSource    DataSourceSettings    `json:"dataSource"`
	TimeSettings  TimeSettings          `json:"timeSettings"`
	Visualization VisualizationSettings `json:"visualization"`
	Card          CardSettings          `json:"card"`
}

// GeneralSettings is the grid geometry section.
type GeneralSettings struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// Validate keeps the geometry on the grid.
func (g GeneralSettings) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.X, validation.Min(0)),
		validation.Field(&g.Y, validation.Min(0)),
		validation.Field(&g.Cols, validation.Required, validation.Min(1)),
		validation.Field(&g.Rows, validation.Required, validation.Min(1)),
	)
}

// DataSourceSettings is the cascading entity selection.
type DataSourceSettings struct {
	FacilityID string   `json:"facilityId"`
	SystemID   string   `json:"systemId"`
	DeviceID   string   `json:"deviceId"`
	Metrics    []string `json:"metrics"`
}

// Validate enforces the facility -> system -> device -> metrics ordering.
func (d DataSourceSettings) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.SystemID, validation.When(d.FacilityID == "", validation.Empty.Error("requires a facility"))),
		validation.Field(&d.DeviceID, validation.When(d.SystemID == "", validation.Empty.Error("requires a system"))),
		validation.Field(&d.Metrics, validation.When(d.DeviceID == "", validation.Empty.Error("requires a device"))),
	)
}

func (d DataSourceSettings) isZero() bool {
	return d.FacilityID == "" && d.SystemID == "" && d.DeviceID == "" && len(d.Metrics) == 0
}

// TimeRangeSettings is the custom range group of the time section.
type TimeRangeSettings struct {
	From          time.Time `json:"from,omitzero"`
	To            time.Time `json:"to,omitzero"`
	RelativeRange string    `json:"relativeRange"`
}

func (r TimeRangeSettings) isZero() bool {
	return r.From.IsZero() && r.To.IsZero() && r.RelativeRange == ""
}

// TimeSettings chooses between the dashboard time and a custom range.
type TimeSettings struct {
	UseGlobalTime   bool              `json:"useGlobalTime"`
	CustomTimeRange TimeRangeSettings `json:"customTimeRange"`
	RefreshInterval int               `json:"refreshInterval"`
}

// CustomRangeEnabled reports whether the custom range fields are editable.
func (t TimeSettings) CustomRangeEnabled() bool {
	return !t.UseGlobalTime
}

// Validate checks the refresh interval and, when enabled, the custom range.
func (t TimeSettings) Validate() error {
	r := t.CustomTimeRange
	return validation.Errors{
		"refreshInterval": validation.Validate(t.RefreshInterval, validation.Min(0)),
		"relativeRange": validation.Validate(r.RelativeRange,
			validation.When(t.CustomRangeEnabled(), validation.In(anySlice(RelativeRanges())...))),
		"to": validation.Validate(r.To, validation.When(
			t.CustomRangeEnabled() && !r.From.IsZero() && !r.To.IsZero(),
			validation.By(func(any) error {
				if !r.To.After(r.From) {
					return errors.New("must be after from")
				}
				return nil
			}),
		)),
	}.Filter()
}

// VisualizationSettings holds the chart fields; which ones apply depends on the
// widget type (see ActiveFields).
type VisualizationSettings struct {
	Scheme         *ColorScheme `json:"scheme,omitempty"`
	SchemeType     string       `json:"schemeType"`
	Animations     bool         `json:"animations"`
	Legend         bool         `json:"legend"`
	ShowXAxisLabel bool         `json:"showXAxisLabel"`
	ShowYAxisLabel bool         `json:"showYAxisLabel"`
	XAxisLabel     string       `json:"xAxisLabel"`
	YAxisLabel     string       `json:"yAxisLabel"`
	ShowGridLines  bool         `json:"showGridLines"`
	Gradient       bool         `json:"gradient"`
	RoundDomains   bool         `json:"roundDomains"`

	Curve     string `json:"curve"`
	AutoScale bool   `json:"autoScale"`

	BarPadding    float64 `json:"barPadding"`
	GroupPadding  float64 `json:"groupPadding"`
	ShowDataLabel bool    `json:"showDataLabel"`

	Doughnut      bool `json:"doughnut"`
	ExplodeSlices bool `json:"explodeSlices"`
	Labels        bool `json:"labels"`

	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Units      string  `json:"units"`
	AngleSpan  float64 `json:"angleSpan"`
	StartAngle float64 `json:"startAngle"`
}

// SchemeName is the palette name shown in the scheme picker.
func (v VisualizationSettings) SchemeName() string {
	return v.Scheme.Label()
}

// CardSettings holds the metric card fields.
type CardSettings struct {
	Icon      string `json:"icon"`
	Color     string `json:"color"`
	TextColor string `json:"textColor"`
	Decimals  int    `json:"decimals"`
	Units     string `json:"units"`
}

var baseVisualizationFields = []string{
	"scheme", "schemeType", "animations", "legend", "showXAxisLabel", "showYAxisLabel",
	"xAxisLabel", "yAxisLabel", "showGridLines", "gradient", "roundDomains",
}

var typeVisualizationFields = map[WidgetType][]string{
	WidgetLineChart: {"curve", "autoScale"},
	WidgetBarChart:  {"barPadding", "groupPadding", "showDataLabel"},
	WidgetPieChart:  {"doughnut", "explodeSlices", "labels"},
	WidgetGauge:     {"min", "max", "units", "angleSpan", "startAngle"},
	WidgetCard:      {"icon", "color", "textColor", "decimals", "units"},
}

// ActiveFields lists the visualization fields the editor shows for t.
func ActiveFields(t WidgetType) []string {
	if t == WidgetCard {
		return append([]string(nil), typeVisualizationFields[t]...)
	}
	out := append([]string(nil), baseVisualizationFields...)
	return append(out, typeVisualizationFields[t]...)
}

// NewWidgetForm returns a blank form with the editor defaults.
func NewWidgetForm(t WidgetType) WidgetForm {
	card := DefaultWidgetConfig(WidgetCard).(*CardConfig)
	return WidgetForm{
		Type:    t,
		General: GeneralSettings{Cols: defaultWidgetCols, Rows: defaultWidgetRows},
		DataSource: DataSourceSettings{
			Metrics: []string{},
		},
		TimeSettings: TimeSettings{UseGlobalTime: true},
		Visualization: VisualizationSettings{
			Scheme:         NamedScheme("vivid"),
			SchemeType:     "ordinal",
			Animations:     true,
			Legend:         true,
			ShowXAxisLabel: true,
			ShowYAxisLabel: true,
			ShowGridLines:  true,
			Curve:          "linear",
			AutoScale:      true,
			BarPadding:     8,
			GroupPadding:   16,
			Labels:         true,
			Min:            0,
			Max:            100,
			AngleSpan:      240,
			StartAngle:     -120,
		},
		Card: CardSettings{
			Icon:      card.Icon,
			Color:     card.Color,
			TextColor: card.TextColor,
			Decimals:  card.Decimals,
			Units:     card.Units,
		},
	}
}

// FormFromWidget populates a form from w.
func FormFromWidget(w Widget) WidgetForm {
	f := NewWidgetForm(w.Type)
	f.Title = w.Title
	f.General = GeneralSettings{X: w.X, Y: w.Y, Cols: w.Cols, Rows: w.Rows}

	if ds := w.DataSource; ds != nil {
		f.DataSource = DataSourceSettings{
			FacilityID: ds.EntityMapping.Facility,
			SystemID:   ds.EntityMapping.System,
			DeviceID:   ds.EntityMapping.Device,
			Metrics:    cloneStrings(ds.Metrics),
		}
	}

	if tc := w.TimeContext; tc != nil {
		f.TimeSettings.UseGlobalTime = tc.UseGlobalTime
		f.TimeSettings.RefreshInterval = tc.RefreshInterval
		if tc.TimeRange != nil {
			f.TimeSettings.CustomTimeRange = TimeRangeSettings{
				From:          tc.TimeRange.From,
				To:            tc.TimeRange.To,
				RelativeRange: tc.TimeRange.RelativeRange,
			}
		}
	}

	cfg := effectiveConfig(w)
	if base := ChartBase(cfg); base != nil {
		v := &f.Visualization
		v.Scheme = base.Scheme.clone()
		v.SchemeType = base.SchemeType
		v.Animations = base.Animations
		v.Legend = base.Legend
		v.ShowXAxisLabel = base.ShowXAxisLabel
		v.ShowYAxisLabel = base.ShowYAxisLabel
		v.XAxisLabel = base.XAxisLabel
		v.YAxisLabel = base.YAxisLabel
		v.ShowGridLines = base.ShowGridLines
		v.Gradient = base.Gradient
		v.RoundDomains = base.RoundDomains
	}
	switch c := cfg.(type) {
	case *LineChartConfig:
		f.Visualization.Curve = c.Curve
		f.Visualization.AutoScale = c.AutoScale
	case *BarChartConfig:
		f.Visualization.BarPadding = c.BarPadding
		f.Visualization.GroupPadding = c.GroupPadding
		f.Visualization.ShowDataLabel = c.ShowDataLabel
	case *PieChartConfig:
		f.Visualization.Doughnut = c.Doughnut
		f.Visualization.ExplodeSlices = c.ExplodeSlices
		f.Visualization.Labels = c.Labels
	case *GaugeConfig:
		f.Visualization.Min = c.Min
		f.Visualization.Max = c.Max
		f.Visualization.Units = c.Units
		f.Visualization.AngleSpan = c.AngleSpan
		f.Visualization.StartAngle = c.StartAngle
	case *CardConfig:
		f.Card = CardSettings{
			Icon:      c.Icon,
			Color:     c.Color,
			TextColor: c.TextColor,
			Decimals:  c.Decimals,
			Units:     c.Units,
		}
	}
	return f
}

// Validate runs the field rules of every section relevant to the widget type.
func (f WidgetForm) Validate() error {
	return validation.Errors{
		"type":          validation.Validate(string(f.Type), validation.Required, validation.In(anySlice(widgetTypeNames())...)),
		"title":         validation.Validate(f.Title, validation.Required),
		"general":       f.General.Validate(),
		"dataSource":    f.DataSource.Validate(),
		"timeSettings":  f.TimeSettings.Validate(),
		"visualization": f.validateVisualization(),
		"card":          f.validateCard(),
	}.Filter()
}

func (f WidgetForm) validateVisualization() error {
	if f.Type == WidgetCard {
		return nil
	}
	v := f.Visualization
	line := f.Type == WidgetLineChart
	bar := f.Type == WidgetBarChart
	gauge := f.Type == WidgetGauge
	return validation.Errors{
		"scheme":       validation.Validate(v.SchemeName(), validation.When(v.Scheme != nil && len(v.Scheme.Domain) == 0, validation.In(anySlice(ColorSchemes())...))),
		"schemeType":   validation.Validate(v.SchemeType, validation.In("ordinal", "linear")),
		"curve":        validation.Validate(v.Curve, validation.When(line, validation.Required, validation.In(anySlice(CurveTypes())...))),
		"barPadding":   validation.Validate(v.BarPadding, validation.When(bar, validation.Min(0.0))),
		"groupPadding": validation.Validate(v.GroupPadding, validation.When(bar, validation.Min(0.0))),
		"max": validation.Validate(v.Max, validation.When(gauge, validation.By(func(any) error {
			if v.Max <= v.Min {
				return errors.New("must be greater than min")
			}
			return nil
		}))),
		"angleSpan":  validation.Validate(v.AngleSpan, validation.When(gauge, validation.Min(0.0).Exclusive(), validation.Max(360.0))),
		"startAngle": validation.Validate(v.StartAngle, validation.When(gauge, validation.Min(-360.0), validation.Max(360.0))),
	}.Filter()
}

func (f WidgetForm) validateCard() error {
	if f.Type != WidgetCard {
		return nil
	}
	c := f.Card
	return validation.Errors{
		"decimals": validation.Validate(c.Decimals, validation.Min(0), validation.Max(10)),
	}.Filter()
}

// ApplyTo folds the form into a copy of prior. Base chart fields are always
// rewritten, the block of the widget type is applied on top, and every field
// the form does not edit is carried over unchanged.
func (f WidgetForm) ApplyTo(prior Widget) (Widget, error) {
	if f.Type == "" {
		f.Type = prior.Type
	}
	if f.Type != prior.Type {
		return Widget{}, errors.New("dashboard: form type does not match widget type")
	}
	if err := f.Validate(); err != nil {
		return Widget{}, err
	}
	out := prior.Clone()
	out.Title = f.Title
	out.X, out.Y = f.General.X, f.General.Y
	out.Cols, out.Rows = f.General.Cols, f.General.Rows

	if out.DataSource != nil || !f.DataSource.isZero() {
		if out.DataSource == nil {
			out.DataSource = &DataSource{Type: DataSourceTelemetry, Metrics: []string{}}
		}
		out.DataSource.EntityMapping.Facility = f.DataSource.FacilityID
		out.DataSource.EntityMapping.System = f.DataSource.SystemID
		out.DataSource.EntityMapping.Device = f.DataSource.DeviceID
		out.DataSource.Metrics = cloneStrings(f.DataSource.Metrics)
		if out.DataSource.Metrics == nil && prior.DataSource == nil {
			out.DataSource.Metrics = []string{}
		}
	}

	ts := f.TimeSettings
	if out.TimeContext != nil || !ts.UseGlobalTime || ts.RefreshInterval != 0 {
		if out.TimeContext == nil {
			out.TimeContext = &TimeContext{}
		}
		out.TimeContext.UseGlobalTime = ts.UseGlobalTime
		out.TimeContext.RefreshInterval = ts.RefreshInterval
		out.TimeContext.TimeRange = nil
		if !ts.UseGlobalTime && !ts.CustomTimeRange.isZero() {
			out.TimeContext.TimeRange = &TimeRange{
				From:          ts.CustomTimeRange.From,
				To:            ts.CustomTimeRange.To,
				RelativeRange: ts.CustomTimeRange.RelativeRange,
			}
		}
	}

	cfg := effectiveConfig(prior).clone()
	f.Visualization.applyBase(ChartBase(cfg))
	v := f.Visualization
	switch c := cfg.(type) {
	case *LineChartConfig:
		c.Curve = v.Curve
		c.AutoScale = v.AutoScale
	case *BarChartConfig:
		c.BarPadding = v.BarPadding
		c.GroupPadding = v.GroupPadding
		c.ShowDataLabel = v.ShowDataLabel
	case *PieChartConfig:
		c.Doughnut = v.Doughnut
		c.ExplodeSlices = v.ExplodeSlices
		c.Labels = v.Labels
	case *GaugeConfig:
		c.Min = v.Min
		c.Max = v.Max
		c.Units = v.Units
		c.AngleSpan = v.AngleSpan
		c.StartAngle = v.StartAngle
	case *CardConfig:
		c.Icon = f.Card.Icon
		c.Color = f.Card.Color
		c.TextColor = f.Card.TextColor
		c.Decimals = f.Card.Decimals
		c.Units = f.Card.Units
	}
	out.Config = cfg
	return out, nil
}

func (v VisualizationSettings) applyBase(base *ChartConfig) {
	if base == nil {
		return
	}
	base.Scheme = v.Scheme.clone()
	base.SchemeType = v.SchemeType
	base.Animations = v.Animations
	base.Legend = v.Legend
	base.ShowXAxisLabel = v.ShowXAxisLabel
	base.ShowYAxisLabel = v.ShowYAxisLabel
	base.XAxisLabel = v.XAxisLabel
	base.YAxisLabel = v.YAxisLabel
	base.ShowGridLines = v.ShowGridLines
	base.Gradient = v.Gradient
	base.RoundDomains = v.RoundDomains
}

func widgetTypeNames() []string {
	out := make([]string, len(widgetTypes))
	for i, t := range widgetTypes {
		out[i] = string(t)
	}
	return out
}

func anySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
