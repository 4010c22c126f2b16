package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// WidgetConfig is the visualization configuration of a widget. Each widget type
// has exactly one concrete variant.
type WidgetConfig interface {
	WidgetType() WidgetType
	clone() WidgetConfig
}

// ColorScheme is either a named palette or an explicit colour domain.
type ColorScheme struct {
	Name       string   `json:"name,omitempty"`
	Selectable bool     `json:"selectable,omitempty"`
	Group      string   `json:"group,omitempty"`
	Domain     []string `json:"domain,omitempty"`
}

// NamedScheme references a palette by name only.
func NamedScheme(name string) *ColorScheme {
	return &ColorScheme{Name: name}
}

// Label returns the scheme name shown in pickers.
func (c *ColorScheme) Label() string {
	if c == nil {
		return ""
	}
	return c.Name
}

func (c *ColorScheme) clone() *ColorScheme {
	if c == nil {
		return nil
	}
	out := *c
	out.Domain = cloneStrings(c.Domain)
	return &out
}

type colorSchemeObject ColorScheme

// MarshalJSON writes a bare string for name-only schemes.
func (c ColorScheme) MarshalJSON() ([]byte, error) {
	if len(c.Domain) == 0 && c.Group == "" && !c.Selectable {
		return json.Marshal(c.Name)
	}
	return json.Marshal(colorSchemeObject(c))
}

// UnmarshalJSON accepts either a scheme name or a scheme object.
func (c *ColorScheme) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*c = ColorScheme{Name: name}
		return nil
	}
	var obj colorSchemeObject
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	*c = ColorScheme(obj)
	return nil
}

// ChartConfig holds the options shared by every chart widget.
type ChartConfig struct {
	Scheme          *ColorScheme `json:"scheme,omitempty"`
	SchemeType      string       `json:"schemeType,omitempty"`
	Animations      bool         `json:"animations"`
	Legend          bool         `json:"legend"`
	LegendTitle     string       `json:"legendTitle,omitempty"`
	LegendPosition  string       `json:"legendPosition,omitempty"`
	XAxis           bool         `json:"xAxis"`
	YAxis           bool         `json:"yAxis"`
	ShowXAxisLabel  bool         `json:"showXAxisLabel"`
	ShowYAxisLabel  bool         `json:"showYAxisLabel"`
	XAxisLabel      string       `json:"xAxisLabel"`
	YAxisLabel      string       `json:"yAxisLabel"`
	ShowGridLines   bool         `json:"showGridLines"`
	Gradient        bool         `json:"gradient"`
	RoundDomains    bool         `json:"roundDomains"`
	TooltipDisabled bool         `json:"tooltipDisabled,omitempty"`
}

func (c ChartConfig) cloneBase() ChartConfig {
	c.Scheme = c.Scheme.clone()
	return c
}

// Colors resolves the palette to hex colours, falling back to the default domain.
func (c ChartConfig) Colors() []string {
	if c.Scheme != nil {
		if len(c.Scheme.Domain) > 0 {
			return cloneStrings(c.Scheme.Domain)
		}
		if domain, ok := namedSchemes[c.Scheme.Name]; ok {
			return cloneStrings(domain)
		}
	}
	return cloneStrings(defaultColorDomain)
}

// chartVariant is implemented by every config embedding ChartConfig.
type chartVariant interface {
	WidgetConfig
	Base() *ChartConfig
}

// LineChartConfig configures line charts.
type LineChartConfig struct {
	ChartConfig
	Curve            string  `json:"curve"`
	AutoScale        bool    `json:"autoScale"`
	Timeline         bool    `json:"timeline"`
	RangeFillOpacity float64 `json:"rangeFillOpacity,omitempty"`
}

func (*LineChartConfig) WidgetType() WidgetType { return WidgetLineChart }

func (c *LineChartConfig) Base() *ChartConfig { return &c.ChartConfig }

func (c *LineChartConfig) clone() WidgetConfig {
	out := *c
	out.ChartConfig = c.cloneBase()
	return &out
}

// BarChartConfig configures bar charts.
type BarChartConfig struct {
	ChartConfig
	BarPadding    float64 `json:"barPadding"`
	GroupPadding  float64 `json:"groupPadding"`
	ShowDataLabel bool    `json:"showDataLabel"`
	NoBarWhenZero bool    `json:"noBarWhenZero"`
}

func (*BarChartConfig) WidgetType() WidgetType { return WidgetBarChart }

func (c *BarChartConfig) Base() *ChartConfig { return &c.ChartConfig }

func (c *BarChartConfig) clone() WidgetConfig {
	out := *c
	out.ChartConfig = c.cloneBase()
	return &out
}

// PieChartConfig configures pie charts.
type PieChartConfig struct {
	ChartConfig
	Doughnut      bool    `json:"doughnut"`
	ArcWidth      float64 `json:"arcWidth,omitempty"`
	ExplodeSlices bool    `json:"explodeSlices"`
	Labels        bool    `json:"labels"`
}

func (*PieChartConfig) WidgetType() WidgetType { return WidgetPieChart }

func (c *PieChartConfig) Base() *ChartConfig { return &c.ChartConfig }

func (c *PieChartConfig) clone() WidgetConfig {
	out := *c
	out.ChartConfig = c.cloneBase()
	return &out
}

// GaugeConfig configures gauges.
type GaugeConfig struct {
	ChartConfig
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Units         string  `json:"units"`
	AngleSpan     float64 `json:"angleSpan"`
	StartAngle    float64 `json:"startAngle"`
	ShowAxis      bool    `json:"showAxis"`
	BigSegments   int     `json:"bigSegments"`
	SmallSegments int     `json:"smallSegments"`
}

func (*GaugeConfig) WidgetType() WidgetType { return WidgetGauge }

func (c *GaugeConfig) Base() *ChartConfig { return &c.ChartConfig }

func (c *GaugeConfig) clone() WidgetConfig {
	out := *c
	out.ChartConfig = c.cloneBase()
	return &out
}

// CardConfig configures metric cards.
type CardConfig struct {
	Icon      string `json:"icon"`
	Color     string `json:"color"`
	TextColor string `json:"textColor"`
	Decimals  int    `json:"decimals"`
	Units     string `json:"units"`
}

func (*CardConfig) WidgetType() WidgetType { return WidgetCard }

func (c *CardConfig) clone() WidgetConfig {
	out := *c
	return &out
}

// DecodeWidgetConfig decodes raw JSON into the variant for t. Fields missing from
// raw keep the renderer defaults of DecodedDefaults.
func DecodeWidgetConfig(t WidgetType, raw json.RawMessage) (WidgetConfig, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWidgetType, t)
	}
	cfg := DecodedDefaults(t)
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return cfg, nil
	}
	if err := json.Unmarshal(trimmed, cfg); err != nil {
		return nil, fmt.Errorf("dashboard: decode %s config: %w", t, err)
	}
	return cfg, nil
}

// ChartBase returns the shared chart options of cfg, or nil for cards.
func ChartBase(cfg WidgetConfig) *ChartConfig {
	if v, ok := cfg.(chartVariant); ok {
		return v.Base()
	}
	return nil
}
