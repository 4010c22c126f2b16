package dashboard

import "github.com/google/uuid"

var defaultColorDomain = []string{"#5AA454", "#A10A28", "#C7B42C", "#AAAAAA"}

var namedSchemes = map[string][]string{
	"vivid":   {"#647c8a", "#3f51b5", "#2196f3", "#00b862", "#afdf0a", "#a7b61a", "#f3e562", "#ff9800", "#ff5722", "#ff4514"},
	"natural": {"#bf9d76", "#e99450", "#d89f59", "#f2dfa7", "#a5d7c6", "#7794b1", "#afafaf", "#707160", "#ba9383", "#d9d5c3"},
	"cool":    {"#a8385d", "#7aa3e5", "#a27ea8", "#aae3f5", "#adcded", "#a95963", "#8796c0", "#7ed3ed", "#50abcc", "#ad6886"},
	"fire":    {"#ff3d00", "#bf360c", "#ff8f00", "#ff6f00", "#ff5722", "#e65100", "#ffca28", "#ffab00"},
	"solar":   {"#fff8e1", "#ffecb3", "#ffe082", "#ffd54f", "#ffca28", "#ffc107", "#ffb300", "#ffa000", "#ff8f00", "#ff6f00"},
	"air":     {"#e1f5fe", "#b3e5fc", "#81d4fa", "#4fc3f7", "#29b6f6", "#03a9f4", "#039be5", "#0288d1", "#0277bd", "#01579b"},
	"aqua":    {"#e0f7fa", "#b2ebf2", "#80deea", "#4dd0e1", "#26c6da", "#00bcd4", "#00acc1", "#0097a7", "#00838f", "#006064"},
}

// ColorSchemes lists the named palettes offered by the property form.
func ColorSchemes() []string {
	return []string{"vivid", "natural", "cool", "fire", "solar", "air", "aqua"}
}

// CurveTypes lists the interpolation modes offered for line charts.
func CurveTypes() []string {
	return []string{"linear", "monotoneX", "monotoneY", "step", "stepAfter", "stepBefore", "basis", "cardinal", "catmullRom"}
}

var defaultTitles = map[WidgetType]string{
	WidgetLineChart: "Line Chart",
	WidgetBarChart:  "Bar Chart",
	WidgetPieChart:  "Pie Chart",
	WidgetGauge:     "Gauge",
	WidgetCard:      "Card",
}

// DefaultWidgetTitle is the title given to freshly created widgets.
func DefaultWidgetTitle(t WidgetType) string {
	if title, ok := defaultTitles[t]; ok {
		return title
	}
	return "New Widget"
}

const (
	defaultWidgetCols = 6
	defaultWidgetRows = 6
)

// IDGenerator produces unique identifiers for dashboards and widgets.
type IDGenerator func() string

func uuidGenerator() string { return uuid.NewString() }

// NewWidget builds a widget of type t with creation defaults, placed at the origin.
func NewWidget(t WidgetType, ids IDGenerator) (Widget, error) {
	if !t.Valid() {
		return Widget{}, ErrUnknownWidgetType
	}
	if ids == nil {
		ids = uuidGenerator
	}
	return Widget{
		ID:    ids(),
		Type:  t,
		Title: DefaultWidgetTitle(t),
		X:     0,
		Y:     0,
		Cols:  defaultWidgetCols,
		Rows:  defaultWidgetRows,
		DataSource: &DataSource{
			Type:          DataSourceTelemetry,
			EntityMapping: EntityMapping{},
			Metrics:       []string{},
		},
		TimeContext: &TimeContext{UseGlobalTime: true},
		Config:      DefaultWidgetConfig(t),
	}, nil
}

func creationChartBase() ChartConfig {
	return ChartConfig{
		Scheme:         &ColorScheme{Domain: cloneStrings(defaultColorDomain)},
		Animations:     true,
		Legend:         true,
		XAxis:          true,
		YAxis:          true,
		ShowXAxisLabel: true,
		ShowYAxisLabel: true,
		XAxisLabel:     "Time",
		YAxisLabel:     "Value",
		ShowGridLines:  true,
		Gradient:       false,
	}
}

// DefaultWidgetConfig returns the config assigned to newly created widgets.
func DefaultWidgetConfig(t WidgetType) WidgetConfig {
	switch t {
	case WidgetLineChart:
		return &LineChartConfig{
			ChartConfig: creationChartBase(),
			Curve:       "linear",
			AutoScale:   true,
			Timeline:    false,
		}
	case WidgetBarChart:
		return &BarChartConfig{
			ChartConfig:   creationChartBase(),
			BarPadding:    8,
			GroupPadding:  16,
			ShowDataLabel: false,
			NoBarWhenZero: true,
		}
	case WidgetPieChart:
		return &PieChartConfig{
			ChartConfig:   creationChartBase(),
			Doughnut:      false,
			ExplodeSlices: false,
			Labels:        true,
		}
	case WidgetGauge:
		return &GaugeConfig{
			ChartConfig:   creationChartBase(),
			Min:           0,
			Max:           100,
			Units:         "%",
			AngleSpan:     240,
			StartAngle:    -120,
			ShowAxis:      true,
			BigSegments:   10,
			SmallSegments: 5,
		}
	case WidgetCard:
		return &CardConfig{
			Icon:      "insert_chart",
			Color:     "#5AA454",
			TextColor: "#ffffff",
			Decimals:  1,
			Units:     "",
		}
	}
	return nil
}

func renderChartBase(xLabel string) ChartConfig {
	return ChartConfig{
		Animations:     true,
		Legend:         true,
		XAxis:          true,
		YAxis:          true,
		ShowXAxisLabel: true,
		ShowYAxisLabel: true,
		XAxisLabel:     xLabel,
		YAxisLabel:     "Value",
		ShowGridLines:  true,
	}
}

// DecodedDefaults returns the values renderers assume when a stored config
// omits a field.
func DecodedDefaults(t WidgetType) WidgetConfig {
	switch t {
	case WidgetLineChart:
		return &LineChartConfig{ChartConfig: renderChartBase("Time"), Curve: "linear", AutoScale: true}
	case WidgetBarChart:
		return &BarChartConfig{ChartConfig: renderChartBase("Category"), BarPadding: 8, GroupPadding: 16, NoBarWhenZero: true}
	case WidgetPieChart:
		return &PieChartConfig{ChartConfig: renderChartBase(""), Labels: true}
	case WidgetGauge:
		return &GaugeConfig{
			ChartConfig:   renderChartBase(""),
			Max:           100,
			AngleSpan:     240,
			StartAngle:    -120,
			ShowAxis:      true,
			BigSegments:   10,
			SmallSegments: 5,
		}
	case WidgetCard:
		return &CardConfig{Icon: "assessment", Color: "#5AA454", TextColor: "#ffffff", Decimals: 1}
	}
	return nil
}

// GridConfig carries the options handed to the client-side grid engine.
type GridConfig struct {
	GridType         string         `json:"gridType"`
	CompactType      string         `json:"compactType"`
	Margin           int            `json:"margin"`
	OuterMargin      bool           `json:"outerMargin"`
	MobileBreakpoint int            `json:"mobileBreakpoint"`
	MinCols          int            `json:"minCols"`
	MaxCols          int            `json:"maxCols"`
	MinRows          int            `json:"minRows"`
	MaxRows          int            `json:"maxRows"`
	MaxItemCols      int            `json:"maxItemCols"`
	MinItemCols      int            `json:"minItemCols"`
	MaxItemRows      int            `json:"maxItemRows"`
	MinItemRows      int            `json:"minItemRows"`
	MaxItemArea      int            `json:"maxItemArea"`
	MinItemArea      int            `json:"minItemArea"`
	DefaultItemCols  int            `json:"defaultItemCols"`
	DefaultItemRows  int            `json:"defaultItemRows"`
	FixedColWidth    int            `json:"fixedColWidth"`
	FixedRowHeight   int            `json:"fixedRowHeight"`
	Draggable        DraggableGrid  `json:"draggable"`
	Resizable        ResizableGrid  `json:"resizable"`
	Swap             bool           `json:"swap"`
	PushItems        bool           `json:"pushItems"`
	DisplayGrid      string         `json:"displayGrid"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// DraggableGrid toggles item dragging.
type DraggableGrid struct {
	Enabled         bool   `json:"enabled"`
	DragHandleClass string `json:"dragHandleClass,omitempty"`
}

// ResizableGrid toggles item resizing.
type ResizableGrid struct {
	Enabled bool `json:"enabled"`
}

// DefaultGridConfig mirrors the grid options of a new dashboard.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		GridType:         "fit",
		CompactType:      "compactUp",
		Margin:           10,
		OuterMargin:      true,
		MobileBreakpoint: 640,
		MinCols:          24,
		MaxCols:          24,
		MinRows:          24,
		MaxRows:          100,
		MaxItemCols:      24,
		MinItemCols:      1,
		MaxItemRows:      100,
		MinItemRows:      1,
		MaxItemArea:      2500,
		MinItemArea:      1,
		DefaultItemCols:  defaultWidgetCols,
		DefaultItemRows:  defaultWidgetRows,
		FixedColWidth:    105,
		FixedRowHeight:   105,
		Draggable:        DraggableGrid{Enabled: true, DragHandleClass: "drag-handle"},
		Resizable:        ResizableGrid{Enabled: true},
		Swap:             false,
		PushItems:        true,
		DisplayGrid:      "always",
	}
}
