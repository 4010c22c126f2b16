package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ettle/strcase"
)

// WidgetType discriminates the widget kinds the designer can place.
type WidgetType string

const (
	WidgetLineChart WidgetType = "lineChart"
	WidgetBarChart  WidgetType = "barChart"
	WidgetPieChart  WidgetType = "pieChart"
	WidgetGauge     WidgetType = "gauge"
	WidgetCard      WidgetType = "card"
)

var widgetTypes = []WidgetType{WidgetLineChart, WidgetBarChart, WidgetPieChart, WidgetGauge, WidgetCard}

var (
	// ErrUnknownWidgetType is returned when a widget type is not one of the supported kinds.
	ErrUnknownWidgetType = errors.New("dashboard: unknown widget type")
	// ErrDashboardNotFound is returned when a dashboard id has no stored entry.
	ErrDashboardNotFound = errors.New("dashboard: dashboard not found")
	// ErrWidgetNotFound is returned when a widget id is not part of the current dashboard.
	ErrWidgetNotFound = errors.New("dashboard: widget not found")
	// ErrDuplicateWidgetID is returned when two widgets of a dashboard share an id.
	ErrDuplicateWidgetID = errors.New("dashboard: duplicate widget id")
	// ErrInvalidWidgetConfig is returned when a widget config fails schema or range checks.
	ErrInvalidWidgetConfig = errors.New("dashboard: invalid widget config")
)

// WidgetTypes lists every supported widget type in palette order.
func WidgetTypes() []WidgetType {
	return append([]WidgetType(nil), widgetTypes...)
}

// Valid reports whether t is a supported widget type.
func (t WidgetType) Valid() bool {
	for _, candidate := range widgetTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWidgetType accepts the canonical names plus loose spellings such as
// "line-chart" or "BAR_CHART".
func ParseWidgetType(raw string) (WidgetType, error) {
	trimmed := strings.TrimSpace(raw)
	if t := WidgetType(trimmed); t.Valid() {
		return t, nil
	}
	if t := WidgetType(strcase.ToCamel(trimmed)); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWidgetType, raw)
}

// DataSourceType describes where widget data comes from.
type DataSourceType string

const (
	DataSourceTelemetry DataSourceType = "telemetry"
	DataSourceStatic    DataSourceType = "static"
)

// EntityMapping is the facility -> system -> device selection of a data source.
type EntityMapping struct {
	Facility       string `json:"facility,omitempty"`
	System         string `json:"system,omitempty"`
	Device         string `json:"device,omitempty"`
	AbstractEntity string `json:"abstractEntity,omitempty"`
	ConcreteEntity string `json:"concreteEntity,omitempty"`
}

// DataSource binds a widget to telemetry metrics.
type DataSource struct {
	Type          DataSourceType `json:"type"`
	EntityMapping EntityMapping  `json:"entityMapping"`
	Metrics       []string       `json:"metrics"`
}

// Complete reports whether the data source names a device and at least one metric.
func (ds *DataSource) Complete() bool {
	return ds != nil && ds.EntityMapping.Device != "" && len(ds.Metrics) > 0
}

func (ds *DataSource) clone() *DataSource {
	if ds == nil {
		return nil
	}
	out := *ds
	out.Metrics = cloneStrings(ds.Metrics)
	return &out
}

// TimeMode is the dashboard-wide playback mode.
type TimeMode string

const (
	TimeModeHistorical TimeMode = "historical"
	TimeModeRealtime   TimeMode = "realtime"
	TimeModePaused     TimeMode = "paused"
)

// TimeRange is an absolute window, optionally tagged with the relative preset
// it was derived from.
type TimeRange struct {
	From          time.Time `json:"from,omitzero"`
	To            time.Time `json:"to,omitzero"`
	RelativeRange string    `json:"relativeRange,omitempty"`
}

var relativeRanges = map[string]time.Duration{
	"last1h":   time.Hour,
	"last6h":   6 * time.Hour,
	"last24h":  24 * time.Hour,
	"lastWeek": 7 * 24 * time.Hour,
	"last7d":   7 * 24 * time.Hour,
	"last30d":  30 * 24 * time.Hour,
}

// RelativeRanges lists the supported relative presets.
func RelativeRanges() []string {
	return []string{"last1h", "last6h", "last24h", "last7d", "last30d", "lastWeek"}
}

// Resolve returns the concrete window. Known relative presets are anchored at now,
// otherwise the absolute bounds are returned as stored.
func (r TimeRange) Resolve(now time.Time) (time.Time, time.Time) {
	if d, ok := relativeRanges[r.RelativeRange]; ok {
		return now.Add(-d), now
	}
	return r.From, r.To
}

// IsZero reports whether the range carries neither bounds nor a preset.
func (r TimeRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero() && r.RelativeRange == ""
}

// TimeContext is either a widget override or the dashboard-wide default.
// TimeRange is only consulted on widgets when UseGlobalTime is false.
type TimeContext struct {
	UseGlobalTime   bool       `json:"useGlobalTime"`
	TimeRange       *TimeRange `json:"timeRange,omitempty"`
	RefreshInterval int        `json:"refreshInterval,omitempty"`
	Mode            TimeMode   `json:"mode,omitempty"`
}

func (tc *TimeContext) clone() *TimeContext {
	if tc == nil {
		return nil
	}
	out := *tc
	if tc.TimeRange != nil {
		r := *tc.TimeRange
		out.TimeRange = &r
	}
	return &out
}

// Widget is one element placed on the dashboard grid.
type Widget struct {
	ID          string       `json:"id"`
	Type        WidgetType   `json:"type"`
	Title       string       `json:"title"`
	X           int          `json:"x"`
	Y           int          `json:"y"`
	Cols        int          `json:"cols"`
	Rows        int          `json:"rows"`
	DataSource  *DataSource  `json:"dataSource,omitempty"`
	TimeContext *TimeContext `json:"timeContext,omitempty"`
	Config      WidgetConfig `json:"config"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (w Widget) Clone() Widget {
	out := w
	out.DataSource = w.DataSource.clone()
	out.TimeContext = w.TimeContext.clone()
	if w.Config != nil {
		out.Config = w.Config.clone()
	}
	return out
}

type widgetJSON struct {
	ID          string          `json:"id"`
	Type        WidgetType      `json:"type"`
	Title       string          `json:"title"`
	X           int             `json:"x"`
	Y           int             `json:"y"`
	Cols        int             `json:"cols"`
	Rows        int             `json:"rows"`
	DataSource  *DataSource     `json:"dataSource,omitempty"`
	TimeContext *TimeContext    `json:"timeContext,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// MarshalJSON writes the config flat under "config".
func (w Widget) MarshalJSON() ([]byte, error) {
	payload := widgetJSON{
		ID:          w.ID,
		Type:        w.Type,
		Title:       w.Title,
		X:           w.X,
		Y:           w.Y,
		Cols:        w.Cols,
		Rows:        w.Rows,
		DataSource:  w.DataSource,
		TimeContext: w.TimeContext,
	}
	cfg := w.Config
	if cfg == nil && w.Type.Valid() {
		cfg = DecodedDefaults(w.Type)
	}
	if cfg != nil {
		raw, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("dashboard: marshal config for widget %s: %w", w.ID, err)
		}
		payload.Config = raw
	}
	return json.Marshal(payload)
}

// UnmarshalJSON decodes the config variant selected by the widget type.
func (w *Widget) UnmarshalJSON(data []byte) error {
	var payload widgetJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	cfg, err := DecodeWidgetConfig(payload.Type, payload.Config)
	if err != nil {
		return err
	}
	*w = Widget{
		ID:          payload.ID,
		Type:        payload.Type,
		Title:       payload.Title,
		X:           payload.X,
		Y:           payload.Y,
		Cols:        payload.Cols,
		Rows:        payload.Rows,
		DataSource:  payload.DataSource,
		TimeContext: payload.TimeContext,
		Config:      cfg,
	}
	return nil
}

// Dashboard is a named collection of widgets plus grid and time configuration.
type Dashboard struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Widgets     []Widget     `json:"widgets"`
	GridConfig  GridConfig   `json:"gridConfig"`
	TimeContext *TimeContext `json:"timeContext,omitempty"`
}

// NewDashboard returns the empty in-memory dashboard the designer starts with.
func NewDashboard() Dashboard {
	return Dashboard{
		Name:       "New Dashboard",
		Widgets:    []Widget{},
		GridConfig: DefaultGridConfig(),
	}
}

// Clone deep copies the dashboard.
func (d Dashboard) Clone() Dashboard {
	out := d
	out.Widgets = make([]Widget, len(d.Widgets))
	for i, w := range d.Widgets {
		out.Widgets[i] = w.Clone()
	}
	out.TimeContext = d.TimeContext.clone()
	return out
}

// Widget returns the widget with the given id and its index.
func (d Dashboard) Widget(id string) (Widget, int, bool) {
	for i, w := range d.Widgets {
		if w.ID == id {
			return w, i, true
		}
	}
	return Widget{}, -1, false
}

// Validate checks dashboard-level invariants.
func (d Dashboard) Validate() error {
	seen := make(map[string]struct{}, len(d.Widgets))
	for _, w := range d.Widgets {
		if w.ID == "" {
			return errors.New("dashboard: widget id is required")
		}
		if _, ok := seen[w.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateWidgetID, w.ID)
		}
		seen[w.ID] = struct{}{}
		if !w.Type.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownWidgetType, w.Type)
		}
	}
	return nil
}

// RefreshHook notifies transports (REST/WebSocket) about widget changes.
type RefreshHook interface {
	WidgetUpdated(ctx context.Context, event WidgetEvent) error
}

// WidgetEvent is emitted whenever a widget is added, changed, removed or receives data.
type WidgetEvent struct {
	DashboardID string          `json:"dashboard_id,omitempty"`
	WidgetID    string          `json:"widget_id,omitempty"`
	Widget      *Widget         `json:"widget,omitempty"`
	Snapshot    *WidgetSnapshot `json:"snapshot,omitempty"`
	Reason      string          `json:"reason"`
}

type noopRefreshHook struct{}

func (noopRefreshHook) WidgetUpdated(context.Context, WidgetEvent) error { return nil }

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return slices.Clone(in)
}
