package dashboard

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWidgetType(t *testing.T) {
	cases := map[string]WidgetType{
		"lineChart":  WidgetLineChart,
		"line-chart": WidgetLineChart,
		"BAR_CHART":  WidgetBarChart,
		" gauge ":    WidgetGauge,
		"card":       WidgetCard,
	}
	for raw, want := range cases {
		got, err := ParseWidgetType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseWidgetType("heatmap")
	assert.ErrorIs(t, err, ErrUnknownWidgetType)
}

func TestWidgetJSONKeepsConfigFlat(t *testing.T) {
	w, err := NewWidget(WidgetGauge, func() string { return "g1" })
	require.NoError(t, err)

	data, err := json.Marshal(w)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	cfg, ok := raw["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(100), cfg["max"])
	assert.Equal(t, "%", cfg["units"])
	assert.Equal(t, "gauge", raw["type"])

	var back Widget
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, w, back)
}

func TestWidgetDecodeFillsRendererDefaults(t *testing.T) {
	var w Widget
	require.NoError(t, json.Unmarshal([]byte(`{"id":"c","type":"card","title":"Power","config":{"units":"kW"}}`), &w))
	cfg, ok := w.Config.(*CardConfig)
	require.True(t, ok)
	assert.Equal(t, "assessment", cfg.Icon)
	assert.Equal(t, 1, cfg.Decimals)
	assert.Equal(t, "kW", cfg.Units)

	err := json.Unmarshal([]byte(`{"id":"x","type":"sparkline"}`), &w)
	assert.True(t, errors.Is(err, ErrUnknownWidgetType))
}

func TestColorSchemeAcceptsNameOrObject(t *testing.T) {
	var named ColorScheme
	require.NoError(t, json.Unmarshal([]byte(`"cool"`), &named))
	assert.Equal(t, "cool", named.Name)

	out, err := json.Marshal(named)
	require.NoError(t, err)
	assert.JSONEq(t, `"cool"`, string(out))

	var custom ColorScheme
	require.NoError(t, json.Unmarshal([]byte(`{"domain":["#fff","#000"]}`), &custom))
	assert.Equal(t, []string{"#fff", "#000"}, custom.Domain)
	assert.Equal(t, []string{"#fff", "#000"}, ChartConfig{Scheme: &custom}.Colors())
	assert.Equal(t, defaultColorDomain, ChartConfig{}.Colors())
}

func TestTimeRangeResolve(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	from, to := TimeRange{RelativeRange: "last6h"}.Resolve(now)
	assert.Equal(t, now.Add(-6*time.Hour), from)
	assert.Equal(t, now, to)

	abs := TimeRange{From: now.Add(-time.Hour), To: now.Add(-time.Minute)}
	from, to = abs.Resolve(now)
	assert.Equal(t, abs.From, from)
	assert.Equal(t, abs.To, to)

	assert.True(t, TimeRange{}.IsZero())
}

func TestDashboardValidate(t *testing.T) {
	d := NewDashboard()
	d.Widgets = []Widget{{ID: "a", Type: WidgetCard}, {ID: "a", Type: WidgetGauge}}
	assert.ErrorIs(t, d.Validate(), ErrDuplicateWidgetID)

	d.Widgets = []Widget{{ID: "a", Type: "map"}}
	assert.ErrorIs(t, d.Validate(), ErrUnknownWidgetType)

	d.Widgets = []Widget{{ID: "a", Type: WidgetCard}}
	assert.NoError(t, d.Validate())
}

func TestDashboardCloneIsDeep(t *testing.T) {
	d := NewDashboard()
	d.Widgets = []Widget{boundWidget(WidgetLineChart, "w1")}
	clone := d.Clone()
	clone.Widgets[0].DataSource.Metrics[0] = "pressure"
	clone.Widgets[0].Config.(*LineChartConfig).Curve = "step"

	assert.Equal(t, "flow", d.Widgets[0].DataSource.Metrics[0])
	assert.Equal(t, "linear", d.Widgets[0].Config.(*LineChartConfig).Curve)
}
