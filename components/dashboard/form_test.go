package dashboard

import (
	"encoding/json"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormRoundTripPerType(t *testing.T) {
	for _, wt := range WidgetTypes() {
		t.Run(string(wt), func(t *testing.T) {
			w := boundWidget(wt, "w-"+string(wt))
			w.X, w.Y = 3, 4

			out, err := FormFromWidget(w).ApplyTo(w)
			require.NoError(t, err)
			assert.Equal(t, w, out)
		})
	}
}

func TestFormRoundTripFreshWidget(t *testing.T) {
	for _, wt := range WidgetTypes() {
		t.Run(string(wt), func(t *testing.T) {
			w, err := NewWidget(wt, func() string { return "fresh" })
			require.NoError(t, err)

			out, err := FormFromWidget(w).ApplyTo(w)
			require.NoError(t, err)
			assert.Equal(t, w, out)
			require.NotNil(t, out.DataSource.Metrics)

			raw, err := json.Marshal(out.DataSource)
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"metrics":[]`)
			assert.NotNil(t, w.Clone().DataSource.Metrics)
		})
	}
}

func TestFormRoundTripUnboundWidget(t *testing.T) {
	w := Widget{ID: "legacy", Type: WidgetPieChart, Title: "Split", Cols: 4, Rows: 4}
	out, err := FormFromWidget(w).ApplyTo(w)
	require.NoError(t, err)
	assert.Nil(t, out.DataSource)
	assert.Nil(t, out.TimeContext)
	assert.IsType(t, &PieChartConfig{}, out.Config)
}

func TestFormKeepsFieldsItDoesNotEdit(t *testing.T) {
	w := boundWidget(WidgetLineChart, "l1")
	cfg := w.Config.(*LineChartConfig)
	cfg.Timeline = true
	cfg.RangeFillOpacity = 0.3
	cfg.LegendPosition = "below"
	w.DataSource.EntityMapping.AbstractEntity = "pump"

	form := FormFromWidget(w)
	form.Visualization.Curve = "step"
	form.Visualization.YAxisLabel = "m³/h"

	out, err := form.ApplyTo(w)
	require.NoError(t, err)
	got := out.Config.(*LineChartConfig)
	assert.Equal(t, "step", got.Curve)
	assert.Equal(t, "m³/h", got.YAxisLabel)
	assert.True(t, got.Timeline)
	assert.Equal(t, 0.3, got.RangeFillOpacity)
	assert.Equal(t, "below", got.LegendPosition)
	assert.Equal(t, "pump", out.DataSource.EntityMapping.AbstractEntity)
	assert.Equal(t, "linear", cfg.Curve)
}

func TestFormCustomTimeRange(t *testing.T) {
	w := boundWidget(WidgetBarChart, "b1")
	form := FormFromWidget(w)
	form.TimeSettings.UseGlobalTime = false
	form.TimeSettings.CustomTimeRange = TimeRangeSettings{RelativeRange: "last1h"}

	out, err := form.ApplyTo(w)
	require.NoError(t, err)
	require.NotNil(t, out.TimeContext.TimeRange)
	assert.False(t, out.TimeContext.UseGlobalTime)
	assert.Equal(t, "last1h", out.TimeContext.TimeRange.RelativeRange)

	form.TimeSettings.UseGlobalTime = true
	out, err = form.ApplyTo(out)
	require.NoError(t, err)
	assert.True(t, out.TimeContext.UseGlobalTime)
	assert.Nil(t, out.TimeContext.TimeRange)
}

func TestFormValidation(t *testing.T) {
	cases := []struct {
		name  string
		wt    WidgetType
		edit  func(*WidgetForm)
		field string
	}{
		{"missing title", WidgetCard, func(f *WidgetForm) { f.Title = "" }, "title"},
		{"zero cols", WidgetCard, func(f *WidgetForm) { f.General.Cols = 0 }, "general"},
		{"device without system", WidgetLineChart, func(f *WidgetForm) {
			f.DataSource = DataSourceSettings{FacilityID: "facility-1", DeviceID: "device-1"}
		}, "dataSource"},
		{"gauge max below min", WidgetGauge, func(f *WidgetForm) {
			f.Visualization.Min = 50
			f.Visualization.Max = 10
		}, "visualization"},
		{"unknown curve", WidgetLineChart, func(f *WidgetForm) { f.Visualization.Curve = "spline" }, "visualization"},
		{"card decimals", WidgetCard, func(f *WidgetForm) { f.Card.Decimals = 12 }, "card"},
		{"unknown preset", WidgetBarChart, func(f *WidgetForm) {
			f.TimeSettings.UseGlobalTime = false
			f.TimeSettings.CustomTimeRange.RelativeRange = "lastDecade"
		}, "timeSettings"},
		{"inverted range", WidgetBarChart, func(f *WidgetForm) {
			now := time.Now()
			f.TimeSettings.UseGlobalTime = false
			f.TimeSettings.CustomTimeRange = TimeRangeSettings{From: now, To: now.Add(-time.Hour)}
		}, "timeSettings"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := boundWidget(tc.wt, "w")
			form := FormFromWidget(w)
			tc.edit(&form)

			err := form.Validate()
			require.Error(t, err)
			errs, ok := err.(validation.Errors)
			require.True(t, ok, "expected validation.Errors, got %T", err)
			assert.Contains(t, errs, tc.field)

			_, err = form.ApplyTo(w)
			assert.Error(t, err)
		})
	}
}

func TestFormIgnoresRangeWhileFollowingDashboard(t *testing.T) {
	w := boundWidget(WidgetLineChart, "l")
	form := FormFromWidget(w)
	form.TimeSettings.UseGlobalTime = true
	form.TimeSettings.CustomTimeRange.RelativeRange = "lastDecade"
	assert.NoError(t, form.Validate())
	assert.False(t, form.TimeSettings.CustomRangeEnabled())
}

func TestFormTypeMismatch(t *testing.T) {
	w := boundWidget(WidgetGauge, "g")
	form := FormFromWidget(w)
	form.Type = WidgetCard
	_, err := form.ApplyTo(w)
	assert.Error(t, err)
}

func TestActiveFields(t *testing.T) {
	assert.Contains(t, ActiveFields(WidgetLineChart), "curve")
	assert.NotContains(t, ActiveFields(WidgetLineChart), "doughnut")
	assert.Contains(t, ActiveFields(WidgetPieChart), "doughnut")
	assert.Contains(t, ActiveFields(WidgetGauge), "angleSpan")
	assert.Contains(t, ActiveFields(WidgetBarChart), "scheme")

	card := ActiveFields(WidgetCard)
	assert.Contains(t, card, "decimals")
	assert.NotContains(t, card, "scheme")
}

func TestNewWidgetFormDefaults(t *testing.T) {
	form := NewWidgetForm(WidgetLineChart)
	assert.Equal(t, "vivid", form.Visualization.SchemeName())
	assert.True(t, form.TimeSettings.UseGlobalTime)
	assert.Equal(t, 6, form.General.Cols)
	assert.Equal(t, "insert_chart", form.Card.Icon)
	assert.NotNil(t, form.DataSource.Metrics)
}
