package dashboard

import (
	"context"
	"errors"
	"fmt"
)

type seedWidget struct {
	Type       WidgetType
	Title      string
	X, Y       int
	Cols, Rows int
	Device     string
	Metrics    []string
}

// demoWidgets lays one widget of each type onto a 24 column grid. The line
// and gauge are bound to the mock catalog; the rest stream test data.
var demoWidgets = []seedWidget{
	{Type: WidgetLineChart, Title: "Flow and Pressure", X: 0, Y: 0, Cols: 12, Rows: 6, Device: "device-1", Metrics: []string{"flow", "pressure"}},
	{Type: WidgetGauge, Title: "Pump Efficiency", X: 12, Y: 0, Cols: 6, Rows: 6, Device: "device-1", Metrics: []string{"efficiency"}},
	{Type: WidgetCard, Title: "Power", X: 18, Y: 0, Cols: 6, Rows: 3},
	{Type: WidgetBarChart, Title: "Consumption by Area", X: 0, Y: 6, Cols: 12, Rows: 6},
	{Type: WidgetPieChart, Title: "Energy Split", X: 12, Y: 6, Cols: 12, Rows: 6},
}

// DemoDashboard builds the starter dashboard used by seeding.
func DemoDashboard(name string, ids IDGenerator) (Dashboard, error) {
	if ids == nil {
		ids = uuidGenerator
	}
	d := NewDashboard()
	if name != "" {
		d.Name = name
	}
	d.Description = "Starter dashboard with one widget per type"
	d.TimeContext = &TimeContext{
		UseGlobalTime: true,
		TimeRange:     &TimeRange{RelativeRange: "last24h"},
		Mode:          TimeModeHistorical,
	}
	for _, seed := range demoWidgets {
		w, err := NewWidget(seed.Type, ids)
		if err != nil {
			return Dashboard{}, err
		}
		w.Title = seed.Title
		w.X, w.Y, w.Cols, w.Rows = seed.X, seed.Y, seed.Cols, seed.Rows
		if seed.Device != "" {
			w.DataSource.EntityMapping = EntityMapping{
				Facility: "facility-1",
				System:   "system-1",
				Device:   seed.Device,
			}
			w.DataSource.Metrics = cloneStrings(seed.Metrics)
		}
		d.Widgets = append(d.Widgets, w)
	}
	return d, nil
}

// SeedDashboard stores a demo dashboard and returns it with its assigned id.
func SeedDashboard(ctx context.Context, store DashboardStore, name string) (Dashboard, error) {
	if store == nil {
		return Dashboard{}, errors.New("dashboard: store is required to seed")
	}
	d, err := DemoDashboard(name, nil)
	if err != nil {
		return Dashboard{}, err
	}
	if err := store.Save(ctx, &d); err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: seed %q: %w", d.Name, err)
	}
	return d, nil
}
