// Package telemetry provides the telemetry backends of the designer: an
// in-memory mock of the pump catalog, a synthetic live stream for widgets
// without a data source, and an HTTP client for a real backend.
package telemetry

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

const (
	defaultCatalogDelay = 500 * time.Millisecond
	defaultSeriesDelay  = time.Second
	pointInterval       = 5 * time.Minute
	minPoints           = 10
	maxPoints           = 100
)

// MockOptions tunes the simulated latency and randomness of MockClient.
type MockOptions struct {
	// CatalogDelay is applied to facility, system, device and metric lookups.
	// Negative disables the delay.
	CatalogDelay time.Duration
	SeriesDelay  time.Duration
	// Seed makes the generated noise reproducible. Zero picks a random seed.
	Seed uint64
}

// MockClient serves a fixed facility/system/device catalog and generated
// series. It implements dashboard.TelemetrySource.
type MockClient struct {
	catalogDelay time.Duration
	seriesDelay  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

var _ dashboard.TelemetrySource = (*MockClient)(nil)

// NewMockClient builds a mock client.
func NewMockClient(opts MockOptions) *MockClient {
	catalogDelay := opts.CatalogDelay
	if catalogDelay == 0 {
		catalogDelay = defaultCatalogDelay
	}
	seriesDelay := opts.SeriesDelay
	if seriesDelay == 0 {
		seriesDelay = defaultSeriesDelay
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &MockClient{
		catalogDelay: catalogDelay,
		seriesDelay:  seriesDelay,
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

var facilities = []dashboard.Facility{
	{ID: "facility-1", Name: "Headquarters"},
	{ID: "facility-2", Name: "Production Plant"},
	{ID: "facility-3", Name: "Distribution Center"},
}

var systems = map[string][]dashboard.System{
	"facility-1": {
		{ID: "system-1", Name: "HVAC System", FacilityID: "facility-1"},
		{ID: "system-2", Name: "Water Supply System", FacilityID: "facility-1"},
	},
	"facility-2": {
		{ID: "system-3", Name: "Cooling System", FacilityID: "facility-2"},
		{ID: "system-4", Name: "Process Water System", FacilityID: "facility-2"},
	},
	"facility-3": {
		{ID: "system-5", Name: "Utility System", FacilityID: "facility-3"},
	},
}

var devices = map[string][]dashboard.Device{
	"system-1": {
		{ID: "device-1", Name: "CR95 Pump", Type: "pump", SystemID: "system-1"},
		{ID: "device-2", Name: "CR45 Pump", Type: "pump", SystemID: "system-1"},
	},
	"system-2": {
		{ID: "device-3", Name: "CR15 Pump", Type: "pump", SystemID: "system-2"},
		{ID: "device-4", Name: "CR20 Pump", Type: "pump", SystemID: "system-2"},
	},
	"system-3": {{ID: "device-5", Name: "CR30 Pump", Type: "pump", SystemID: "system-3"}},
	"system-4": {{ID: "device-6", Name: "CR10 Pump", Type: "pump", SystemID: "system-4"}},
	"system-5": {{ID: "device-7", Name: "CR5 Pump", Type: "pump", SystemID: "system-5"}},
}

var metrics = []dashboard.Metric{
	{ID: "flow", Name: "Flow Rate", Unit: "m³/h"},
	{ID: "pressure", Name: "Pressure", Unit: "bar"},
	{ID: "temperature", Name: "Temperature", Unit: "°C"},
	{ID: "power", Name: "Power Consumption", Unit: "kW"},
	{ID: "efficiency", Name: "Efficiency", Unit: "%"},
	{ID: "runtime", Name: "Runtime", Unit: "h"},
}

// MetricName returns the display name of a metric id, or the id itself.
func MetricName(id string) string {
	for _, m := range metrics {
		if m.ID == id {
			return m.Name
		}
	}
	return id
}

func (c *MockClient) Facilities(ctx context.Context) ([]dashboard.Facility, error) {
	if err := wait(ctx, c.catalogDelay); err != nil {
		return nil, err
	}
	return append([]dashboard.Facility(nil), facilities...), nil
}

// Systems returns the systems of a facility; unknown ids yield an empty list.
func (c *MockClient) Systems(ctx context.Context, facilityID string) ([]dashboard.System, error) {
	if err := wait(ctx, c.catalogDelay); err != nil {
		return nil, err
	}
	return append([]dashboard.System{}, systems[facilityID]...), nil
}

func (c *MockClient) Devices(ctx context.Context, systemID string) ([]dashboard.Device, error) {
	if err := wait(ctx, c.catalogDelay); err != nil {
		return nil, err
	}
	return append([]dashboard.Device{}, devices[systemID]...), nil
}

// Metrics returns the metric list shared by every pump.
func (c *MockClient) Metrics(ctx context.Context, deviceID string) ([]dashboard.Metric, error) {
	if err := wait(ctx, c.catalogDelay); err != nil {
		return nil, err
	}
	return append([]dashboard.Metric(nil), metrics...), nil
}

// Series generates one evenly spaced series per requested metric.
func (c *MockClient) Series(ctx context.Context, query dashboard.SeriesQuery) ([]dashboard.Series, error) {
	if err := wait(ctx, c.seriesDelay); err != nil {
		return nil, err
	}
	return c.generate(query), nil
}

// PointCount is one point per five minutes, bounded to [10, 100].
func PointCount(d time.Duration) int {
	n := int(d / pointInterval)
	return min(maxPoints, max(minPoints, n))
}

func (c *MockClient) generate(query dashboard.SeriesQuery) []dashboard.Series {
	duration := query.To.Sub(query.From)
	count := PointCount(duration)
	step := duration / time.Duration(count-1)

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]dashboard.Series, 0, len(query.Metrics))
	for _, id := range query.Metrics {
		points := make([]dashboard.Point, count)
		for i := range points {
			ts := query.From.Add(time.Duration(i) * step)
			if i == count-1 {
				ts = query.To
			}
			points[i] = dashboard.Point{
				Timestamp: ts,
				Value:     math.Max(0, c.sample(id, float64(i))),
			}
		}
		out = append(out, dashboard.Series{Name: MetricName(id), Points: points})
	}
	return out
}

func (c *MockClient) sample(metric string, i float64) float64 {
	r := c.rng.Float64()
	switch metric {
	case "flow":
		return 50 + 10*math.Sin(i/5) + r*5
	case "pressure":
		return 4 + math.Cos(i/10) + r*0.5
	case "temperature":
		return 25 + 5*math.Sin(i/8) + r
	case "power":
		return 15 + 3*math.Sin(i/7) + r*2
	case "efficiency":
		return 85 + 5*math.Sin(i/15) + r*3
	case "runtime":
		return i/4 + r*0.2
	}
	return 50 + 25*math.Sin(i/10) + r*10
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
