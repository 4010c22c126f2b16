package dashboard

import (
	"context"
	"time"
)

// Facility is the top level of the entity catalog.
type Facility struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// System belongs to a facility.
type System struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FacilityID string `json:"facilityId"`
}

// Device belongs to a system.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	SystemID string `json:"systemId"`
}

// Metric is a measurable quantity exposed by a device.
type Metric struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// Point is one timestamped sample.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is a named sequence of samples. Scalar series (category slices, gauge
// readings) carry no points and only a Value.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"series,omitempty"`
	Value  float64 `json:"value,omitempty"`
}

// Latest returns the most recent sample, or the scalar value when the series
// carries no points.
func (s Series) Latest() float64 {
	if n := len(s.Points); n > 0 {
		return s.Points[n-1].Value
	}
	return s.Value
}

// HasPoints reports whether the series is a time series.
func (s Series) HasPoints() bool {
	return len(s.Points) > 0
}

func cloneSeries(in []Series) []Series {
	if in == nil {
		return nil
	}
	out := make([]Series, len(in))
	for i, s := range in {
		out[i] = s
		if s.Points != nil {
			out[i].Points = append([]Point(nil), s.Points...)
		}
	}
	return out
}

// SeriesQuery selects telemetry for one device.
type SeriesQuery struct {
	DeviceID string
	Metrics  []string
	From     time.Time
	To       time.Time
}

// CatalogSource serves the facility -> system -> device -> metric pickers.
type CatalogSource interface {
	Facilities(ctx context.Context) ([]Facility, error)
	Systems(ctx context.Context, facilityID string) ([]System, error)
	Devices(ctx context.Context, systemID string) ([]Device, error)
	Metrics(ctx context.Context, deviceID string) ([]Metric, error)
}

// TelemetrySource serves the catalog and historical series.
type TelemetrySource interface {
	CatalogSource
	Series(ctx context.Context, query SeriesQuery) ([]Series, error)
}

// LiveSource keeps one synthetic stream per widget id.
type LiveSource interface {
	// Subscribe delivers the current frame immediately and every update after it.
	// The returned cancel func detaches the subscriber without stopping the stream.
	Subscribe(ctx context.Context, widgetID string, t WidgetType) (<-chan []Series, func(), error)
	// Stop discards the stream of widgetID and closes its subscribers.
	Stop(widgetID string)
}
