package dashboard

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

func seqIDs() IDGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("id-%d", n.Add(1))
	}
}

// fakeSource serves a fixed catalog and canned series.
type fakeSource struct {
	mu      sync.Mutex
	series  []Series
	err     error
	gate    chan struct{}
	queries []SeriesQuery
}

var (
	fakeSystems = map[string][]System{
		"facility-1": {{ID: "system-1", FacilityID: "facility-1"}, {ID: "system-2", FacilityID: "facility-1"}},
		"facility-2": {{ID: "system-3", FacilityID: "facility-2"}},
	}
	fakeDevices = map[string][]Device{
		"system-1": {{ID: "device-1", SystemID: "system-1"}},
		"system-3": {{ID: "device-3", SystemID: "system-3"}},
	}
	fakeMetrics = map[string][]Metric{
		"device-1": {{ID: "flow", Unit: "m³/h"}, {ID: "pressure", Unit: "bar"}},
		"device-3": {{ID: "temperature", Unit: "°C"}},
	}
)

func (s *fakeSource) Facilities(context.Context) ([]Facility, error) {
	return []Facility{{ID: "facility-1"}, {ID: "facility-2"}}, nil
}

func (s *fakeSource) Systems(_ context.Context, id string) ([]System, error) {
	return slices.Clone(fakeSystems[id]), nil
}

func (s *fakeSource) Devices(_ context.Context, id string) ([]Device, error) {
	return slices.Clone(fakeDevices[id]), nil
}

func (s *fakeSource) Metrics(_ context.Context, id string) ([]Metric, error) {
	return slices.Clone(fakeMetrics[id]), nil
}

func (s *fakeSource) Series(ctx context.Context, q SeriesQuery) ([]Series, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	gate, series, err := s.gate, cloneSeries(s.series), s.err
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return series, err
}

func (s *fakeSource) setResult(series []Series, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series, s.err = series, err
}

func (s *fakeSource) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *fakeSource) lastQuery() SeriesQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queries) == 0 {
		return SeriesQuery{}
	}
	return s.queries[len(s.queries)-1]
}

// fakeLive hands every subscriber one frame and records stopped streams.
type fakeLive struct {
	mu         sync.Mutex
	frame      []Series
	subscribed []string
	stopped    []string
}

func (l *fakeLive) Subscribe(_ context.Context, id string, _ WidgetType) (<-chan []Series, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribed = append(l.subscribed, id)
	ch := make(chan []Series, 1)
	ch <- cloneSeries(l.frame)
	return ch, func() {}, nil
}

func (l *fakeLive) Stop(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = append(l.stopped, id)
}

func (l *fakeLive) wasStopped(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.stopped, id)
}

func (l *fakeLive) subscriptions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subscribed)
}

func timeSeries(name string, start time.Time, values ...float64) Series {
	s := Series{Name: name}
	for i, v := range values {
		s.Points = append(s.Points, Point{Timestamp: start.Add(time.Duration(i) * time.Minute), Value: v})
	}
	return s
}

func boundWidget(t WidgetType, id string) Widget {
	w, _ := NewWidget(t, func() string { return id })
	w.DataSource.EntityMapping = EntityMapping{Facility: "facility-1", System: "system-1", Device: "device-1"}
	w.DataSource.Metrics = []string{"flow"}
	return w
}
