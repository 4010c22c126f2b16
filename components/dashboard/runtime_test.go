package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotLog struct {
	mu    sync.Mutex
	items []WidgetSnapshot
}

func (l *snapshotLog) add(s WidgetSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, s)
}

func (l *snapshotLog) states() []WidgetState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]WidgetState, len(l.items))
	for i, s := range l.items {
		out[i] = s.State
	}
	return out
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRuntime(w Widget, src *fakeSource, live *fakeLive, dashboardTime *TimeContext) (*Runtime, *snapshotLog) {
	log := &snapshotLog{}
	rt := NewRuntime(w, RuntimeOptions{
		Source:        src,
		Live:          live,
		Renderer:      registryRenderer{reg: NewRegistry()},
		DashboardTime: func() *TimeContext { return dashboardTime.clone() },
		OnUpdate:      log.add,
		Now:           func() time.Time { return fixedNow },
	})
	return rt, log
}

func waitForState(t *testing.T, rt *Runtime, want WidgetState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return rt.Snapshot().State == want
	}, time.Second, 5*time.Millisecond, "widget never reached %s (last %s)", want, rt.Snapshot().State)
}

func TestRuntimeLoadsBoundWidget(t *testing.T) {
	src := &fakeSource{}
	src.setResult([]Series{timeSeries("flow", fixedNow, 1, 2)}, nil)
	rt, log := newTestRuntime(boundWidget(WidgetLineChart, "l1"), src, &fakeLive{}, nil)
	defer rt.Teardown()

	assert.Equal(t, StateIdle, rt.Snapshot().State)
	rt.Activate(context.Background())
	waitForState(t, rt, StateReady)

	snap := rt.Snapshot()
	assert.False(t, snap.UsingTestData)
	assert.Equal(t, fixedNow, snap.UpdatedAt)
	assert.IsType(t, LineView{}, snap.View)
	assert.Equal(t, []WidgetState{StateLoading, StateReady}, log.states())

	q := src.lastQuery()
	assert.Equal(t, "device-1", q.DeviceID)
	assert.Equal(t, []string{"flow"}, q.Metrics)
}

func TestRuntimeEmptyResult(t *testing.T) {
	src := &fakeSource{}
	rt, _ := newTestRuntime(boundWidget(WidgetBarChart, "b1"), src, &fakeLive{}, nil)
	defer rt.Teardown()

	rt.Activate(context.Background())
	waitForState(t, rt, StateEmpty)
}

func TestRuntimeErrorAndRetry(t *testing.T) {
	src := &fakeSource{}
	src.setResult(nil, errors.New("upstream down"))
	rt, _ := newTestRuntime(boundWidget(WidgetGauge, "g1"), src, &fakeLive{}, nil)
	defer rt.Teardown()

	rt.Activate(context.Background())
	waitForState(t, rt, StateError)
	assert.Equal(t, "Failed to load data", rt.Snapshot().Error)
	assert.EqualError(t, rt.Err(), "upstream down")

	src.setResult([]Series{{Name: "efficiency", Value: 80}}, nil)
	rt.Retry(context.Background())
	waitForState(t, rt, StateReady)
	assert.Empty(t, rt.Snapshot().Error)
	assert.Equal(t, 80.0, rt.Snapshot().View.(GaugeView).Value)
}

func TestRuntimeStreamsTestDataForUnboundWidget(t *testing.T) {
	live := &fakeLive{frame: []Series{{Name: "Efficiency", Value: 70}}}
	w, err := NewWidget(WidgetGauge, func() string { return "g2" })
	require.NoError(t, err)
	rt, _ := newTestRuntime(w, &fakeSource{}, live, nil)

	rt.Activate(context.Background())
	waitForState(t, rt, StateReady)
	assert.True(t, rt.Snapshot().UsingTestData)
	assert.Equal(t, 1, live.subscriptions())

	rt.Teardown()
	assert.Equal(t, StateIdle, rt.Snapshot().State)
	assert.True(t, live.wasStopped("g2"))
}

func TestRuntimeStopsStreamWhenBound(t *testing.T) {
	live := &fakeLive{frame: []Series{{Name: "Efficiency", Value: 70}}}
	src := &fakeSource{}
	src.setResult([]Series{{Name: "flow", Value: 5}}, nil)
	w, err := NewWidget(WidgetCard, func() string { return "c1" })
	require.NoError(t, err)
	rt, _ := newTestRuntime(w, src, live, nil)
	defer rt.Teardown()

	rt.Activate(context.Background())
	waitForState(t, rt, StateReady)
	require.True(t, rt.Snapshot().UsingTestData)

	bound := boundWidget(WidgetCard, "c1")
	rt.Reconfigure(context.Background(), bound)
	waitForState(t, rt, StateReady)
	assert.False(t, rt.Snapshot().UsingTestData)
	assert.True(t, live.wasStopped("c1"))
	assert.Equal(t, 5.0, rt.Snapshot().View.(CardView).Value)
}

func TestRuntimeTeardownCancelsFetch(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	rt, log := newTestRuntime(boundWidget(WidgetLineChart, "l2"), src, &fakeLive{}, nil)

	rt.Activate(context.Background())
	require.Eventually(t, func() bool { return src.queryCount() == 1 }, time.Second, 5*time.Millisecond)
	rt.Teardown()

	assert.Equal(t, StateIdle, rt.Snapshot().State)
	assert.Equal(t, []WidgetState{StateLoading}, log.states())
}

type inflightSource struct {
	*fakeSource
	active atomic.Int32
}

func (s *inflightSource) Series(ctx context.Context, q SeriesQuery) ([]Series, error) {
	s.active.Add(1)
	defer s.active.Add(-1)
	return s.fakeSource.Series(ctx, q)
}

func TestRuntimeConcurrentActivationsStopOnTeardown(t *testing.T) {
	src := &inflightSource{fakeSource: &fakeSource{gate: make(chan struct{})}}
	rt := NewRuntime(boundWidget(WidgetLineChart, "l3"), RuntimeOptions{
		Source:   src,
		Live:     &fakeLive{},
		Renderer: registryRenderer{reg: NewRegistry()},
		Now:      func() time.Time { return fixedNow },
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				rt.Activate(context.Background())
				return
			}
			rt.Retry(context.Background())
		}(i)
	}
	wg.Wait()
	require.Eventually(t, func() bool { return src.active.Load() == 1 }, time.Second, 5*time.Millisecond)

	rt.Teardown()
	assert.Equal(t, int32(0), src.active.Load())
	assert.Equal(t, StateIdle, rt.Snapshot().State)
}

func TestRuntimeTimeRangePrecedence(t *testing.T) {
	src := &fakeSource{}

	custom := boundWidget(WidgetLineChart, "l")
	custom.TimeContext = &TimeContext{TimeRange: &TimeRange{RelativeRange: "last1h"}}
	dashboardTime := &TimeContext{TimeRange: &TimeRange{RelativeRange: "last6h"}}

	rt, _ := newTestRuntime(custom, src, &fakeLive{}, dashboardTime)
	rt.Activate(context.Background())
	waitForState(t, rt, StateEmpty)
	assert.Equal(t, fixedNow.Add(-time.Hour), src.lastQuery().From)
	rt.Teardown()

	global := boundWidget(WidgetLineChart, "l")
	rt, _ = newTestRuntime(global, src, &fakeLive{}, dashboardTime)
	rt.Activate(context.Background())
	waitForState(t, rt, StateEmpty)
	assert.Equal(t, fixedNow.Add(-6*time.Hour), src.lastQuery().From)
	rt.Teardown()

	rt, _ = newTestRuntime(global, src, &fakeLive{}, nil)
	rt.Activate(context.Background())
	waitForState(t, rt, StateEmpty)
	q := src.lastQuery()
	assert.Equal(t, fixedNow.Add(-24*time.Hour), q.From)
	assert.Equal(t, fixedNow, q.To)
	rt.Teardown()
}

func TestRuntimeResize(t *testing.T) {
	rt, log := newTestRuntime(boundWidget(WidgetCard, "c"), &fakeSource{}, &fakeLive{}, nil)

	rt.Resize(Dimensions{Width: 320.7, Height: 0.2})
	assert.Equal(t, Size{Width: 320, Height: 1}, rt.Size())
	n := len(log.states())

	rt.Resize(Dimensions{Width: 320.2, Height: 0.9})
	assert.Len(t, log.states(), n)
}

func TestRuntimeObserveResize(t *testing.T) {
	rt, _ := newTestRuntime(boundWidget(WidgetCard, "c"), &fakeSource{}, &fakeLive{}, nil)
	sizes := make(chan Dimensions, 1)
	rt.ObserveResize(context.Background(), sizes)

	sizes <- Dimensions{Width: 640, Height: 480}
	require.Eventually(t, func() bool {
		return rt.Size() == Size{Width: 640, Height: 480}
	}, time.Second, 5*time.Millisecond)

	rt.Teardown()
	close(sizes)
}

func TestSizeOf(t *testing.T) {
	assert.Equal(t, Size{Width: 1, Height: 1}, SizeOf(Dimensions{Width: -3, Height: 0}))
	assert.Equal(t, Size{Width: 99, Height: 10}, SizeOf(Dimensions{Width: 99.99, Height: 10}))
}
