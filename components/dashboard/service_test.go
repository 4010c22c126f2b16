package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingHook struct {
	mu     sync.Mutex
	events []WidgetEvent
	err    error
}

func (h *recordingHook) WidgetUpdated(_ context.Context, event WidgetEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHook) reasons() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.events {
		if e.Reason != "data" {
			out = append(out, e.Reason)
		}
	}
	return out
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTelemetry) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

type serviceFixture struct {
	svc       *Service
	blobs     *MemoryBlobStore
	source    *fakeSource
	live      *fakeLive
	hook      *recordingHook
	telemetry *recordingTelemetry
}

func newServiceFixture(t *testing.T, mode EditorMode) serviceFixture {
	t.Helper()
	f := serviceFixture{
		blobs:     NewMemoryBlobStore(),
		source:    &fakeSource{},
		live:      &fakeLive{frame: []Series{{Name: "Efficiency", Value: 72}}},
		hook:      &recordingHook{},
		telemetry: &recordingTelemetry{},
	}
	f.svc = NewService(Options{
		Store:       NewCollectionStore(f.blobs),
		Source:      f.source,
		Live:        f.live,
		RefreshHook: f.hook,
		Telemetry:   f.telemetry,
		EditorMode:  mode,
	})
	t.Cleanup(f.svc.Close)
	return f
}

func TestServiceAddGaugeAndSave(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "")
	require.NoError(t, f.svc.Init(ctx))

	w, err := f.svc.AddWidget(ctx, "gauge")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, ok := f.svc.Canvas().Snapshot(w.ID)
		return ok && snap.State == StateReady
	}, time.Second, 5*time.Millisecond)
	snap, _ := f.svc.Canvas().Snapshot(w.ID)
	assert.True(t, snap.UsingTestData)
	assert.Equal(t, 72.0, snap.View.(GaugeView).Value)

	saved, err := f.svc.Save(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	raw, err := f.blobs.Read(ctx, StorageKey)
	require.NoError(t, err)
	var doc []map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc, 1)
	widgets := doc[0]["widgets"].([]any)
	require.Len(t, widgets, 1)
	stored := widgets[0].(map[string]any)
	assert.Equal(t, "gauge", stored["type"])
	assert.Equal(t, w.ID, stored["id"])
	cfg := stored["config"].(map[string]any)
	assert.Equal(t, float64(0), cfg["min"])
	assert.Equal(t, float64(100), cfg["max"])

	assert.Equal(t, []string{"add", "save"}, f.hook.reasons())
	assert.True(t, f.telemetry.has("designer.widget.add"))
	assert.True(t, f.telemetry.has("designer.dashboard.save"))

	list, err := f.svc.ListDashboards(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestServiceAddWidgetUnknownType(t *testing.T) {
	f := newServiceFixture(t, "")
	_, err := f.svc.AddWidget(context.Background(), "sparkline")
	assert.ErrorIs(t, err, ErrUnknownWidgetType)
	assert.Empty(t, f.svc.State().Dashboard.Widgets)
}

func TestServiceEditorBindsDataSource(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, EditorInline)
	f.source.setResult([]Series{timeSeries("flow", fixedNow, 3, 4)}, nil)

	w, err := f.svc.AddWidget(ctx, "lineChart")
	require.NoError(t, err)

	state, err := f.svc.SelectEntity(ctx, EditorSelection{Level: LevelFacility, ID: "facility-1"})
	require.NoError(t, err)
	assert.Len(t, state.Options.Systems, 2)
	_, err = f.svc.SelectEntity(ctx, EditorSelection{Level: LevelSystem, ID: "system-1"})
	require.NoError(t, err)
	_, err = f.svc.SelectEntity(ctx, EditorSelection{Level: LevelDevice, ID: "device-1"})
	require.NoError(t, err)
	state, err = f.svc.SelectEntity(ctx, EditorSelection{Level: LevelMetrics, Metrics: []string{"flow", "pressure"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"flow", "pressure"}, state.Form.DataSource.Metrics)

	_, err = f.svc.SelectEntity(ctx, EditorSelection{Level: "area"})
	assert.Error(t, err)

	updated, err := f.svc.CommitEditor(ctx)
	require.NoError(t, err)
	assert.True(t, updated.DataSource.Complete())

	require.Eventually(t, func() bool {
		snap, ok := f.svc.Canvas().Snapshot(w.ID)
		return ok && snap.State == StateReady && !snap.UsingTestData
	}, time.Second, 5*time.Millisecond)
	assert.True(t, f.live.wasStopped(w.ID))
	assert.Equal(t, "device-1", f.source.lastQuery().DeviceID)
	assert.NotNil(t, f.svc.State().Editor)
}

func TestServiceApplyForm(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "")
	w, err := f.svc.AddWidget(ctx, "card")
	require.NoError(t, err)

	form := FormFromWidget(w)
	form.Title = "Power"
	form.Card.Units = "kW"
	updated, err := f.svc.ApplyForm(ctx, w.ID, form)
	require.NoError(t, err)
	assert.Equal(t, "kW", updated.Config.(*CardConfig).Units)

	_, err = f.svc.ApplyForm(ctx, "ghost", form)
	assert.ErrorIs(t, err, ErrWidgetNotFound)
}

func TestServiceRemoveWidgetTearsDownRuntime(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "")
	w, err := f.svc.AddWidget(ctx, "pieChart")
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveWidget(ctx, w.ID))
	_, ok := f.svc.Canvas().Snapshot(w.ID)
	assert.False(t, ok)
	assert.True(t, f.live.wasStopped(w.ID))
	assert.Contains(t, f.hook.reasons(), "remove")

	assert.ErrorIs(t, f.svc.RemoveWidget(ctx, w.ID), ErrWidgetNotFound)
	assert.Error(t, f.svc.RemoveWidget(ctx, ""))
}

func TestServiceLayoutNotifiesEachWidget(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "")
	a, err := f.svc.AddWidget(ctx, "card")
	require.NoError(t, err)
	b, err := f.svc.AddWidget(ctx, "gauge")
	require.NoError(t, err)

	require.NoError(t, f.svc.ApplyLayout(ctx, []LayoutItem{
		{ID: a.ID, X: 0, Y: 0, Cols: 6, Rows: 3},
		{ID: b.ID, X: 6, Y: 0, Cols: 6, Rows: 3},
	}))
	assert.Equal(t, []string{"add", "add", "layout", "layout"}, f.hook.reasons())
}

func TestServiceSetTimeContext(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "")
	f.svc.SetTimeContext(ctx, &TimeContext{TimeRange: &TimeRange{RelativeRange: "last1h"}})
	assert.Equal(t, "last1h", f.svc.State().Dashboard.TimeContext.TimeRange.RelativeRange)

	f.svc.SetTimeContext(ctx, nil)
	assert.Nil(t, f.svc.State().Dashboard.TimeContext)
}

func TestServiceDeleteKeepsCurrentDashboard(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "")
	_, err := f.svc.AddWidget(ctx, "card")
	require.NoError(t, err)
	saved, err := f.svc.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteDashboard(ctx, saved.ID))
	list, err := f.svc.ListDashboards(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Len(t, f.svc.State().Dashboard.Widgets, 1)
}

func TestServiceLoadReplacesRuntimes(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "")
	old, err := f.svc.AddWidget(ctx, "card")
	require.NoError(t, err)

	seeded, err := SeedDashboard(ctx, NewCollectionStore(f.blobs), "Plant")
	require.NoError(t, err)

	loaded, err := f.svc.Load(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, loaded.ID)
	assert.Len(t, f.svc.Snapshots(), len(seeded.Widgets))
	assert.True(t, f.live.wasStopped(old.ID))
	assert.Empty(t, f.svc.State().SelectedWidgetID)
}

func TestServiceHookErrorsSurface(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "")
	f.hook.err = errors.New("socket closed")

	w, err := f.svc.AddWidget(ctx, "card")
	assert.EqualError(t, err, "socket closed")
	assert.NotEmpty(t, w.ID)
	assert.Len(t, f.svc.State().Dashboard.Widgets, 1)
}

func TestServiceRetryUnknownWidget(t *testing.T) {
	f := newServiceFixture(t, "")
	assert.ErrorIs(t, f.svc.Retry(context.Background(), "ghost"), ErrWidgetNotFound)
}

func TestRefreshHooksFanOut(t *testing.T) {
	first := &recordingHook{err: errors.New("first")}
	second := &recordingHook{}
	core, logs := observer.New(zap.DebugLevel)

	hooks := RefreshHooks{first, nil, second, LogHook{Logger: zap.New(core)}}
	snap := WidgetSnapshot{State: StateReady}
	err := hooks.WidgetUpdated(context.Background(), WidgetEvent{WidgetID: "w1", Reason: "data", Snapshot: &snap})

	assert.EqualError(t, err, "first")
	assert.Len(t, second.events, 1)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "widget event", entry.Message)
	assert.Equal(t, "ready", entry.ContextMap()["state"])

	assert.NoError(t, LogHook{}.WidgetUpdated(context.Background(), WidgetEvent{}))
}
