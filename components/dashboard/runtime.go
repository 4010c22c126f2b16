package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WidgetState is the data-lifecycle state of a placed widget.
type WidgetState string

const (
	StateIdle    WidgetState = "idle"
	StateLoading WidgetState = "loading"
	StateReady   WidgetState = "ready"
	StateError   WidgetState = "error"
	StateEmpty   WidgetState = "empty"
)

const (
	msgLoadFailed     = "Failed to load data"
	msgTestDataFailed = "Failed to load test data"
	defaultWindow     = 24 * time.Hour
)

var (
	errNoTelemetrySource = errors.New("dashboard: telemetry source not configured")
	errNoLiveSource      = errors.New("dashboard: live source not configured")
	errNoRenderer        = errors.New("dashboard: renderer not configured")
)

// Size is a container size in whole pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Dimensions is a raw container measurement.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SizeOf floors the measurement, never going below one pixel.
func SizeOf(d Dimensions) Size {
	return Size{Width: floorPixels(d.Width), Height: floorPixels(d.Height)}
}

func floorPixels(v float64) int {
	if math.IsNaN(v) || v < 1 {
		return 1
	}
	return int(math.Floor(v))
}

// WidgetSnapshot is the externally visible state of a widget runtime.
type WidgetSnapshot struct {
	WidgetID      string      `json:"widget_id"`
	Type          WidgetType  `json:"type"`
	State         WidgetState `json:"state"`
	Error         string      `json:"error,omitempty"`
	UsingTestData bool        `json:"using_test_data"`
	Size          Size        `json:"size"`
	View          View        `json:"view,omitempty"`
	ChartHTML     string      `json:"chart_html,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// RuntimeOptions wires the collaborators of a widget runtime.
type RuntimeOptions struct {
	Source        TelemetrySource
	Live          LiveSource
	Renderer      WidgetRenderer
	Charts        *ChartRenderer
	DashboardTime func() *TimeContext
	OnUpdate      func(WidgetSnapshot)
	Logger        *zap.Logger
	Now           func() time.Time
}

// Runtime is the data lifecycle of one placed widget: it fetches (or streams)
// data, tracks loading/error/empty states and hands results to the renderer.
type Runtime struct {
	opts RuntimeOptions

	// activation serializes Activate and Teardown so every started load
	// has its cancel func recorded.
	activation sync.Mutex

	mu            sync.Mutex
	widget        Widget
	state         WidgetState
	err           error
	errMsg        string
	view          View
	chartHTML     string
	usingTestData bool
	size          Size
	updatedAt     time.Time
	gen           uint64
	cancel        context.CancelFunc
	done          chan struct{}
	resizeCancel  context.CancelFunc
}

// NewRuntime creates an idle runtime for w.
func NewRuntime(w Widget, opts RuntimeOptions) *Runtime {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runtime{
		opts:   opts,
		widget: w.Clone(),
		state:  StateIdle,
		size:   Size{Width: 1, Height: 1},
	}
}

// Widget returns the widget the runtime currently serves.
func (r *Runtime) Widget() Widget {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.widget.Clone()
}

// Activate starts loading. Work from a previous activation is cancelled first,
// so at most one fetch or stream is in flight.
func (r *Runtime) Activate(ctx context.Context) {
	r.activation.Lock()
	defer r.activation.Unlock()
	r.abort()

	r.mu.Lock()
	r.gen++
	gen := r.gen
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	widget := r.widget.Clone()
	useTestData := !widget.DataSource.Complete()
	wasTestData := r.usingTestData
	r.usingTestData = useTestData
	r.state = StateLoading
	r.err = nil
	r.errMsg = ""
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	if wasTestData && !useTestData && r.opts.Live != nil {
		r.opts.Live.Stop(widget.ID)
	}
	r.publish(snapshot)

	if useTestData {
		go r.stream(runCtx, gen, widget, done)
		return
	}
	go r.fetch(runCtx, gen, widget, done)
}

// Retry re-runs the data load after an error.
func (r *Runtime) Retry(ctx context.Context) {
	r.Activate(ctx)
}

// Reconfigure swaps the widget definition and reloads its data.
func (r *Runtime) Reconfigure(ctx context.Context, w Widget) {
	r.mu.Lock()
	r.widget = w.Clone()
	r.mu.Unlock()
	r.Activate(ctx)
}

// Place swaps the widget definition without reloading data. Used when only
// presentation changed (geometry, title).
func (r *Runtime) Place(w Widget) {
	r.mu.Lock()
	r.widget = w.Clone()
	r.renderChartLocked()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	r.publish(snapshot)
}

// Teardown cancels in-flight work, stops the synthetic stream for the widget
// and releases the resize observer. Nothing is delivered after it returns.
func (r *Runtime) Teardown() {
	r.activation.Lock()
	defer r.activation.Unlock()
	r.abort()
	r.mu.Lock()
	r.gen++
	r.state = StateIdle
	id := r.widget.ID
	resizeCancel := r.resizeCancel
	r.resizeCancel = nil
	r.mu.Unlock()
	if resizeCancel != nil {
		resizeCancel()
	}
	if r.opts.Live != nil {
		r.opts.Live.Stop(id)
	}
}

func (r *Runtime) abort() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Resize records a new container measurement and re-renders chart markup.
func (r *Runtime) Resize(d Dimensions) {
	size := SizeOf(d)
	r.mu.Lock()
	if size == r.size {
		r.mu.Unlock()
		return
	}
	r.size = size
	r.renderChartLocked()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	r.publish(snapshot)
}

// ObserveResize applies every measurement from sizes until the channel closes
// or the runtime is torn down.
func (r *Runtime) ObserveResize(ctx context.Context, sizes <-chan Dimensions) {
	obsCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	if r.resizeCancel != nil {
		r.resizeCancel()
	}
	r.resizeCancel = cancel
	r.mu.Unlock()
	go func() {
		for {
			select {
			case <-obsCtx.Done():
				return
			case d, ok := <-sizes:
				if !ok {
					return
				}
				r.Resize(d)
			}
		}
	}()
}

// Size returns the current container size.
func (r *Runtime) Size() Size {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Snapshot returns the current state.
func (r *Runtime) Snapshot() WidgetSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Err returns the cause of the last failure.
func (r *Runtime) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Runtime) fetch(ctx context.Context, gen uint64, w Widget, done chan struct{}) {
	defer close(done)
	if r.opts.Source == nil {
		r.fail(gen, msgLoadFailed, errNoTelemetrySource)
		return
	}
	from, to := r.timeRange(w)
	data, err := r.opts.Source.Series(ctx, SeriesQuery{
		DeviceID: w.DataSource.EntityMapping.Device,
		Metrics:  cloneStrings(w.DataSource.Metrics),
		From:     from,
		To:       to,
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		r.fail(gen, msgLoadFailed, err)
		return
	}
	r.deliver(gen, w, data)
}

func (r *Runtime) stream(ctx context.Context, gen uint64, w Widget, done chan struct{}) {
	defer close(done)
	if r.opts.Live == nil {
		r.fail(gen, msgTestDataFailed, errNoLiveSource)
		return
	}
	frames, detach, err := r.opts.Live.Subscribe(ctx, w.ID, w.Type)
	if err != nil {
		r.fail(gen, msgTestDataFailed, err)
		return
	}
	defer detach()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			r.deliver(gen, w, frame)
		}
	}
}

func (r *Runtime) timeRange(w Widget) (time.Time, time.Time) {
	now := r.opts.Now()
	if tc := w.TimeContext; tc != nil && !tc.UseGlobalTime && tc.TimeRange != nil {
		if from, to := tc.TimeRange.Resolve(now); !from.IsZero() && !to.IsZero() {
			return from, to
		}
	}
	if r.opts.DashboardTime != nil {
		if tc := r.opts.DashboardTime(); tc != nil && tc.TimeRange != nil {
			if from, to := tc.TimeRange.Resolve(now); !from.IsZero() && !to.IsZero() {
				return from, to
			}
		}
	}
	return now.Add(-defaultWindow), now
}

func (r *Runtime) deliver(gen uint64, w Widget, data []Series) {
	if r.opts.Renderer == nil {
		r.fail(gen, msgLoadFailed, errNoRenderer)
		return
	}
	view, err := r.opts.Renderer.Render(w, data)
	if err != nil {
		r.fail(gen, msgLoadFailed, err)
		return
	}
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.view = view
	r.state = StateReady
	if len(data) == 0 {
		r.state = StateEmpty
	}
	r.updatedAt = r.opts.Now()
	r.renderChartLocked()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	r.publish(snapshot)
}

func (r *Runtime) fail(gen uint64, msg string, err error) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.state = StateError
	r.errMsg = msg
	r.err = err
	r.updatedAt = r.opts.Now()
	snapshot := r.snapshotLocked()
	id := r.widget.ID
	r.mu.Unlock()
	r.opts.Logger.Warn("widget data load failed",
		zap.String("widget_id", id),
		zap.String("message", msg),
		zap.Error(err),
	)
	r.publish(snapshot)
}

func (r *Runtime) renderChartLocked() {
	if r.opts.Charts == nil || r.view == nil {
		return
	}
	html, err := r.opts.Charts.RenderHTML(r.widget, r.view, r.size)
	if err != nil {
		r.opts.Logger.Warn("chart render failed", zap.String("widget_id", r.widget.ID), zap.Error(err))
		return
	}
	r.chartHTML = html
}

func (r *Runtime) snapshotLocked() WidgetSnapshot {
	return WidgetSnapshot{
		WidgetID:      r.widget.ID,
		Type:          r.widget.Type,
		State:         r.state,
		Error:         r.errMsg,
		UsingTestData: r.usingTestData,
		Size:          r.size,
		View:          r.view,
		ChartHTML:     r.chartHTML,
		UpdatedAt:     r.updatedAt,
	}
}

func (r *Runtime) publish(snapshot WidgetSnapshot) {
	if r.opts.OnUpdate != nil {
		r.opts.OnUpdate(snapshot)
	}
}
