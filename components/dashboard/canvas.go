package dashboard

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CanvasOptions wires the data collaborators shared by every widget runtime.
type CanvasOptions struct {
	Source   TelemetrySource
	Live     LiveSource
	Registry *Registry
	Charts   *ChartRenderer
	OnUpdate func(WidgetSnapshot)
	Logger   *zap.Logger
	Now      func() time.Time
}

// Canvas keeps one Runtime per placed widget in step with the dashboard.
type Canvas struct {
	opts CanvasOptions

	mu       sync.Mutex
	runtimes map[string]*Runtime
	order    []string
	timeCtx  *TimeContext
}

// NewCanvas builds an empty canvas.
func NewCanvas(opts CanvasOptions) *Canvas {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Canvas{
		opts:     opts,
		runtimes: map[string]*Runtime{},
	}
}

// Sync starts runtimes for new widgets, reloads widgets whose data binding or
// config changed, moves the ones that were only laid out again, and tears down
// runtimes of removed widgets.
func (c *Canvas) Sync(ctx context.Context, d Dashboard) {
	c.mu.Lock()
	timeChanged := !reflect.DeepEqual(c.timeCtx, d.TimeContext)
	c.timeCtx = d.TimeContext.clone()

	var (
		activate []*Runtime
		reload   []reconfigure
		place    []reconfigure
		retire   []*Runtime
	)
	seen := make(map[string]struct{}, len(d.Widgets))
	order := make([]string, 0, len(d.Widgets))
	for _, w := range d.Widgets {
		seen[w.ID] = struct{}{}
		order = append(order, w.ID)
		rt, ok := c.runtimes[w.ID]
		if !ok {
			rt = NewRuntime(w, c.runtimeOptions())
			c.runtimes[w.ID] = rt
			activate = append(activate, rt)
			continue
		}
		prev := rt.Widget()
		switch {
		case dataChanged(prev, w):
			reload = append(reload, reconfigure{rt, w})
		case timeChanged && followsDashboardTime(w):
			reload = append(reload, reconfigure{rt, w})
		case !reflect.DeepEqual(prev, w):
			place = append(place, reconfigure{rt, w})
		}
	}
	for id, rt := range c.runtimes {
		if _, ok := seen[id]; !ok {
			retire = append(retire, rt)
			delete(c.runtimes, id)
		}
	}
	c.order = order
	c.mu.Unlock()

	for _, rt := range retire {
		rt.Teardown()
		c.opts.Charts.Forget(rt.Widget().ID)
	}
	for _, p := range place {
		p.runtime.Place(p.widget)
	}
	for _, p := range reload {
		p.runtime.Reconfigure(ctx, p.widget)
	}
	for _, rt := range activate {
		rt.Activate(ctx)
	}
}

type reconfigure struct {
	runtime *Runtime
	widget  Widget
}

func (c *Canvas) runtimeOptions() RuntimeOptions {
	return RuntimeOptions{
		Source:        c.opts.Source,
		Live:          c.opts.Live,
		Renderer:      registryRenderer{reg: c.opts.Registry},
		Charts:        c.opts.Charts,
		DashboardTime: c.dashboardTime,
		OnUpdate:      c.opts.OnUpdate,
		Logger:        c.opts.Logger,
		Now:           c.opts.Now,
	}
}

func (c *Canvas) dashboardTime() *TimeContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeCtx.clone()
}

// dataChanged reports whether the change between two versions of a widget
// needs a reload.
func dataChanged(prev, next Widget) bool {
	return prev.Type != next.Type ||
		!reflect.DeepEqual(prev.DataSource, next.DataSource) ||
		!reflect.DeepEqual(prev.TimeContext, next.TimeContext) ||
		!reflect.DeepEqual(prev.Config, next.Config)
}

func followsDashboardTime(w Widget) bool {
	if !w.DataSource.Complete() {
		return false
	}
	return w.TimeContext == nil || w.TimeContext.UseGlobalTime || w.TimeContext.TimeRange == nil
}

// Snapshot returns the state of one widget.
func (c *Canvas) Snapshot(id string) (WidgetSnapshot, bool) {
	rt, ok := c.runtime(id)
	if !ok {
		return WidgetSnapshot{}, false
	}
	return rt.Snapshot(), true
}

// Snapshots returns every widget state in dashboard order.
func (c *Canvas) Snapshots() []WidgetSnapshot {
	c.mu.Lock()
	runtimes := make([]*Runtime, 0, len(c.order))
	for _, id := range c.order {
		if rt, ok := c.runtimes[id]; ok {
			runtimes = append(runtimes, rt)
		}
	}
	c.mu.Unlock()
	out := make([]WidgetSnapshot, 0, len(runtimes))
	for _, rt := range runtimes {
		out = append(out, rt.Snapshot())
	}
	return out
}

// Retry reloads a widget, typically after an error.
func (c *Canvas) Retry(ctx context.Context, id string) error {
	rt, ok := c.runtime(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}
	rt.Retry(ctx)
	return nil
}

// Resize reports a new container measurement for a widget.
func (c *Canvas) Resize(id string, d Dimensions) (WidgetSnapshot, error) {
	rt, ok := c.runtime(id)
	if !ok {
		return WidgetSnapshot{}, fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}
	rt.Resize(d)
	return rt.Snapshot(), nil
}

// Runtime exposes the runtime of a widget.
func (c *Canvas) Runtime(id string) (*Runtime, bool) {
	return c.runtime(id)
}

func (c *Canvas) runtime(id string) (*Runtime, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rt, ok := c.runtimes[id]
	return rt, ok
}

// Close tears down every runtime.
func (c *Canvas) Close() {
	c.mu.Lock()
	runtimes := make([]*Runtime, 0, len(c.runtimes))
	for _, rt := range c.runtimes {
		runtimes = append(runtimes, rt)
	}
	c.runtimes = map[string]*Runtime{}
	c.order = nil
	c.mu.Unlock()
	for _, rt := range runtimes {
		rt.Teardown()
	}
}

type registryRenderer struct {
	reg *Registry
}

func (r registryRenderer) Render(w Widget, data []Series) (View, error) {
	renderer, ok := r.reg.Renderer(w.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWidgetType, w.Type)
	}
	return renderer.Render(w, data)
}
