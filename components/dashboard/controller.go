package dashboard

import (
	"context"
	"errors"
	"io"
)

const defaultDesignerTemplate = "designer.html"

// StateProvider exposes what the designer page needs.
type StateProvider interface {
	State() DesignerState
	Snapshots() []WidgetSnapshot
	Palette() []PaletteCategory
}

// ControllerOptions wires the designer page controller.
type ControllerOptions struct {
	Service  StateProvider
	Renderer Renderer
	Template string
	// SocketPath is handed to the page so the canvas can subscribe to events.
	SocketPath string
}

// Controller renders the designer page.
type Controller struct {
	opts ControllerOptions
}

// NewController wires the service into a controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Template == "" {
		opts.Template = defaultDesignerTemplate
	}
	return &Controller{opts: opts}
}

// Page builds the template payload.
func (c *Controller) Page(ctx context.Context) map[string]any {
	if c.opts.Service == nil {
		return map[string]any{}
	}
	state := c.opts.Service.State()
	snapshots := map[string]WidgetSnapshot{}
	for _, snap := range c.opts.Service.Snapshots() {
		snapshots[snap.WidgetID] = snap
	}
	widgets := make([]map[string]any, 0, len(state.Dashboard.Widgets))
	for _, w := range state.Dashboard.Widgets {
		snap := snapshots[w.ID]
		widgets = append(widgets, map[string]any{
			"id":         w.ID,
			"type":       string(w.Type),
			"title":      w.Title,
			"x":          w.X,
			"y":          w.Y,
			"cols":       w.Cols,
			"rows":       w.Rows,
			"selected":   w.ID == state.SelectedWidgetID,
			"state":      string(snap.State),
			"error":      snap.Error,
			"test_data":  snap.UsingTestData,
			"chart_html": snap.ChartHTML,
			"view":       snap.View,
			"template":   widgetPartial(w.Type),
		})
	}
	return map[string]any{
		"dashboard":         state.Dashboard,
		"widgets":           widgets,
		"palette":           c.opts.Service.Palette(),
		"show_widget_panel": state.ShowWidgetPanel,
		"editor":            state.Editor,
		"socket_path":       c.opts.SocketPath,
	}
}

func widgetPartial(t WidgetType) string {
	switch t {
	case WidgetCard:
		return "widgets/card.html"
	case WidgetGauge:
		return "widgets/gauge.html"
	}
	return "widgets/chart.html"
}

// RenderTemplate renders the designer page into out.
func (c *Controller) RenderTemplate(ctx context.Context, out io.Writer) error {
	if c.opts.Renderer == nil {
		return errors.New("dashboard: template renderer not configured")
	}
	_, err := c.opts.Renderer.Render(c.opts.Template, c.Page(ctx), out)
	return err
}
