package dashboard

import (
	"bytes"
	"context"
	"io"
	"testing"
)

type stubStateProvider struct {
	state     DesignerState
	snapshots []WidgetSnapshot
}

func (s stubStateProvider) State() DesignerState        { return s.state }
func (s stubStateProvider) Snapshots() []WidgetSnapshot { return s.snapshots }
func (s stubStateProvider) Palette() []PaletteCategory  { return NewRegistry().Palette() }

type stubRenderer struct {
	name string
	data any
}

func (r *stubRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	r.name = name
	r.data = data
	for _, w := range out {
		io.WriteString(w, "rendered")
	}
	return "rendered", nil
}

func TestControllerPage(t *testing.T) {
	d := NewDashboard()
	d.Widgets = []Widget{boundWidget(WidgetGauge, "g"), boundWidget(WidgetLineChart, "l")}
	provider := stubStateProvider{
		state: DesignerState{Dashboard: d, SelectedWidgetID: "l", ShowWidgetPanel: true},
		snapshots: []WidgetSnapshot{
			{WidgetID: "g", State: StateReady, UsingTestData: true},
			{WidgetID: "l", State: StateError, Error: "Failed to load data"},
		},
	}
	ctrl := NewController(ControllerOptions{Service: provider, SocketPath: "/ws"})
	page := ctrl.Page(context.Background())

	widgets, ok := page["widgets"].([]map[string]any)
	if !ok || len(widgets) != 2 {
		t.Fatalf("expected two widgets, got %#v", page["widgets"])
	}
	gauge, line := widgets[0], widgets[1]
	if gauge["template"] != "widgets/gauge.html" || line["template"] != "widgets/chart.html" {
		t.Fatalf("unexpected partials %v / %v", gauge["template"], line["template"])
	}
	if gauge["state"] != "ready" || gauge["test_data"] != true {
		t.Fatalf("unexpected gauge entry %#v", gauge)
	}
	if line["selected"] != true || line["error"] != "Failed to load data" {
		t.Fatalf("unexpected line entry %#v", line)
	}
	if page["socket_path"] != "/ws" || page["show_widget_panel"] != true {
		t.Fatalf("unexpected page flags %#v", page)
	}
	if palette, _ := page["palette"].([]PaletteCategory); len(palette) != 2 {
		t.Fatalf("expected two palette categories, got %d", len(palette))
	}
}

func TestControllerRenderTemplate(t *testing.T) {
	ctrl := NewController(ControllerOptions{Service: stubStateProvider{state: DesignerState{Dashboard: NewDashboard()}}})
	if err := ctrl.RenderTemplate(context.Background(), &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error without renderer")
	}

	renderer := &stubRenderer{}
	ctrl = NewController(ControllerOptions{
		Service:  stubStateProvider{state: DesignerState{Dashboard: NewDashboard()}},
		Renderer: renderer,
	})
	var buf bytes.Buffer
	if err := ctrl.RenderTemplate(context.Background(), &buf); err != nil {
		t.Fatalf("RenderTemplate returned error: %v", err)
	}
	if renderer.name != "designer.html" {
		t.Fatalf("expected default template, got %s", renderer.name)
	}
	if buf.String() != "rendered" {
		t.Fatalf("expected output to be written, got %q", buf.String())
	}
}

func TestControllerWithoutService(t *testing.T) {
	if page := NewController(ControllerOptions{}).Page(context.Background()); len(page) != 0 {
		t.Fatalf("expected empty page, got %#v", page)
	}
}
