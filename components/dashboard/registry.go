package dashboard

import (
	"fmt"
	"sync"
)

// WidgetHook lets packages adjust the registry during init().
type WidgetHook func(reg *Registry) error

var (
	globalHookMu sync.Mutex
	globalHooks  []WidgetHook
)

// RegisterWidgetHook registers a hook executed against new registries.
func RegisterWidgetHook(h WidgetHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// WidgetDefinition describes a palette entry and the schema of its config.
type WidgetDefinition struct {
	Type        WidgetType     `json:"type" yaml:"type"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Icon        string         `json:"icon" yaml:"icon"`
	Category    string         `json:"category" yaml:"category"`
	Schema      map[string]any `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// PaletteCategory groups definitions the way the widget palette lists them.
type PaletteCategory struct {
	Name    string             `json:"name"`
	Widgets []WidgetDefinition `json:"widgets"`
}

// DefinitionSource resolves widget definitions by type.
type DefinitionSource interface {
	Definition(t WidgetType) (WidgetDefinition, bool)
}

// Registry stores widget definitions and renderer strategies.
type Registry struct {
	mu          sync.RWMutex
	definitions map[WidgetType]WidgetDefinition
	renderers   map[WidgetType]WidgetRenderer
	categories  []string
}

// NewRegistry builds a registry with the built-in widgets and applies global hooks.
func NewRegistry() *Registry {
	reg := &Registry{
		definitions: map[WidgetType]WidgetDefinition{},
		renderers:   map[WidgetType]WidgetRenderer{},
	}
	reg.registerDefaults()
	_ = reg.ApplyHooks()
	return reg
}

func (r *Registry) registerDefaults() {
	for _, def := range DefaultWidgetDefinitions() {
		_ = r.RegisterDefinition(def)
	}
	for t, renderer := range defaultRenderers() {
		_ = r.RegisterRenderer(t, renderer)
	}
}

// ApplyHooks executes registered widget hooks.
func (r *Registry) ApplyHooks() error {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	for _, hook := range globalHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDefinition stores or replaces the definition of a known widget type.
func (r *Registry) RegisterDefinition(def WidgetDefinition) error {
	if !def.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownWidgetType, def.Type)
	}
	if def.Name == "" {
		def.Name = DefaultWidgetTitle(def.Type)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.definitions[def.Type]; ok && def.Schema == nil {
		def.Schema = prev.Schema
	}
	r.definitions[def.Type] = def
	r.trackCategory(def.Category)
	return nil
}

func (r *Registry) trackCategory(name string) {
	for _, existing := range r.categories {
		if existing == name {
			return
		}
	}
	r.categories = append(r.categories, name)
}

// RegisterRenderer associates a renderer strategy with a widget type.
func (r *Registry) RegisterRenderer(t WidgetType, renderer WidgetRenderer) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownWidgetType, t)
	}
	if renderer == nil {
		return fmt.Errorf("dashboard: renderer for %s cannot be nil", t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[t] = renderer
	return nil
}

// Definition fetches a widget definition by type.
func (r *Registry) Definition(t WidgetType) (WidgetDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[t]
	return def, ok
}

// Renderer fetches the renderer strategy for a widget type.
func (r *Registry) Renderer(t WidgetType) (WidgetRenderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.renderers[t]
	return renderer, ok
}

// Definitions returns every definition in palette order.
func (r *Registry) Definitions() []WidgetDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]WidgetDefinition, 0, len(r.definitions))
	for _, t := range widgetTypes {
		if def, ok := r.definitions[t]; ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// Palette groups definitions by category, keeping registration order.
func (r *Registry) Palette() []PaletteCategory {
	defs := r.Definitions()
	r.mu.RLock()
	categories := append([]string(nil), r.categories...)
	r.mu.RUnlock()
	out := make([]PaletteCategory, 0, len(categories))
	for _, name := range categories {
		group := PaletteCategory{Name: name}
		for _, def := range defs {
			if def.Category == name {
				group.Widgets = append(group.Widgets, def)
			}
		}
		if len(group.Widgets) > 0 {
			out = append(out, group)
		}
	}
	return out
}

// DefaultWidgetDefinitions returns the built-in palette.
func DefaultWidgetDefinitions() []WidgetDefinition {
	return []WidgetDefinition{
		{
			Type:        WidgetLineChart,
			Name:        "Line Chart",
			Description: "Display data trends over time",
			Icon:        "show_chart",
			Category:    "Charts",
			Schema:      lineChartSchema(),
		},
		{
			Type:        WidgetBarChart,
			Name:        "Bar Chart",
			Description: "Compare values across categories",
			Icon:        "bar_chart",
			Category:    "Charts",
			Schema:      barChartSchema(),
		},
		{
			Type:        WidgetPieChart,
			Name:        "Pie Chart",
			Description: "Show proportions of a whole",
			Icon:        "pie_chart",
			Category:    "Charts",
			Schema:      pieChartSchema(),
		},
		{
			Type:        WidgetGauge,
			Name:        "Gauge",
			Description: "Display a value within a range",
			Icon:        "speed",
			Category:    "Indicators",
			Schema:      gaugeSchema(),
		},
		{
			Type:        WidgetCard,
			Name:        "Metric Card",
			Description: "Show a key value with optional trend",
			Icon:        "assessment",
			Category:    "Indicators",
			Schema:      cardSchema(),
		},
	}
}

func chartSchema(extra map[string]any) map[string]any {
	props := map[string]any{
		"scheme": map[string]any{
			"oneOf": []any{
				map[string]any{"type": "string"},
				map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":   map[string]any{"type": "string"},
						"domain": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
				},
			},
		},
		"schemeType":     map[string]any{"type": "string", "enum": []string{"ordinal", "linear"}},
		"animations":     map[string]any{"type": "boolean"},
		"legend":         map[string]any{"type": "boolean"},
		"legendPosition": map[string]any{"type": "string", "enum": []string{"right", "below"}},
		"showXAxisLabel": map[string]any{"type": "boolean"},
		"showYAxisLabel": map[string]any{"type": "boolean"},
		"xAxisLabel":     map[string]any{"type": "string"},
		"yAxisLabel":     map[string]any{"type": "string"},
		"showGridLines":  map[string]any{"type": "boolean"},
		"gradient":       map[string]any{"type": "boolean"},
		"roundDomains":   map[string]any{"type": "boolean"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]any{"type": "object", "properties": props}
}

func lineChartSchema() map[string]any {
	return chartSchema(map[string]any{
		"curve":            map[string]any{"type": "string", "enum": CurveTypes()},
		"autoScale":        map[string]any{"type": "boolean"},
		"timeline":         map[string]any{"type": "boolean"},
		"rangeFillOpacity": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
	})
}

func barChartSchema() map[string]any {
	return chartSchema(map[string]any{
		"barPadding":    map[string]any{"type": "number", "minimum": 0},
		"groupPadding":  map[string]any{"type": "number", "minimum": 0},
		"showDataLabel": map[string]any{"type": "boolean"},
		"noBarWhenZero": map[string]any{"type": "boolean"},
	})
}

func pieChartSchema() map[string]any {
	return chartSchema(map[string]any{
		"doughnut":      map[string]any{"type": "boolean"},
		"arcWidth":      map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"explodeSlices": map[string]any{"type": "boolean"},
		"labels":        map[string]any{"type": "boolean"},
	})
}

func gaugeSchema() map[string]any {
	return chartSchema(map[string]any{
		"min":           map[string]any{"type": "number"},
		"max":           map[string]any{"type": "number"},
		"units":         map[string]any{"type": "string"},
		"angleSpan":     map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 360},
		"startAngle":    map[string]any{"type": "number", "minimum": -360, "maximum": 360},
		"showAxis":      map[string]any{"type": "boolean"},
		"bigSegments":   map[string]any{"type": "integer", "minimum": 1},
		"smallSegments": map[string]any{"type": "integer", "minimum": 0},
	})
}

func cardSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"icon":      map[string]any{"type": "string"},
			"color":     map[string]any{"type": "string"},
			"textColor": map[string]any{"type": "string"},
			"decimals":  map[string]any{"type": "integer", "minimum": 0, "maximum": 10},
			"units":     map[string]any{"type": "string"},
		},
	}
}
