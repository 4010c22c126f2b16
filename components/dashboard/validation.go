package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ConfigValidator validates widget configuration against its definition schema.
type ConfigValidator interface {
	ValidateWidget(w Widget) error
}

// JSONSchemaValidator compiles definition schemas and validates widget configs.
type JSONSchemaValidator struct {
	defs     DefinitionSource
	mu       sync.RWMutex
	compiled map[WidgetType]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator backed by jsonschema v5.
func NewJSONSchemaValidator(defs DefinitionSource) *JSONSchemaValidator {
	if defs == nil {
		defs = NewRegistry()
	}
	return &JSONSchemaValidator{
		defs:     defs,
		compiled: make(map[WidgetType]*jsonschema.Schema),
	}
}

// ValidateWidget checks the widget config against its schema plus the range
// rules a schema cannot express.
func (v *JSONSchemaValidator) ValidateWidget(w Widget) error {
	if !w.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownWidgetType, w.Type)
	}
	if w.Config != nil && w.Config.WidgetType() != w.Type {
		return fmt.Errorf("%w: widget %s has %s config for type %s", ErrInvalidWidgetConfig, w.ID, w.Config.WidgetType(), w.Type)
	}
	if gauge, ok := w.Config.(*GaugeConfig); ok && gauge.Max <= gauge.Min {
		return fmt.Errorf("%w: gauge %s max must be greater than min", ErrInvalidWidgetConfig, w.ID)
	}
	def, ok := v.defs.Definition(w.Type)
	if !ok || len(def.Schema) == 0 || w.Config == nil {
		return nil
	}
	schema, err := v.schemaFor(def)
	if err != nil {
		return err
	}
	data, err := json.Marshal(w.Config)
	if err != nil {
		return fmt.Errorf("dashboard: marshal config for %s: %w", w.ID, err)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("dashboard: normalize config for %s: %w", w.ID, err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: widget %s: %w", ErrInvalidWidgetConfig, w.ID, err)
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(def WidgetDefinition) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[def.Type]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	data, err := json.Marshal(def.Schema)
	if err != nil {
		return nil, fmt.Errorf("dashboard: marshal schema %s: %w", def.Type, err)
	}
	compiler := jsonschema.NewCompiler()
	name := string(def.Type) + ".json"
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("dashboard: load schema %s: %w", def.Type, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("dashboard: compile schema %s: %w", def.Type, err)
	}
	v.mu.Lock()
	v.compiled[def.Type] = compiled
	v.mu.Unlock()
	return compiled, nil
}

type noopConfigValidator struct{}

func (noopConfigValidator) ValidateWidget(Widget) error { return nil }
