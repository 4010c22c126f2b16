package dashboard

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ExportYAML renders a dashboard as YAML using the same field names as the
// stored JSON document.
func ExportYAML(d Dashboard) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("dashboard: encode %s: %w", d.ID, err)
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("dashboard: encode %s: %w", d.ID, err)
	}
	out, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("dashboard: encode %s as yaml: %w", d.ID, err)
	}
	return out, nil
}

// ImportYAML parses a dashboard produced by ExportYAML (or written by hand).
func ImportYAML(data []byte) (Dashboard, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: parse yaml: %w", err)
	}
	raw, err := json.Marshal(tree)
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: normalize yaml: %w", err)
	}
	d := NewDashboard()
	if err := json.Unmarshal(raw, &d); err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: decode dashboard: %w", err)
	}
	if d.Widgets == nil {
		d.Widgets = []Widget{}
	}
	return d, d.Validate()
}
