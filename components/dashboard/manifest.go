package dashboard

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current palette manifest version for tooling.
	ManifestVersion = manifestVersionV1
)

// PaletteManifest customizes palette entries (labels, icons, grouping) from YAML.
type PaletteManifest struct {
	Version string          `yaml:"version"`
	Name    string          `yaml:"name,omitempty"`
	Widgets []PaletteWidget `yaml:"widgets"`
	Source  string          `yaml:"-"`
}

// PaletteWidget overrides one widget definition.
type PaletteWidget struct {
	Type        string         `yaml:"type"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Icon        string         `yaml:"icon,omitempty"`
	Category    string         `yaml:"category,omitempty"`
	Schema      map[string]any `yaml:"schema,omitempty"`
}

// LoadManifestFile reads a palette manifest from disk and applies it.
func (r *Registry) LoadManifestFile(path string) (*PaletteManifest, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := r.LoadManifest(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadManifest applies the manifest entries on top of the current definitions.
func (r *Registry) LoadManifest(doc *PaletteManifest) error {
	if doc == nil {
		return fmt.Errorf("dashboard: manifest document is nil")
	}
	for _, entry := range doc.Widgets {
		t, err := ParseWidgetType(entry.Type)
		if err != nil {
			return fmt.Errorf("dashboard: manifest %s: %w", doc.Source, err)
		}
		def, _ := r.Definition(t)
		def.Type = t
		def.Name = entry.Name
		if entry.Description != "" {
			def.Description = entry.Description
		}
		if entry.Icon != "" {
			def.Icon = entry.Icon
		}
		if entry.Category != "" {
			def.Category = entry.Category
		}
		if entry.Schema != nil {
			def.Schema = entry.Schema
		}
		if err := r.RegisterDefinition(def); err != nil {
			return fmt.Errorf("dashboard: register widget %s from %s: %w", t, doc.Source, err)
		}
	}
	return nil
}

// ReadManifest loads a manifest file from disk without applying it.
func ReadManifest(path string) (*PaletteManifest, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashboard: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("dashboard: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader.
func DecodeManifest(r io.Reader) (*PaletteManifest, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc PaletteManifest
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("dashboard: manifest is empty")
		}
		return nil, fmt.Errorf("dashboard: parse manifest: %w", err)
	}
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate ensures the manifest satisfies required fields.
func (doc *PaletteManifest) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("dashboard: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[WidgetType]struct{}, len(doc.Widgets))
	for idx, widget := range doc.Widgets {
		if widget.Type == "" {
			return fmt.Errorf("dashboard: manifest widget at index %d is missing type", idx)
		}
		t, err := ParseWidgetType(widget.Type)
		if err != nil {
			return fmt.Errorf("dashboard: manifest widget at index %d: %w", idx, err)
		}
		if widget.Name == "" {
			return fmt.Errorf("dashboard: manifest widget %s missing name", t)
		}
		if _, exists := seen[t]; exists {
			return fmt.Errorf("dashboard: manifest duplicates widget type %s", t)
		}
		seen[t] = struct{}{}
	}
	return nil
}
