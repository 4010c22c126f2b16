package dashboard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
version: "1"
name: plant
widgets:
  - type: gauge
    name: Dial
    icon: timer
    category: Dials
  - type: card
    name: KPI
`

func TestDecodeManifest(t *testing.T) {
	doc, err := DecodeManifest(strings.NewReader(sampleManifest))
	require.NoError(t, err)
	assert.Equal(t, ManifestVersion, doc.Version)
	assert.Len(t, doc.Widgets, 2)

	doc, err = DecodeManifest(strings.NewReader("widgets:\n  - type: card\n    name: KPI\n"))
	require.NoError(t, err)
	assert.Equal(t, "1", doc.Version)
}

func TestDecodeManifestRejects(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"unknown field": "version: \"1\"\nwidgets: []\nlayout: grid\n",
		"version":       "version: \"2\"\nwidgets: []\n",
		"missing type":  "widgets:\n  - name: X\n",
		"unknown type":  "widgets:\n  - type: map\n    name: X\n",
		"missing name":  "widgets:\n  - type: card\n",
		"duplicate":     "widgets:\n  - type: card\n    name: A\n  - type: card\n    name: B\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeManifest(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestRegistryLoadManifestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o600))

	reg := NewRegistry()
	doc, err := reg.LoadManifestFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)

	def, ok := reg.Definition(WidgetGauge)
	require.True(t, ok)
	assert.Equal(t, "Dial", def.Name)
	assert.Equal(t, "timer", def.Icon)
	assert.Equal(t, "Display a value within a range", def.Description)
	assert.NotEmpty(t, def.Schema)

	var names []string
	for _, group := range reg.Palette() {
		names = append(names, group.Name)
	}
	assert.Contains(t, names, "Dials")

	_, err = reg.LoadManifestFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Error(t, reg.LoadManifest(nil))
}
