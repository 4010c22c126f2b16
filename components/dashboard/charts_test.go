package dashboard

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartCacheStoresEntry(t *testing.T) {
	cache := NewChartCache(time.Minute)
	calls := 0
	render := func() (string, error) {
		calls++
		return "html", nil
	}

	val1, err := cache.GetOrRender("key", "v1", render)
	require.NoError(t, err)
	val2, err := cache.GetOrRender("key", "v1", render)
	require.NoError(t, err)

	assert.Equal(t, "html", val1)
	assert.Equal(t, val1, val2)
	assert.Equal(t, 1, calls)
}

func TestChartCacheExpires(t *testing.T) {
	cache := NewChartCache(2 * time.Millisecond)
	calls := 0
	render := func() (string, error) {
		calls++
		return "fresh", nil
	}

	_, err := cache.GetOrRender("key", "v1", render)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = cache.GetOrRender("key", "v1", render)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

type countingCache struct {
	keys     []string
	versions []string
}

func (c *countingCache) GetOrRender(key, version string, render func() (string, error)) (string, error) {
	c.keys = append(c.keys, key)
	c.versions = append(c.versions, version)
	return render()
}

func renderView(t *testing.T, r *ChartRenderer, w Widget, src []Series) (View, string) {
	t.Helper()
	view, err := registryRenderer{reg: NewRegistry()}.Render(w, src)
	require.NoError(t, err)
	html, err := r.RenderHTML(w, view, Size{Width: 480, Height: 320})
	require.NoError(t, err)
	return view, html
}

func TestChartRendererDrawsEachChartType(t *testing.T) {
	r := NewChartRenderer(WithChartCache(nil))
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	line := boundWidget(WidgetLineChart, "line")
	line.Title = "Flow"
	_, html := renderView(t, r, line, []Series{timeSeries("flow", start, 1, 2, 3)})
	assert.Contains(t, html, "Flow")
	assert.Contains(t, html, "480px")

	bar := boundWidget(WidgetBarChart, "bar")
	_, html = renderView(t, r, bar, []Series{{Name: "Zone A", Value: 4}, {Name: "Zone B", Value: 6}})
	assert.Contains(t, html, "Zone B")

	pie := boundWidget(WidgetPieChart, "pie")
	_, html = renderView(t, r, pie, []Series{{Name: "Lighting", Value: 30}, {Name: "HVAC", Value: 70}})
	assert.Contains(t, html, "HVAC")

	gauge := boundWidget(WidgetGauge, "gauge")
	gauge.Title = "Efficiency"
	_, html = renderView(t, r, gauge, []Series{{Name: "efficiency", Value: 72}})
	assert.Contains(t, html, "Efficiency")
}

func TestChartRendererSkipsCards(t *testing.T) {
	r := NewChartRenderer()
	card := boundWidget(WidgetCard, "card")
	view, html := renderView(t, r, card, []Series{{Name: "power", Value: 12}})
	assert.IsType(t, CardView{}, view)
	assert.Empty(t, html)

	html, err := r.RenderHTML(card, nil, Size{})
	require.NoError(t, err)
	assert.Empty(t, html)
}

func TestChartRendererAssetsHostAndCacheKey(t *testing.T) {
	cache := &countingCache{}
	r := NewChartRenderer(
		WithChartCache(cache),
		WithChartAssetsHost("https://cdn.example.com/echarts/"),
		WithChartTheme(""),
	)
	gauge := boundWidget(WidgetGauge, "g1")
	view, html := renderView(t, r, gauge, []Series{{Name: "efficiency", Value: 40}})
	assert.Contains(t, html, "https://cdn.example.com/echarts/")

	require.Len(t, cache.keys, 1)
	assert.Equal(t, "g1:480x320", cache.keys[0])
	assert.True(t, strings.HasSuffix(cache.versions[0], viewHash(view)))
}

func TestChartCacheReplacesFramesPerWidget(t *testing.T) {
	cache := NewChartCache(time.Millisecond)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	r := NewChartRenderer(WithChartCache(cache))
	gauge := boundWidget(WidgetGauge, "g1")

	for i := 0; i < 500; i++ {
		renderView(t, r, gauge, []Series{{Name: "efficiency", Value: float64(i % 100)}})
		now = now.Add(10 * time.Microsecond)
	}
	assert.Equal(t, 1, cache.Len())

	calls := 0
	render := func() (string, error) { calls++; return "html", nil }
	for i := 0; i < 50; i++ {
		_, err := cache.GetOrRender(fmt.Sprintf("w%d:1x1", i), "v", render)
		require.NoError(t, err)
	}
	now = now.Add(time.Second)
	_, err := cache.GetOrRender("w-last:1x1", "v", render)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	_, err = cache.GetOrRender("w-last:1x1", "v", render)
	require.NoError(t, err)
	_, err = cache.GetOrRender("w-last:1x1", "v2", render)
	require.NoError(t, err)
	assert.Equal(t, 52, calls)
}

func TestChartCacheForgetAndErrors(t *testing.T) {
	cache := NewChartCache(time.Minute)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ok := func() (string, error) { return "html", nil }

	for _, key := range []string{"w1:10x10", "w1:20x20", "w10:10x10"} {
		_, err := cache.GetOrRender(key, "a", ok)
		require.NoError(t, err)
	}
	cache.Forget("w1")
	assert.Equal(t, 1, cache.Len())

	_, err := cache.GetOrRender("w2:1x1", "a", func() (string, error) { return "", assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, cache.Len())

	now = now.Add(2 * time.Minute)
	calls := 0
	_, err = cache.GetOrRender("w10:10x10", "a", func() (string, error) { calls++; return "new", nil })
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
