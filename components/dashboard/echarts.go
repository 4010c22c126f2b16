package dashboard

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "360px"

// ChartRenderer turns widget views into go-echarts HTML fragments.
type ChartRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
}

// ChartOption customizes a ChartRenderer.
type ChartOption func(*ChartRenderer)

// WithChartCache injects a render cache.
func WithChartCache(cache RenderCache) ChartOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the ECharts theme (defaults to Westeros).
func WithChartTheme(theme string) ChartOption {
	return func(r *ChartRenderer) {
		if theme != "" {
			r.theme = theme
		}
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) ChartOption {
	return func(r *ChartRenderer) {
		r.assetsHost = host
	}
}

// NewChartRenderer builds a renderer with a five minute cache.
func NewChartRenderer(options ...ChartOption) *ChartRenderer {
	r := &ChartRenderer{
		cache: NewChartCache(5 * time.Minute),
		theme: types.ThemeWesteros,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// RenderHTML draws the view at the given container size. Cards have no chart
// and yield an empty string.
func (r *ChartRenderer) RenderHTML(w Widget, view View, size Size) (string, error) {
	if view == nil {
		return "", nil
	}
	if _, ok := view.(CardView); ok {
		return "", nil
	}
	render := func() (string, error) { return r.render(w.Title, view, size) }
	if r.cache == nil {
		return render()
	}
	return r.cache.GetOrRender(w.ID+":"+size.String(), w.Title+"|"+viewHash(view), render)
}

// Forget evicts cached markup of a widget that left the canvas.
func (r *ChartRenderer) Forget(widgetID string) {
	if r == nil {
		return
	}
	if f, ok := r.cache.(interface{ Forget(string) }); ok {
		f.Forget(widgetID)
	}
}

func (r *ChartRenderer) render(title string, view View, size Size) (string, error) {
	switch v := view.(type) {
	case LineView:
		return r.renderLine(title, v, size)
	case CategoryView:
		if v.Pie != nil {
			return r.renderPie(title, v, size)
		}
		return r.renderBar(title, v, size)
	case GaugeView:
		return r.renderGauge(title, v, size)
	default:
		return "", fmt.Errorf("dashboard: unsupported chart view %T", view)
	}
}

func (r *ChartRenderer) renderLine(title string, v LineView, size Size) (string, error) {
	cfg := v.Config
	line := charts.NewLine()
	line.SetGlobalOptions(r.globalOptions(title, cfg.ChartConfig, size)...)
	line.SetGlobalOptions(
		charts.WithXAxisOpts(axisOpts(cfg.XAxis, cfg.ShowXAxisLabel, cfg.XAxisLabel, false, cfg.ShowGridLines)),
		charts.WithYAxisOpts(yAxisOpts(cfg.YAxis, cfg.ShowYAxisLabel, cfg.YAxisLabel, cfg.AutoScale, cfg.ShowGridLines)),
	)
	var labels []string
	if len(v.Series) > 0 {
		for _, p := range v.Series[0].Points {
			labels = append(labels, p.Timestamp.Format("15:04"))
		}
	}
	line.SetXAxis(labels)
	for _, s := range v.Series {
		data := make([]opts.LineData, 0, len(s.Points))
		for _, p := range s.Points {
			data = append(data, opts.LineData{Name: p.Timestamp.Format(time.RFC3339), Value: p.Value})
		}
		line.AddSeries(s.Name, data)
	}
	line.SetSeriesOptions(charts.WithLineChartOpts(lineCurve(cfg.Curve)))
	return renderChart(line)
}

func lineCurve(curve string) opts.LineChart {
	switch curve {
	case "step":
		return opts.LineChart{Step: "middle"}
	case "stepAfter":
		return opts.LineChart{Step: "end"}
	case "stepBefore":
		return opts.LineChart{Step: "start"}
	case "monotoneX", "monotoneY", "basis", "cardinal", "catmullRom":
		return opts.LineChart{Smooth: opts.Bool(true)}
	}
	return opts.LineChart{Smooth: opts.Bool(false)}
}

func (r *ChartRenderer) renderBar(title string, v CategoryView, size Size) (string, error) {
	cfg := BarChartConfig{}
	if v.Bar != nil {
		cfg = *v.Bar
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(r.globalOptions(title, cfg.ChartConfig, size)...)
	bar.SetGlobalOptions(
		charts.WithXAxisOpts(axisOpts(cfg.XAxis, cfg.ShowXAxisLabel, cfg.XAxisLabel, false, false)),
		charts.WithYAxisOpts(yAxisOpts(cfg.YAxis, cfg.ShowYAxisLabel, cfg.YAxisLabel, false, cfg.ShowGridLines)),
	)
	names := make([]string, 0, len(v.Items))
	data := make([]opts.BarData, 0, len(v.Items))
	for _, item := range v.Items {
		if cfg.NoBarWhenZero && item.Value == 0 {
			continue
		}
		names = append(names, item.Name)
		data = append(data, opts.BarData{Name: item.Name, Value: item.Value})
	}
	bar.SetXAxis(names)
	bar.AddSeries(title, data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(cfg.ShowDataLabel)}),
		charts.WithBarChartOpts(opts.BarChart{BarCategoryGap: strconv.Itoa(int(cfg.BarPadding)) + "%"}),
	)
	return renderChart(bar)
}

func (r *ChartRenderer) renderPie(title string, v CategoryView, size Size) (string, error) {
	cfg := *v.Pie
	pie := charts.NewPie()
	pie.SetGlobalOptions(r.globalOptions(title, cfg.ChartConfig, size)...)
	data := make([]opts.PieData, 0, len(v.Items))
	for _, item := range v.Items {
		data = append(data, opts.PieData{Name: item.Name, Value: item.Value})
	}
	pieOpts := opts.PieChart{Radius: "75%"}
	if cfg.Doughnut {
		pieOpts.Radius = []string{"45%", "75%"}
	}
	if cfg.ExplodeSlices {
		pieOpts.RoseType = "radius"
	}
	pie.AddSeries(title, data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(cfg.Labels)}),
		charts.WithPieChartOpts(pieOpts),
	)
	return renderChart(pie)
}

func (r *ChartRenderer) renderGauge(title string, v GaugeView, size Size) (string, error) {
	gauge := charts.NewGauge()
	gauge.SetGlobalOptions(r.globalOptions(title, v.Config.ChartConfig, size)...)
	gauge.AddSeries(title, []opts.GaugeData{
		{Name: v.Config.Units, Value: v.Value},
	})
	return renderChart(gauge)
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *ChartRenderer) globalOptions(title string, cfg ChartConfig, size Size) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  r.theme,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if size.Width > 0 && size.Height > 0 {
		initOpts.Width = strconv.Itoa(size.Width) + "px"
		initOpts.Height = strconv.Itoa(size.Height) + "px"
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	legend := opts.Legend{Show: opts.Bool(cfg.Legend)}
	if cfg.LegendPosition == "below" {
		legend.Bottom = "0"
	} else {
		legend.Right = "0"
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(legend),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(!cfg.TooltipDisabled)}),
		charts.WithColorsOpts(opts.Colors(cfg.Colors())),
		charts.WithAnimation(cfg.Animations),
	}
}

func axisOpts(show, showLabel bool, label string, scale, grid bool) opts.XAxis {
	axis := opts.XAxis{
		Show:      opts.Bool(show),
		Scale:     opts.Bool(scale),
		SplitLine: &opts.SplitLine{Show: opts.Bool(grid)},
	}
	if showLabel {
		axis.Name = label
	}
	return axis
}

func yAxisOpts(show, showLabel bool, label string, scale, grid bool) opts.YAxis {
	axis := opts.YAxis{
		Show:      opts.Bool(show),
		Scale:     opts.Bool(scale),
		SplitLine: &opts.SplitLine{Show: opts.Bool(grid)},
	}
	if showLabel {
		axis.Name = label
	}
	return axis
}
