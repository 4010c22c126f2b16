package telemetry

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

const (
	defaultUpdateInterval = 2 * time.Second
	linePoints            = 30
	cardPoints            = 10
	gaugeTarget           = 75.0
)

// SyntheticOptions configures the synthetic stream generator.
type SyntheticOptions struct {
	Interval time.Duration
	Seed     uint64
	Now      func() time.Time
	Logger   *zap.Logger
}

// Synthetic generates demo data for widgets that have no data source yet. Each
// widget id owns one stream, advanced by a shared cron scheduler.
type Synthetic struct {
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	sched    *cron.Cron

	mu      sync.Mutex
	rng     *rand.Rand
	streams map[string]*stream
	closed  bool
}

type stream struct {
	widgetType dashboard.WidgetType
	frame      []dashboard.Series
	entry      cron.EntryID
	subs       map[int]chan []dashboard.Series
	next       int
}

var _ dashboard.LiveSource = (*Synthetic)(nil)

// NewSynthetic builds and starts the generator.
func NewSynthetic(opts SyntheticOptions) *Synthetic {
	if opts.Interval <= 0 {
		opts.Interval = defaultUpdateInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	s := &Synthetic{
		interval: opts.Interval,
		now:      opts.Now,
		logger:   opts.Logger,
		sched:    cron.New(),
		rng:      rand.New(rand.NewPCG(seed, ^seed)),
		streams:  map[string]*stream{},
	}
	s.sched.Start()
	return s
}

// Subscribe attaches to the stream of widgetID, creating it on first use. The
// current frame is delivered immediately. Slow subscribers only see the latest
// frame.
func (s *Synthetic) Subscribe(ctx context.Context, widgetID string, t dashboard.WidgetType) (<-chan []dashboard.Series, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, fmt.Errorf("telemetry: synthetic source closed")
	}
	st, ok := s.streams[widgetID]
	if !ok {
		entry, err := s.sched.AddFunc(fmt.Sprintf("@every %s", s.interval), func() { s.Advance(widgetID) })
		if err != nil {
			return nil, nil, fmt.Errorf("telemetry: schedule stream %s: %w", widgetID, err)
		}
		st = &stream{
			widgetType: t,
			frame:      s.initialFrame(t),
			entry:      entry,
			subs:       map[int]chan []dashboard.Series{},
		}
		s.streams[widgetID] = st
		s.logger.Debug("synthetic stream started", zap.String("widget_id", widgetID), zap.String("type", string(t)))
	}

	id := st.next
	st.next++
	ch := make(chan []dashboard.Series, 1)
	ch <- copyFrame(st.frame)
	st.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if cur, ok := s.streams[widgetID]; ok && cur == st {
				if sub, ok := st.subs[id]; ok {
					delete(st.subs, id)
					close(sub)
				}
			}
		})
	}
	return ch, cancel, nil
}

// Stop discards the stream of widgetID and closes its subscribers.
func (s *Synthetic) Stop(widgetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[widgetID]
	if !ok {
		return
	}
	s.sched.Remove(st.entry)
	delete(s.streams, widgetID)
	for id, sub := range st.subs {
		delete(st.subs, id)
		close(sub)
	}
	s.logger.Debug("synthetic stream stopped", zap.String("widget_id", widgetID))
}

// Advance moves the stream of widgetID one step and publishes the new frame.
// The scheduler calls it every interval.
func (s *Synthetic) Advance(widgetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[widgetID]
	if !ok {
		return
	}
	st.frame = s.nextFrame(st.widgetType, st.frame)
	for _, sub := range st.subs {
		frame := copyFrame(st.frame)
		select {
		case sub <- frame:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- frame:
			default:
			}
		}
	}
}

// Streams reports the number of live streams.
func (s *Synthetic) Streams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// Scheduled reports the number of cron entries driving streams.
func (s *Synthetic) Scheduled() int {
	return len(s.sched.Entries())
}

// Close stops the scheduler and every stream.
func (s *Synthetic) Close() {
	stopCtx := s.sched.Stop()
	<-stopCtx.Done()
	s.mu.Lock()
	ids := make([]string, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}
	s.closed = true
	s.mu.Unlock()
	for _, id := range ids {
		s.Stop(id)
	}
}

type lineSpec struct {
	name      string
	base      float64
	amplitude float64
	frequency float64
	noise     float64
}

var lineSpecs = []lineSpec{
	{name: "Flow Rate", base: 50, amplitude: 10, frequency: 0.2, noise: 5},
	{name: "Pressure", base: 4, amplitude: 1, frequency: 0.1, noise: 0.5},
	{name: "Temperature", base: 25, amplitude: 5, frequency: 0.15, noise: 1},
}

func lineSpecFor(name string) lineSpec {
	for _, spec := range lineSpecs {
		if spec.name == name {
			return spec
		}
	}
	return lineSpec{name: name, base: 50, amplitude: 10, frequency: 0.2, noise: 5}
}

var barCategories = []struct {
	name string
	base float64
}{
	{"System A", 65}, {"System B", 48}, {"System C", 72}, {"System D", 53}, {"System E", 39},
}

var pieSlices = []struct {
	name string
	base float64
}{
	{"Heating", 35}, {"Cooling", 25}, {"Ventilation", 15}, {"Water", 20}, {"Other", 5},
}

// noise returns a uniform value in [-span/2, span/2).
func (s *Synthetic) noise(span float64) float64 {
	return (s.rng.Float64() - 0.5) * span
}

func (s *Synthetic) initialFrame(t dashboard.WidgetType) []dashboard.Series {
	now := s.now()
	switch t {
	case dashboard.WidgetBarChart:
		out := make([]dashboard.Series, len(barCategories))
		for i, c := range barCategories {
			out[i] = dashboard.Series{Name: c.name, Value: c.base + s.rng.Float64()*10}
		}
		return out
	case dashboard.WidgetPieChart:
		out := make([]dashboard.Series, len(pieSlices))
		for i, p := range pieSlices {
			out[i] = dashboard.Series{Name: p.name, Value: p.base + s.rng.Float64()*5}
		}
		return out
	case dashboard.WidgetGauge:
		return []dashboard.Series{{Name: "Value", Value: 65 + s.rng.Float64()*10}}
	case dashboard.WidgetCard:
		return []dashboard.Series{s.cardSeries(now)}
	}
	out := make([]dashboard.Series, len(lineSpecs))
	for i, spec := range lineSpecs {
		points := make([]dashboard.Point, linePoints)
		for j := range points {
			value := spec.base + spec.amplitude*math.Sin(float64(j)*spec.frequency) + s.noise(spec.noise)
			points[j] = dashboard.Point{
				Timestamp: now.Add(-time.Duration(linePoints-j-1) * time.Minute),
				Value:     math.Max(0, value),
			}
		}
		out[i] = dashboard.Series{Name: spec.name, Points: points}
	}
	return out
}

func (s *Synthetic) cardSeries(now time.Time) dashboard.Series {
	points := make([]dashboard.Point, cardPoints)
	for i := range points {
		points[i] = dashboard.Point{
			Timestamp: now.Add(-time.Duration(cardPoints-i-1) * time.Minute),
			Value:     math.Max(0, 75+s.noise(10)),
		}
	}
	return dashboard.Series{Name: "Efficiency", Points: points}
}

func (s *Synthetic) nextFrame(t dashboard.WidgetType, frame []dashboard.Series) []dashboard.Series {
	now := s.now()
	switch t {
	case dashboard.WidgetBarChart:
		return s.jitter(frame, 5)
	case dashboard.WidgetPieChart:
		return s.jitter(frame, 2)
	case dashboard.WidgetGauge:
		current := gaugeTarget
		if len(frame) > 0 {
			current = frame[0].Value
		}
		next := current + (gaugeTarget-current)*0.1 + s.noise(5)
		return []dashboard.Series{{Name: "Value", Value: math.Max(0, math.Min(100, next))}}
	case dashboard.WidgetCard:
		if len(frame) == 0 || len(frame[0].Points) == 0 {
			return []dashboard.Series{s.cardSeries(now)}
		}
		card := frame[0]
		next := math.Max(0, card.Latest()+s.noise(3))
		return []dashboard.Series{{Name: card.Name, Points: shift(card.Points, dashboard.Point{Timestamp: now, Value: next})}}
	}
	out := make([]dashboard.Series, len(frame))
	for i, series := range frame {
		spec := lineSpecFor(series.Name)
		n := float64(len(series.Points))
		theoretical := spec.base + spec.amplitude*math.Sin(n*spec.frequency)
		next := 0.7*series.Latest() + 0.3*(theoretical+s.noise(spec.noise))
		out[i] = dashboard.Series{
			Name:   series.Name,
			Points: shift(series.Points, dashboard.Point{Timestamp: now, Value: math.Max(0, next)}),
		}
	}
	return out
}

func (s *Synthetic) jitter(frame []dashboard.Series, span float64) []dashboard.Series {
	out := make([]dashboard.Series, len(frame))
	for i, item := range frame {
		out[i] = dashboard.Series{Name: item.Name, Value: math.Max(0, item.Value+s.noise(span))}
	}
	return out
}

// shift drops the oldest point and appends p, keeping the window length.
func shift(points []dashboard.Point, p dashboard.Point) []dashboard.Point {
	out := make([]dashboard.Point, 0, len(points))
	if len(points) > 0 {
		out = append(out, points[1:]...)
	}
	return append(out, p)
}

func copyFrame(in []dashboard.Series) []dashboard.Series {
	out := make([]dashboard.Series, len(in))
	for i, s := range in {
		out[i] = s
		if s.Points != nil {
			out[i].Points = append([]dashboard.Point(nil), s.Points...)
		}
	}
	return out
}
