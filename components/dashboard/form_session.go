package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// EditorMode is where the property form is shown.
type EditorMode string

const (
	EditorInline EditorMode = "inline"
	EditorDialog EditorMode = "dialog"
)

var (
	ErrUnknownEntity   = errors.New("dashboard: entity not in catalog")
	ErrUnknownMetric   = errors.New("dashboard: metric not offered by device")
	errNoCatalogSource = errors.New("dashboard: catalog source not configured")
)

// FormOptions are the picker contents for the current selection.
type FormOptions struct {
	Facilities []Facility `json:"facilities"`
	Systems    []System   `json:"systems"`
	Devices    []Device   `json:"devices"`
	Metrics    []Metric   `json:"metrics"`
}

// FormSession edits one widget. It owns the cascading entity pickers so that
// choosing a parent always clears its descendants.
type FormSession struct {
	mu      sync.Mutex
	mode    EditorMode
	catalog CatalogSource
	prior   Widget
	form    WidgetForm
	options FormOptions
}

// OpenFormSession loads the form for w along with the picker lists for its
// current selection. Existing selections are kept as-is.
func OpenFormSession(ctx context.Context, catalog CatalogSource, w Widget, mode EditorMode) (*FormSession, error) {
	if catalog == nil {
		return nil, errNoCatalogSource
	}
	if mode == "" {
		mode = EditorInline
	}
	s := &FormSession{
		mode:    mode,
		catalog: catalog,
		prior:   w.Clone(),
		form:    FormFromWidget(w),
	}
	facilities, err := catalog.Facilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: load facilities: %w", err)
	}
	s.options.Facilities = facilities

	ds := s.form.DataSource
	if ds.FacilityID != "" {
		if s.options.Systems, err = catalog.Systems(ctx, ds.FacilityID); err != nil {
			return nil, fmt.Errorf("dashboard: load systems: %w", err)
		}
	}
	if ds.SystemID != "" {
		if s.options.Devices, err = catalog.Devices(ctx, ds.SystemID); err != nil {
			return nil, fmt.Errorf("dashboard: load devices: %w", err)
		}
	}
	if ds.DeviceID != "" {
		if s.options.Metrics, err = catalog.Metrics(ctx, ds.DeviceID); err != nil {
			return nil, fmt.Errorf("dashboard: load metrics: %w", err)
		}
	}
	return s, nil
}

// Mode reports where the session is shown.
func (s *FormSession) Mode() EditorMode { return s.mode }

// WidgetID is the id of the widget being edited.
func (s *FormSession) WidgetID() string { return s.prior.ID }

// Form returns a copy of the current field values.
func (s *FormSession) Form() WidgetForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.form
	out.DataSource.Metrics = cloneStrings(s.form.DataSource.Metrics)
	out.Visualization.Scheme = s.form.Visualization.Scheme.clone()
	return out
}

// Options returns the current picker lists.
func (s *FormSession) Options() FormOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FormOptions{
		Facilities: slices.Clone(s.options.Facilities),
		Systems:    slices.Clone(s.options.Systems),
		Devices:    slices.Clone(s.options.Devices),
		Metrics:    slices.Clone(s.options.Metrics),
	}
}

// Edit applies fn to the non-cascading fields. The data source selection is
// restored afterwards; use the Select methods to change it.
func (s *FormSession) Edit(fn func(*WidgetForm)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds := s.form.DataSource
	fn(&s.form)
	s.form.Type = s.prior.Type
	s.form.DataSource = ds
}

// SelectFacility picks a facility, clears system, device and metrics, and
// loads the facility's systems. An empty id only clears.
func (s *FormSession) SelectFacility(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && !slices.ContainsFunc(s.options.Facilities, func(f Facility) bool { return f.ID == id }) {
		return fmt.Errorf("%w: facility %s", ErrUnknownEntity, id)
	}
	var systems []System
	if id != "" {
		var err error
		if systems, err = s.catalog.Systems(ctx, id); err != nil {
			return fmt.Errorf("dashboard: load systems: %w", err)
		}
	}
	s.form.DataSource = DataSourceSettings{FacilityID: id, Metrics: []string{}}
	s.options.Systems = systems
	s.options.Devices = nil
	s.options.Metrics = nil
	return nil
}

// SelectSystem picks a system, clears device and metrics, and loads devices.
func (s *FormSession) SelectSystem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && !slices.ContainsFunc(s.options.Systems, func(sys System) bool { return sys.ID == id }) {
		return fmt.Errorf("%w: system %s", ErrUnknownEntity, id)
	}
	var devices []Device
	if id != "" {
		var err error
		if devices, err = s.catalog.Devices(ctx, id); err != nil {
			return fmt.Errorf("dashboard: load devices: %w", err)
		}
	}
	s.form.DataSource.SystemID = id
	s.form.DataSource.DeviceID = ""
	s.form.DataSource.Metrics = []string{}
	s.options.Devices = devices
	s.options.Metrics = nil
	return nil
}

// SelectDevice picks a device, clears metrics, and loads the device's metrics.
func (s *FormSession) SelectDevice(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && !slices.ContainsFunc(s.options.Devices, func(d Device) bool { return d.ID == id }) {
		return fmt.Errorf("%w: device %s", ErrUnknownEntity, id)
	}
	var metrics []Metric
	if id != "" {
		var err error
		if metrics, err = s.catalog.Metrics(ctx, id); err != nil {
			return fmt.Errorf("dashboard: load metrics: %w", err)
		}
	}
	s.form.DataSource.DeviceID = id
	s.form.DataSource.Metrics = []string{}
	s.options.Metrics = metrics
	return nil
}

// SetMetrics replaces the metric selection. Every id must be offered by the
// selected device.
func (s *FormSession) SetMetrics(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if !slices.ContainsFunc(s.options.Metrics, func(m Metric) bool { return m.ID == id }) {
			return fmt.Errorf("%w: %s", ErrUnknownMetric, id)
		}
	}
	s.form.DataSource.Metrics = append([]string{}, ids...)
	return nil
}

// SetUseGlobalTime toggles between the dashboard time and the custom range.
func (s *FormSession) SetUseGlobalTime(use bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.TimeSettings.UseGlobalTime = use
}

// SetCustomRange stores the custom range. It only takes effect while the
// widget does not follow the dashboard time.
func (s *FormSession) SetCustomRange(r TimeRangeSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.TimeSettings.CustomTimeRange = r
}

// Save validates the form and folds it into the widget the session opened.
func (s *FormSession) Save() (Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.ApplyTo(s.prior)
}
