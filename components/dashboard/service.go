package dashboard

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var errNoEditor = errors.New("dashboard: no widget is being edited")

// Options configures the designer Service. Every collaborator is provided via
// interface so applications can swap storage and telemetry backends without
// touching the designer.
type Options struct {
	Store           DashboardStore
	Registry        *Registry
	Source          TelemetrySource
	Live            LiveSource
	Charts          *ChartRenderer
	ConfigValidator ConfigValidator
	RefreshHook     RefreshHook
	Telemetry       Telemetry
	EditorMode      EditorMode
	IDs             IDGenerator
	Logger          *zap.Logger
}

// Service wires the designer, the canvas runtimes and the notification hooks
// for transports.
type Service struct {
	opts     Options
	designer *Designer
	canvas   *Canvas
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Store == nil {
		opts.Store = NewCollectionStore(NewMemoryBlobStore())
	}
	if opts.ConfigValidator == nil {
		opts.ConfigValidator = NewJSONSchemaValidator(opts.Registry)
	}
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)

	s := &Service{opts: opts}
	var catalog CatalogSource
	if opts.Source != nil {
		catalog = opts.Source
	}
	s.designer = NewDesigner(DesignerOptions{
		Store:      opts.Store,
		Registry:   opts.Registry,
		Catalog:    catalog,
		Validator:  opts.ConfigValidator,
		IDs:        opts.IDs,
		EditorMode: opts.EditorMode,
		Logger:     opts.Logger,
	})
	s.canvas = NewCanvas(CanvasOptions{
		Source:   opts.Source,
		Live:     opts.Live,
		Registry: opts.Registry,
		Charts:   opts.Charts,
		OnUpdate: s.widgetDataUpdated,
		Logger:   opts.Logger,
	})
	return s
}

// Designer exposes the underlying designer.
func (s *Service) Designer() *Designer { return s.designer }

// Canvas exposes the widget runtimes.
func (s *Service) Canvas() *Canvas { return s.canvas }

// Init loads the most recent dashboard and starts its widgets.
func (s *Service) Init(ctx context.Context) error {
	if err := s.designer.Init(ctx); err != nil {
		return err
	}
	s.sync(ctx)
	return nil
}

// Close stops every widget runtime.
func (s *Service) Close() {
	s.canvas.Close()
}

// State returns the designer state.
func (s *Service) State() DesignerState {
	return s.designer.State()
}

// Snapshots returns the runtime state of every widget.
func (s *Service) Snapshots() []WidgetSnapshot {
	return s.canvas.Snapshots()
}

// ListDashboards returns every stored dashboard.
func (s *Service) ListDashboards(ctx context.Context) ([]Dashboard, error) {
	return s.opts.Store.List(ctx)
}

// Load swaps in a stored dashboard; an empty id picks the most recent one.
func (s *Service) Load(ctx context.Context, id string) (Dashboard, error) {
	found, err := s.designer.Load(ctx, id)
	if err != nil {
		return Dashboard{}, err
	}
	current := s.designer.Dashboard()
	s.sync(ctx)
	s.recordTelemetry(ctx, "designer.dashboard.load", map[string]any{
		"dashboard_id": current.ID,
		"found":        found,
	})
	return current, nil
}

// Save persists the current dashboard.
func (s *Service) Save(ctx context.Context) (Dashboard, error) {
	saved, err := s.designer.Save(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	if err := s.notify(ctx, WidgetEvent{DashboardID: saved.ID, Reason: "save"}); err != nil {
		return saved, err
	}
	s.recordTelemetry(ctx, "designer.dashboard.save", map[string]any{
		"dashboard_id": saved.ID,
		"widgets":      len(saved.Widgets),
	})
	return saved, nil
}

// DeleteDashboard removes a stored dashboard. The dashboard being edited stays
// in memory and can be saved again.
func (s *Service) DeleteDashboard(ctx context.Context, id string) error {
	if err := s.opts.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "designer.dashboard.delete", map[string]any{"dashboard_id": id})
	return nil
}

// Rename sets the name and description of the current dashboard.
func (s *Service) Rename(ctx context.Context, name, description string) error {
	if err := s.designer.Rename(name, description); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "designer.dashboard.rename", map[string]any{"name": name})
	return nil
}

// SetTimeContext changes the dashboard-wide time window and reloads the
// widgets that follow it.
func (s *Service) SetTimeContext(ctx context.Context, tc *TimeContext) {
	s.designer.SetTimeContext(tc)
	s.sync(ctx)
	s.recordTelemetry(ctx, "designer.dashboard.time", map[string]any{"cleared": tc == nil})
}

// AddWidget places a widget of the given type with its defaults and opens the
// property editor on it.
func (s *Service) AddWidget(ctx context.Context, rawType string) (Widget, error) {
	t, err := ParseWidgetType(rawType)
	if err != nil {
		return Widget{}, err
	}
	w, err := s.designer.AddWidget(ctx, t)
	if err != nil {
		return Widget{}, err
	}
	s.sync(ctx)
	if err := s.notifyWidget(ctx, w, "add"); err != nil {
		return w, err
	}
	s.recordTelemetry(ctx, "designer.widget.add", map[string]any{
		"widget_id": w.ID,
		"type":      string(t),
	})
	return w, nil
}

// RemoveWidget deletes a widget and tears down its runtime.
func (s *Service) RemoveWidget(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("dashboard: widget id is required")
	}
	w, err := s.designer.RemoveWidget(id)
	if err != nil {
		return err
	}
	s.sync(ctx)
	if err := s.notify(ctx, WidgetEvent{
		DashboardID: s.designer.Dashboard().ID,
		WidgetID:    id,
		Reason:      "remove",
	}); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "designer.widget.remove", map[string]any{
		"widget_id": id,
		"type":      string(w.Type),
	})
	return nil
}

// SelectWidget selects a widget and returns its open editor.
func (s *Service) SelectWidget(ctx context.Context, id string) (EditorState, error) {
	if _, err := s.designer.SelectWidget(ctx, id); err != nil {
		return EditorState{}, err
	}
	return s.editorState()
}

// UpdateWidget replaces a widget wholesale.
func (s *Service) UpdateWidget(ctx context.Context, w Widget) error {
	if err := s.designer.UpdateWidget(w); err != nil {
		return err
	}
	s.sync(ctx)
	if err := s.notifyWidget(ctx, w, "update"); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "designer.widget.update", map[string]any{"widget_id": w.ID})
	return nil
}

// ApplyForm folds a submitted property form into the widget with id.
func (s *Service) ApplyForm(ctx context.Context, id string, form WidgetForm) (Widget, error) {
	prior, _, ok := s.designer.Dashboard().Widget(id)
	if !ok {
		return Widget{}, fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}
	w, err := form.ApplyTo(prior)
	if err != nil {
		return Widget{}, err
	}
	if err := s.UpdateWidget(ctx, w); err != nil {
		return Widget{}, err
	}
	return w, nil
}

// EntityLevel names a step of the data source cascade.
type EntityLevel string

const (
	LevelFacility EntityLevel = "facility"
	LevelSystem   EntityLevel = "system"
	LevelDevice   EntityLevel = "device"
	LevelMetrics  EntityLevel = "metrics"
)

// EditorSelection is one picker change in the open editor.
type EditorSelection struct {
	Level   EntityLevel `json:"level"`
	ID      string      `json:"id,omitempty"`
	Metrics []string    `json:"metrics,omitempty"`
}

// SelectEntity forwards a picker change to the open editor.
func (s *Service) SelectEntity(ctx context.Context, sel EditorSelection) (EditorState, error) {
	session := s.designer.Editor()
	if session == nil {
		return EditorState{}, errNoEditor
	}
	var err error
	switch sel.Level {
	case LevelFacility:
		err = session.SelectFacility(ctx, sel.ID)
	case LevelSystem:
		err = session.SelectSystem(ctx, sel.ID)
	case LevelDevice:
		err = session.SelectDevice(ctx, sel.ID)
	case LevelMetrics:
		err = session.SetMetrics(sel.Metrics)
	default:
		err = fmt.Errorf("dashboard: unknown entity level %q", sel.Level)
	}
	if err != nil {
		return EditorState{}, err
	}
	return s.editorState()
}

// EditForm replaces the non-cascading fields of the open editor.
func (s *Service) EditForm(form WidgetForm) (EditorState, error) {
	session := s.designer.Editor()
	if session == nil {
		return EditorState{}, errNoEditor
	}
	session.Edit(func(f *WidgetForm) { *f = form })
	return s.editorState()
}

// CommitEditor applies the open editor to its widget.
func (s *Service) CommitEditor(ctx context.Context) (Widget, error) {
	w, err := s.designer.CommitEditor(ctx)
	if err != nil && w.ID == "" {
		return Widget{}, err
	}
	s.sync(ctx)
	if notifyErr := s.notifyWidget(ctx, w, "update"); notifyErr != nil {
		return w, notifyErr
	}
	s.recordTelemetry(ctx, "designer.widget.update", map[string]any{"widget_id": w.ID})
	return w, err
}

// CloseEditor dismisses the editor without applying it.
func (s *Service) CloseEditor() {
	s.designer.CloseEditor()
}

// ClearSelection deselects the current widget.
func (s *Service) ClearSelection() {
	s.designer.ClearSelection()
}

// ToggleWidgetPanel flips the palette visibility.
func (s *Service) ToggleWidgetPanel() bool {
	return s.designer.ToggleWidgetPanel()
}

// Palette returns the widget palette.
func (s *Service) Palette() []PaletteCategory {
	return s.designer.Palette()
}

// ApplyLayout stores grid item-change events.
func (s *Service) ApplyLayout(ctx context.Context, items []LayoutItem) error {
	changed, err := s.designer.ApplyLayout(items)
	if err != nil {
		return err
	}
	s.sync(ctx)
	for _, w := range changed {
		if err := s.notifyWidget(ctx, w, "layout"); err != nil {
			return err
		}
	}
	s.recordTelemetry(ctx, "designer.layout.apply", map[string]any{"count": len(changed)})
	return nil
}

// Retry reloads a widget after an error.
func (s *Service) Retry(ctx context.Context, id string) error {
	if err := s.canvas.Retry(ctx, id); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "designer.widget.retry", map[string]any{"widget_id": id})
	return nil
}

// Resize reports the container size of a widget.
func (s *Service) Resize(ctx context.Context, id string, d Dimensions) (WidgetSnapshot, error) {
	return s.canvas.Resize(id, d)
}

// Catalog returns the telemetry catalog used by the pickers.
func (s *Service) Catalog() CatalogSource {
	if s.opts.Source == nil {
		return emptyCatalog{}
	}
	return s.opts.Source
}

// NotifyWidgetUpdated exposes refresh hook invocation for commands/transports.
func (s *Service) NotifyWidgetUpdated(ctx context.Context, event WidgetEvent) error {
	return s.notify(ctx, event)
}

func (s *Service) editorState() (EditorState, error) {
	state := s.designer.State()
	if state.Editor == nil {
		return EditorState{}, errNoEditor
	}
	return *state.Editor, nil
}

func (s *Service) sync(ctx context.Context) {
	s.canvas.Sync(ctx, s.designer.Dashboard())
}

func (s *Service) notifyWidget(ctx context.Context, w Widget, reason string) error {
	clone := w.Clone()
	return s.notify(ctx, WidgetEvent{
		DashboardID: s.designer.Dashboard().ID,
		WidgetID:    w.ID,
		Widget:      &clone,
		Reason:      reason,
	})
}

func (s *Service) notify(ctx context.Context, event WidgetEvent) error {
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, event); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "designer.widget.event", map[string]any{
		"widget_id": event.WidgetID,
		"reason":    event.Reason,
	})
	return nil
}

func (s *Service) widgetDataUpdated(snapshot WidgetSnapshot) {
	event := WidgetEvent{
		WidgetID: snapshot.WidgetID,
		Snapshot: &snapshot,
		Reason:   "data",
	}
	if err := s.opts.RefreshHook.WidgetUpdated(context.Background(), event); err != nil {
		s.opts.Logger.Warn("widget data broadcast failed",
			zap.String("widget_id", snapshot.WidgetID),
			zap.Error(err),
		)
	}
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}
