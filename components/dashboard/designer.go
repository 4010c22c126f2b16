package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var errNoDashboardStore = errors.New("dashboard: dashboard store not configured")

// DesignerOptions configures a Designer.
type DesignerOptions struct {
	Store      DashboardStore
	Registry   *Registry
	Catalog    CatalogSource
	Validator  ConfigValidator
	IDs        IDGenerator
	EditorMode EditorMode
	Logger     *zap.Logger
}

// Designer owns the dashboard being edited, the widget selection and the
// property editor. All mutations go through it.
type Designer struct {
	opts DesignerOptions

	mu        sync.Mutex
	dashboard Dashboard
	selected  string
	editor    *FormSession
	showPanel bool
}

// LayoutItem is one grid item-change event.
type LayoutItem struct {
	ID   string `json:"id"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

// EditorState is the open property editor as seen by a view.
type EditorState struct {
	WidgetID     string      `json:"widgetId"`
	Mode         EditorMode  `json:"mode"`
	Form         WidgetForm  `json:"form"`
	Options      FormOptions `json:"options"`
	ActiveFields []string    `json:"activeFields"`
}

// DesignerState is a copy of the designer for rendering.
type DesignerState struct {
	Dashboard        Dashboard    `json:"dashboard"`
	SelectedWidgetID string       `json:"selectedWidgetId,omitempty"`
	ShowWidgetPanel  bool         `json:"showWidgetPanel"`
	Editor           *EditorState `json:"editor,omitempty"`
}

// NewDesigner starts with an empty in-memory dashboard.
func NewDesigner(opts DesignerOptions) *Designer {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Catalog == nil {
		opts.Catalog = emptyCatalog{}
	}
	if opts.Validator == nil {
		opts.Validator = noopConfigValidator{}
	}
	if opts.IDs == nil {
		opts.IDs = uuidGenerator
	}
	if opts.EditorMode == "" {
		opts.EditorMode = EditorDialog
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Designer{
		opts:      opts,
		dashboard: NewDashboard(),
		showPanel: true,
	}
}

// Init loads the most recently stored dashboard, if any.
func (d *Designer) Init(ctx context.Context) error {
	_, err := d.Load(ctx, "")
	return err
}

// Load swaps in a stored dashboard. With an empty id the most recent one is
// used and an empty store is not an error; the in-memory dashboard is kept and
// false is returned.
func (d *Designer) Load(ctx context.Context, id string) (bool, error) {
	if d.opts.Store == nil {
		return false, errNoDashboardStore
	}
	loaded, err := d.opts.Store.Get(ctx, id)
	if err != nil {
		if id == "" && errors.Is(err, ErrDashboardNotFound) {
			return false, nil
		}
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dashboard = loaded
	d.selected = ""
	d.editor = nil
	d.opts.Logger.Debug("dashboard loaded", zap.String("dashboard_id", loaded.ID))
	return true, nil
}

// Save persists the whole dashboard. Ids assigned by the store are kept.
func (d *Designer) Save(ctx context.Context) (Dashboard, error) {
	if d.opts.Store == nil {
		return Dashboard{}, errNoDashboardStore
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.dashboard.Clone()
	if err := d.opts.Store.Save(ctx, &out); err != nil {
		return Dashboard{}, err
	}
	d.dashboard = out.Clone()
	return out, nil
}

// Dashboard returns a copy of the dashboard being edited.
func (d *Designer) Dashboard() Dashboard {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dashboard.Clone()
}

// State returns a copy of everything a view needs.
func (d *Designer) State() DesignerState {
	d.mu.Lock()
	defer d.mu.Unlock()
	state := DesignerState{
		Dashboard:        d.dashboard.Clone(),
		SelectedWidgetID: d.selected,
		ShowWidgetPanel:  d.showPanel,
	}
	if d.editor != nil {
		form := d.editor.Form()
		state.Editor = &EditorState{
			WidgetID:     d.editor.WidgetID(),
			Mode:         d.editor.Mode(),
			Form:         form,
			Options:      d.editor.Options(),
			ActiveFields: ActiveFields(form.Type),
		}
	}
	return state
}

// AddWidget appends a widget with the defaults of t, selects it and opens its
// property editor. Nothing is added when the editor cannot be opened.
func (d *Designer) AddWidget(ctx context.Context, t WidgetType) (Widget, error) {
	if _, ok := d.opts.Registry.Definition(t); !ok {
		return Widget{}, fmt.Errorf("%w: %q", ErrUnknownWidgetType, t)
	}
	w, err := NewWidget(t, d.opts.IDs)
	if err != nil {
		return Widget{}, err
	}
	session, err := OpenFormSession(ctx, d.opts.Catalog, w, d.opts.EditorMode)
	if err != nil {
		return Widget{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dashboard.Widgets = append(d.dashboard.Widgets, w.Clone())
	d.selected = w.ID
	d.editor = session
	return w, nil
}

// RemoveWidget deletes the widget by id and clears the selection if it was
// selected.
func (d *Designer) RemoveWidget(id string) (Widget, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, idx, ok := d.dashboard.Widget(id)
	if !ok {
		return Widget{}, fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}
	d.dashboard.Widgets = append(d.dashboard.Widgets[:idx], d.dashboard.Widgets[idx+1:]...)
	if d.selected == id {
		d.selected = ""
		d.editor = nil
	}
	return w, nil
}

// SelectWidget selects the widget and opens its editor pre-populated.
func (d *Designer) SelectWidget(ctx context.Context, id string) (*FormSession, error) {
	d.mu.Lock()
	w, _, ok := d.dashboard.Widget(id)
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}
	return d.openEditor(ctx, w)
}

// openEditor loads the catalog options for w without holding the lock, then
// selects w if it is still on the canvas.
func (d *Designer) openEditor(ctx context.Context, w Widget) (*FormSession, error) {
	session, err := OpenFormSession(ctx, d.opts.Catalog, w, d.opts.EditorMode)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, _, ok := d.dashboard.Widget(w.ID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, w.ID)
	}
	d.selected = w.ID
	if err != nil {
		d.editor = nil
		return nil, err
	}
	d.editor = session
	return session, nil
}

// Editor returns the open property editor, or nil.
func (d *Designer) Editor() *FormSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.editor
}

// UpdateWidget replaces the widget with the same id.
func (d *Designer) UpdateWidget(w Widget) error {
	if !w.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownWidgetType, w.Type)
	}
	if err := d.opts.Validator.ValidateWidget(w); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.replaceLocked(w)
}

func (d *Designer) replaceLocked(w Widget) error {
	_, idx, ok := d.dashboard.Widget(w.ID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWidgetNotFound, w.ID)
	}
	d.dashboard.Widgets[idx] = w.Clone()
	return nil
}

// CommitEditor folds the open editor back into the dashboard. A dialog closes
// on commit; the inline panel stays open on the updated widget.
func (d *Designer) CommitEditor(ctx context.Context) (Widget, error) {
	w, reopen, err := d.commitLocked()
	if err != nil || !reopen {
		return w, err
	}
	if _, err := d.openEditor(ctx, w); err != nil {
		return w, err
	}
	return w, nil
}

func (d *Designer) commitLocked() (Widget, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.editor == nil {
		return Widget{}, false, errors.New("dashboard: no widget is being edited")
	}
	w, err := d.editor.Save()
	if err != nil {
		return Widget{}, false, err
	}
	if err := d.opts.Validator.ValidateWidget(w); err != nil {
		return Widget{}, false, err
	}
	if err := d.replaceLocked(w); err != nil {
		return Widget{}, false, err
	}
	if d.editor.Mode() == EditorDialog {
		d.editor = nil
		return w, false, nil
	}
	return w, true, nil
}

// CloseEditor dismisses the editor without applying it. The selection stays.
func (d *Designer) CloseEditor() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.editor = nil
}

// ClearSelection deselects and closes the editor.
func (d *Designer) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = ""
	d.editor = nil
}

// ToggleWidgetPanel flips the palette visibility and returns the new value.
func (d *Designer) ToggleWidgetPanel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.showPanel = !d.showPanel
	return d.showPanel
}

// Rename sets the dashboard name and description.
func (d *Designer) Rename(name, description string) error {
	if name == "" {
		return errors.New("dashboard: dashboard name is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dashboard.Name = name
	d.dashboard.Description = description
	return nil
}

// SetTimeContext sets (or with nil, clears) the dashboard-wide time window.
func (d *Designer) SetTimeContext(tc *TimeContext) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dashboard.TimeContext = tc.clone()
}

// ApplyLayout moves and resizes widgets after grid item-change events. The
// batch is rejected whole when an id is unknown.
func (d *Designer) ApplyLayout(items []LayoutItem) ([]Widget, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, item := range items {
		if _, _, ok := d.dashboard.Widget(item.ID); !ok {
			return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, item.ID)
		}
		if item.X < 0 || item.Y < 0 || item.Cols < 1 || item.Rows < 1 {
			return nil, fmt.Errorf("dashboard: invalid geometry for widget %s", item.ID)
		}
	}
	changed := make([]Widget, 0, len(items))
	for _, item := range items {
		_, idx, _ := d.dashboard.Widget(item.ID)
		w := &d.dashboard.Widgets[idx]
		w.X, w.Y, w.Cols, w.Rows = item.X, item.Y, item.Cols, item.Rows
		changed = append(changed, w.Clone())
	}
	return changed, nil
}

// Palette returns the widget definitions grouped for the palette.
func (d *Designer) Palette() []PaletteCategory {
	return d.opts.Registry.Palette()
}

// ShowWidgetPanel reports whether the palette is visible.
func (d *Designer) ShowWidgetPanel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.showPanel
}

type emptyCatalog struct{}

func (emptyCatalog) Facilities(context.Context) ([]Facility, error)    { return nil, nil }
func (emptyCatalog) Systems(context.Context, string) ([]System, error) { return nil, nil }
func (emptyCatalog) Devices(context.Context, string) ([]Device, error) { return nil, nil }
func (emptyCatalog) Metrics(context.Context, string) ([]Metric, error) { return nil, nil }
