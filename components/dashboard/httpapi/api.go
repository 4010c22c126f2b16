// Package httpapi exposes the designer over JSON HTTP handlers backed by the
// shared commands and queries.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-dashboard-designer/components/dashboard"
	"github.com/goliatone/go-dashboard-designer/components/dashboard/commands"
	"github.com/goliatone/go-dashboard-designer/components/dashboard/queries"
)

// Executor is the transport-facing surface of the designer. Both the net/http
// handlers and the go-router registration call through it.
type Executor interface {
	State(ctx context.Context) (queries.StateResult, error)
	Dashboards(ctx context.Context) ([]queries.DashboardSummary, error)
	Palette(ctx context.Context) ([]dashboard.PaletteCategory, error)
	Catalog(ctx context.Context, input queries.CatalogInput) (queries.CatalogResult, error)

	Load(ctx context.Context, input commands.LoadDashboardInput) error
	Save(ctx context.Context, input commands.SaveDashboardInput) error
	Delete(ctx context.Context, input commands.DeleteDashboardInput) error
	SetTime(ctx context.Context, input commands.SetTimeContextInput) error
	Add(ctx context.Context, input commands.AddWidgetInput) error
	Remove(ctx context.Context, input commands.RemoveWidgetInput) error
	Update(ctx context.Context, input commands.UpdateWidgetInput) error
	Select(ctx context.Context, input commands.SelectWidgetInput) error
	Editor(ctx context.Context, input commands.EditorInput) error
	ClearSelection(ctx context.Context) error
	TogglePanel(ctx context.Context) error
	Layout(ctx context.Context, input commands.ApplyLayoutInput) error
	Retry(ctx context.Context, input commands.RetryWidgetInput) error
	Resize(ctx context.Context, input commands.ResizeWidgetInput) error
	Refresh(ctx context.Context, input commands.RefreshWidgetInput) error
}

// CommandExecutor adapts go-command commanders and queriers to Executor.
type CommandExecutor struct {
	StateQuerier      gocommand.Querier[queries.StateInput, queries.StateResult]
	DashboardsQuerier gocommand.Querier[queries.ListDashboardsInput, []queries.DashboardSummary]
	PaletteQuerier    gocommand.Querier[queries.PaletteInput, []dashboard.PaletteCategory]
	CatalogQuerier    gocommand.Querier[queries.CatalogInput, queries.CatalogResult]

	LoadCommander    gocommand.Commander[commands.LoadDashboardInput]
	SaveCommander    gocommand.Commander[commands.SaveDashboardInput]
	DeleteCommander  gocommand.Commander[commands.DeleteDashboardInput]
	TimeCommander    gocommand.Commander[commands.SetTimeContextInput]
	AddCommander     gocommand.Commander[commands.AddWidgetInput]
	RemoveCommander  gocommand.Commander[commands.RemoveWidgetInput]
	UpdateCommander  gocommand.Commander[commands.UpdateWidgetInput]
	SelectCommander  gocommand.Commander[commands.SelectWidgetInput]
	EditorCommander  gocommand.Commander[commands.EditorInput]
	ClearCommander   gocommand.Commander[commands.ClearSelectionInput]
	ToggleCommander  gocommand.Commander[commands.TogglePanelInput]
	LayoutCommander  gocommand.Commander[commands.ApplyLayoutInput]
	RetryCommander   gocommand.Commander[commands.RetryWidgetInput]
	ResizeCommander  gocommand.Commander[commands.ResizeWidgetInput]
	RefreshCommander gocommand.Commander[commands.RefreshWidgetInput]
}

// DesignerService is everything NewCommandExecutor wires commands against.
type DesignerService interface {
	State() dashboard.DesignerState
	Snapshots() []dashboard.WidgetSnapshot
	Palette() []dashboard.PaletteCategory
	Catalog() dashboard.CatalogSource
	ListDashboards(ctx context.Context) ([]dashboard.Dashboard, error)
	Load(ctx context.Context, id string) (dashboard.Dashboard, error)
	Rename(ctx context.Context, name, description string) error
	Save(ctx context.Context) (dashboard.Dashboard, error)
	DeleteDashboard(ctx context.Context, id string) error
	SetTimeContext(ctx context.Context, tc *dashboard.TimeContext)
	AddWidget(ctx context.Context, rawType string) (dashboard.Widget, error)
	RemoveWidget(ctx context.Context, id string) error
	ApplyForm(ctx context.Context, id string, form dashboard.WidgetForm) (dashboard.Widget, error)
	UpdateWidget(ctx context.Context, w dashboard.Widget) error
	SelectWidget(ctx context.Context, id string) (dashboard.EditorState, error)
	SelectEntity(ctx context.Context, sel dashboard.EditorSelection) (dashboard.EditorState, error)
	EditForm(form dashboard.WidgetForm) (dashboard.EditorState, error)
	CommitEditor(ctx context.Context) (dashboard.Widget, error)
	CloseEditor()
	ClearSelection()
	ToggleWidgetPanel() bool
	ApplyLayout(ctx context.Context, items []dashboard.LayoutItem) error
	Retry(ctx context.Context, id string) error
	Resize(ctx context.Context, id string, d dashboard.Dimensions) (dashboard.WidgetSnapshot, error)
	NotifyWidgetUpdated(ctx context.Context, event dashboard.WidgetEvent) error
}

// NewCommandExecutor wires every command and query against one service.
func NewCommandExecutor(service DesignerService, telemetry commands.Telemetry) *CommandExecutor {
	return &CommandExecutor{
		StateQuerier:      queries.NewStateQuery(service),
		DashboardsQuerier: queries.NewListDashboardsQuery(service),
		PaletteQuerier:    queries.NewPaletteQuery(service),
		CatalogQuerier:    queries.NewCatalogQuery(service.Catalog()),
		LoadCommander:     commands.NewLoadDashboardCommand(service, telemetry),
		SaveCommander:     commands.NewSaveDashboardCommand(service, telemetry),
		DeleteCommander:   commands.NewDeleteDashboardCommand(service, telemetry),
		TimeCommander:     commands.NewSetTimeContextCommand(service),
		AddCommander:      commands.NewAddWidgetCommand(service, telemetry),
		RemoveCommander:   commands.NewRemoveWidgetCommand(service, telemetry),
		UpdateCommander:   commands.NewUpdateWidgetCommand(service, telemetry),
		SelectCommander:   commands.NewSelectWidgetCommand(service),
		EditorCommander:   commands.NewEditorCommand(service, telemetry),
		ClearCommander:    commands.NewClearSelectionCommand(service),
		ToggleCommander:   commands.NewTogglePanelCommand(service),
		LayoutCommander:   commands.NewApplyLayoutCommand(service, telemetry),
		RetryCommander:    commands.NewRetryWidgetCommand(service, telemetry),
		ResizeCommander:   commands.NewResizeWidgetCommand(service),
		RefreshCommander:  commands.NewRefreshWidgetCommand(service, telemetry),
	}
}

var errNotWired = errors.New("httpapi: operation not wired")

func (e *CommandExecutor) State(ctx context.Context) (queries.StateResult, error) {
	if e.StateQuerier == nil {
		return queries.StateResult{}, errNotWired
	}
	return e.StateQuerier.Query(ctx, queries.StateInput{WithSnapshots: true})
}

func (e *CommandExecutor) Dashboards(ctx context.Context) ([]queries.DashboardSummary, error) {
	if e.DashboardsQuerier == nil {
		return nil, errNotWired
	}
	return e.DashboardsQuerier.Query(ctx, queries.ListDashboardsInput{})
}

func (e *CommandExecutor) Palette(ctx context.Context) ([]dashboard.PaletteCategory, error) {
	if e.PaletteQuerier == nil {
		return nil, errNotWired
	}
	return e.PaletteQuerier.Query(ctx, queries.PaletteInput{})
}

func (e *CommandExecutor) Catalog(ctx context.Context, input queries.CatalogInput) (queries.CatalogResult, error) {
	if e.CatalogQuerier == nil {
		return queries.CatalogResult{}, errNotWired
	}
	return e.CatalogQuerier.Query(ctx, input)
}

func execute[T any](ctx context.Context, cmd gocommand.Commander[T], msg T) error {
	if cmd == nil {
		return errNotWired
	}
	return cmd.Execute(ctx, msg)
}

func (e *CommandExecutor) Load(ctx context.Context, input commands.LoadDashboardInput) error {
	return execute(ctx, e.LoadCommander, input)
}

func (e *CommandExecutor) Save(ctx context.Context, input commands.SaveDashboardInput) error {
	return execute(ctx, e.SaveCommander, input)
}

func (e *CommandExecutor) Delete(ctx context.Context, input commands.DeleteDashboardInput) error {
	return execute(ctx, e.DeleteCommander, input)
}

func (e *CommandExecutor) SetTime(ctx context.Context, input commands.SetTimeContextInput) error {
	return execute(ctx, e.TimeCommander, input)
}

func (e *CommandExecutor) Add(ctx context.Context, input commands.AddWidgetInput) error {
	return execute(ctx, e.AddCommander, input)
}

func (e *CommandExecutor) Remove(ctx context.Context, input commands.RemoveWidgetInput) error {
	return execute(ctx, e.RemoveCommander, input)
}

func (e *CommandExecutor) Update(ctx context.Context, input commands.UpdateWidgetInput) error {
	return execute(ctx, e.UpdateCommander, input)
}

func (e *CommandExecutor) Select(ctx context.Context, input commands.SelectWidgetInput) error {
	return execute(ctx, e.SelectCommander, input)
}

func (e *CommandExecutor) Editor(ctx context.Context, input commands.EditorInput) error {
	return execute(ctx, e.EditorCommander, input)
}

func (e *CommandExecutor) ClearSelection(ctx context.Context) error {
	return execute(ctx, e.ClearCommander, commands.ClearSelectionInput{})
}

func (e *CommandExecutor) TogglePanel(ctx context.Context) error {
	return execute(ctx, e.ToggleCommander, commands.TogglePanelInput{})
}

func (e *CommandExecutor) Layout(ctx context.Context, input commands.ApplyLayoutInput) error {
	return execute(ctx, e.LayoutCommander, input)
}

func (e *CommandExecutor) Retry(ctx context.Context, input commands.RetryWidgetInput) error {
	return execute(ctx, e.RetryCommander, input)
}

func (e *CommandExecutor) Resize(ctx context.Context, input commands.ResizeWidgetInput) error {
	return execute(ctx, e.ResizeCommander, input)
}

func (e *CommandExecutor) Refresh(ctx context.Context, input commands.RefreshWidgetInput) error {
	return execute(ctx, e.RefreshCommander, input)
}

// Handlers exposes net/http endpoints. Mutating handlers answer with the
// resulting designer state.
type Handlers struct {
	API Executor
}

func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, http.StatusOK)
}

func (h *Handlers) HandleListDashboards(w http.ResponseWriter, r *http.Request) {
	list, err := h.API.Dashboards(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) HandlePalette(w http.ResponseWriter, r *http.Request) {
	palette, err := h.API.Palette(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, palette)
}

func (h *Handlers) HandleCatalog(w http.ResponseWriter, r *http.Request, level string) {
	result, err := h.API.Catalog(r.Context(), queries.CatalogInput{
		Level:    level,
		ParentID: r.URL.Query().Get("parent"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) HandleLoadDashboard(w http.ResponseWriter, r *http.Request) {
	var payload commands.LoadDashboardInput
	if !decodeOptional(w, r, &payload) {
		return
	}
	h.run(w, r, http.StatusOK, func(ctx context.Context) error { return h.API.Load(ctx, payload) })
}

func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	var payload commands.SaveDashboardInput
	if !decodeOptional(w, r, &payload) {
		return
	}
	h.run(w, r, http.StatusOK, func(ctx context.Context) error { return h.API.Save(ctx, payload) })
}

func (h *Handlers) HandleDeleteDashboard(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.API.Delete(r.Context(), commands.DeleteDashboardInput{ID: id}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleTimeContext(w http.ResponseWriter, r *http.Request) {
	var payload commands.SetTimeContextInput
	if !decode(w, r, &payload) {
		return
	}
	h.run(w, r, http.StatusOK, func(ctx context.Context) error { return h.API.SetTime(ctx, payload) })
}

func (h *Handlers) HandleAddWidget(w http.ResponseWriter, r *http.Request) {
	var payload commands.AddWidgetInput
	if !decode(w, r, &payload) {
		return
	}
	h.run(w, r, http.StatusCreated, func(ctx context.Context) error { return h.API.Add(ctx, payload) })
}

func (h *Handlers) HandleRemoveWidget(w http.ResponseWriter, r *http.Request, widgetID string) {
	if err := h.API.Remove(r.Context(), commands.RemoveWidgetInput{WidgetID: widgetID}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleUpdateWidget(w http.ResponseWriter, r *http.Request, widgetID string) {
	var payload commands.UpdateWidgetInput
	if !decode(w, r, &payload) {
		return
	}
	payload.WidgetID = widgetID
	h.run(w, r, http.StatusOK, func(ctx context.Context) error { return h.API.Update(ctx, payload) })
}

func (h *Handlers) HandleSelectWidget(w http.ResponseWriter, r *http.Request, widgetID string) {
	h.run(w, r, http.StatusOK, func(ctx context.Context) error {
		return h.API.Select(ctx, commands.SelectWidgetInput{WidgetID: widgetID})
	})
}

func (h *Handlers) HandleEditor(w http.ResponseWriter, r *http.Request) {
	var payload commands.EditorInput
	if !decode(w, r, &payload) {
		return
	}
	h.run(w, r, http.StatusOK, func(ctx context.Context) error { return h.API.Editor(ctx, payload) })
}

func (h *Handlers) HandleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, http.StatusOK, h.API.ClearSelection)
}

func (h *Handlers) HandleTogglePanel(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, http.StatusOK, h.API.TogglePanel)
}

func (h *Handlers) HandleLayout(w http.ResponseWriter, r *http.Request) {
	var payload commands.ApplyLayoutInput
	if !decode(w, r, &payload) {
		return
	}
	h.run(w, r, http.StatusOK, func(ctx context.Context) error { return h.API.Layout(ctx, payload) })
}

func (h *Handlers) HandleRetryWidget(w http.ResponseWriter, r *http.Request, widgetID string) {
	if err := h.API.Retry(r.Context(), commands.RetryWidgetInput{WidgetID: widgetID}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) HandleResizeWidget(w http.ResponseWriter, r *http.Request, widgetID string) {
	var payload commands.ResizeWidgetInput
	if !decode(w, r, &payload) {
		return
	}
	payload.WidgetID = widgetID
	if err := h.API.Resize(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) HandleRefreshWidget(w http.ResponseWriter, r *http.Request) {
	var payload commands.RefreshWidgetInput
	if !decode(w, r, &payload) {
		return
	}
	if err := h.API.Refresh(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) run(w http.ResponseWriter, r *http.Request, status int, fn func(context.Context) error) {
	if err := fn(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.respondState(w, r, status)
}

func (h *Handlers) respondState(w http.ResponseWriter, r *http.Request, status int) {
	state, err := h.API.State(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, state)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return decode(w, r, dst)
}

// StatusFor maps designer errors to HTTP status codes.
func StatusFor(err error) int {
	var verrs validation.Errors
	switch {
	case errors.Is(err, dashboard.ErrWidgetNotFound), errors.Is(err, dashboard.ErrDashboardNotFound):
		return http.StatusNotFound
	case errors.As(err, &verrs),
		errors.Is(err, dashboard.ErrUnknownWidgetType),
		errors.Is(err, dashboard.ErrDuplicateWidgetID),
		errors.Is(err, dashboard.ErrUnknownEntity),
		errors.Is(err, dashboard.ErrUnknownMetric),
		errors.Is(err, dashboard.ErrInvalidWidgetConfig):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errNotWired):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// ErrorBody is the JSON shape of a failed request. Field errors come from
// form validation.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorResponse builds the body returned for err.
func ErrorResponse(err error) ErrorBody {
	body := ErrorBody{Error: err.Error()}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		body.Fields = flattenErrors("", verrs)
	}
	return body
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), ErrorResponse(err))
}

func flattenErrors(prefix string, errs validation.Errors) map[string]string {
	out := map[string]string{}
	for key, err := range errs {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			for k, v := range flattenErrors(name, nested) {
				out[k] = v
			}
			continue
		}
		out[name] = err.Error()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
