package commands

import (
	"context"
	"errors"
	"testing"

	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

func TestSeedDashboardCommand(t *testing.T) {
	store := dashboard.NewCollectionStore(dashboard.NewMemoryBlobStore())
	service := &stubService{}
	telemetry := &stubTelemetry{}
	cmd := NewSeedDashboardCommand(store, service, telemetry)
	if err := cmd.Execute(context.Background(), SeedDashboardInput{Name: "Plant", Load: true}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Plant" {
		t.Fatalf("expected seeded dashboard, got %+v", list)
	}
	if service.loaded != list[0].ID {
		t.Fatalf("expected seeded dashboard to be loaded, got %q", service.loaded)
	}
	if telemetry.calls == 0 {
		t.Fatalf("expected telemetry to record events")
	}
}

func TestAddWidgetCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewAddWidgetCommand(service, nil)
	if err := cmd.Execute(context.Background(), AddWidgetInput{Type: "gauge"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.addCalls != 1 || service.addedType != "gauge" {
		t.Fatalf("expected add call with gauge, got %d %q", service.addCalls, service.addedType)
	}
	if err := cmd.Execute(context.Background(), AddWidgetInput{}); err == nil {
		t.Fatalf("expected error for missing type")
	}
}

func TestRemoveWidgetCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewRemoveWidgetCommand(service, nil)
	if err := cmd.Execute(context.Background(), RemoveWidgetInput{WidgetID: "widget-1"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.removeCalls != 1 {
		t.Fatalf("expected remove call")
	}
}

func TestUpdateWidgetCommandPrefersForm(t *testing.T) {
	service := &stubService{}
	cmd := NewUpdateWidgetCommand(service, nil)
	form := dashboard.NewWidgetForm(dashboard.WidgetGauge)
	w := dashboard.Widget{ID: "w1", Type: dashboard.WidgetGauge}
	if err := cmd.Execute(context.Background(), UpdateWidgetInput{WidgetID: "w1", Form: &form, Widget: &w}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.formCalls != 1 || service.updateCalls != 0 {
		t.Fatalf("expected form path, got form=%d update=%d", service.formCalls, service.updateCalls)
	}
}

func TestUpdateWidgetCommandWidget(t *testing.T) {
	service := &stubService{}
	cmd := NewUpdateWidgetCommand(service, nil)
	w := dashboard.Widget{Type: dashboard.WidgetCard}
	if err := cmd.Execute(context.Background(), UpdateWidgetInput{WidgetID: "w1", Widget: &w}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.updated.ID != "w1" {
		t.Fatalf("expected id to be filled from input, got %q", service.updated.ID)
	}

	other := dashboard.Widget{ID: "w2", Type: dashboard.WidgetCard}
	if err := cmd.Execute(context.Background(), UpdateWidgetInput{WidgetID: "w1", Widget: &other}); err == nil {
		t.Fatalf("expected id mismatch error")
	}
	if err := cmd.Execute(context.Background(), UpdateWidgetInput{WidgetID: "w1"}); err == nil {
		t.Fatalf("expected error without form or widget")
	}
}

func TestApplyLayoutCommandSkipsEmptyBatch(t *testing.T) {
	service := &stubService{}
	cmd := NewApplyLayoutCommand(service, nil)
	if err := cmd.Execute(context.Background(), ApplyLayoutInput{}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.layoutCalls != 0 {
		t.Fatalf("expected empty batch to be ignored")
	}
	items := []dashboard.LayoutItem{{ID: "w1", X: 2, Y: 0, Cols: 4, Rows: 4}}
	if err := cmd.Execute(context.Background(), ApplyLayoutInput{Items: items}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.layoutCalls != 1 {
		t.Fatalf("expected layout call")
	}
}

func TestEditorCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewEditorCommand(service, nil)
	sel := dashboard.EditorSelection{Level: dashboard.LevelFacility, ID: "facility-1"}
	if err := cmd.Execute(context.Background(), EditorInput{Selection: &sel, Commit: true}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.selectionCalls != 1 || service.commitCalls != 1 {
		t.Fatalf("expected selection and commit, got %d %d", service.selectionCalls, service.commitCalls)
	}
	if err := cmd.Execute(context.Background(), EditorInput{Close: true}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.closeCalls != 1 {
		t.Fatalf("expected close call")
	}
}

func TestDeleteDashboardCommandRequiresID(t *testing.T) {
	cmd := NewDeleteDashboardCommand(&stubService{}, nil)
	if err := cmd.Execute(context.Background(), DeleteDashboardInput{}); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestSaveDashboardCommandRenames(t *testing.T) {
	service := &stubService{}
	cmd := NewSaveDashboardCommand(service, nil)
	if err := cmd.Execute(context.Background(), SaveDashboardInput{Name: "Ops"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.renamed != "Ops" || service.saveCalls != 1 {
		t.Fatalf("expected rename then save, got %q %d", service.renamed, service.saveCalls)
	}
}

func TestRefreshWidgetCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewRefreshWidgetCommand(service, nil)
	event := dashboard.WidgetEvent{DashboardID: "dash-1"}
	if err := cmd.Execute(context.Background(), RefreshWidgetInput{Event: event}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.refreshCalls != 1 || service.lastEvent.Reason != "refresh" {
		t.Fatalf("expected refresh call with default reason, got %+v", service.lastEvent)
	}
}

func TestCommandsRequireService(t *testing.T) {
	ctx := context.Background()
	if err := NewRetryWidgetCommand(nil, nil).Execute(ctx, RetryWidgetInput{WidgetID: "w"}); err == nil {
		t.Fatalf("expected missing service error")
	}
	if err := NewResizeWidgetCommand(nil).Execute(ctx, ResizeWidgetInput{WidgetID: "w"}); err == nil {
		t.Fatalf("expected missing service error")
	}
}

func TestCommandErrorsPropagate(t *testing.T) {
	service := &stubService{err: dashboard.ErrWidgetNotFound}
	err := NewRetryWidgetCommand(service, nil).Execute(context.Background(), RetryWidgetInput{WidgetID: "missing"})
	if !errors.Is(err, dashboard.ErrWidgetNotFound) {
		t.Fatalf("expected widget not found, got %v", err)
	}
}

type stubService struct {
	err error

	loaded         string
	addCalls       int
	addedType      string
	removeCalls    int
	formCalls      int
	updateCalls    int
	updated        dashboard.Widget
	layoutCalls    int
	selectionCalls int
	commitCalls    int
	closeCalls     int
	renamed        string
	saveCalls      int
	refreshCalls   int
	lastEvent      dashboard.WidgetEvent
}

func (s *stubService) Load(_ context.Context, id string) (dashboard.Dashboard, error) {
	s.loaded = id
	return dashboard.Dashboard{ID: id}, s.err
}

func (s *stubService) AddWidget(_ context.Context, rawType string) (dashboard.Widget, error) {
	s.addCalls++
	s.addedType = rawType
	return dashboard.Widget{ID: "w1", Type: dashboard.WidgetType(rawType)}, s.err
}

func (s *stubService) RemoveWidget(context.Context, string) error {
	s.removeCalls++
	return s.err
}

func (s *stubService) ApplyForm(_ context.Context, id string, _ dashboard.WidgetForm) (dashboard.Widget, error) {
	s.formCalls++
	return dashboard.Widget{ID: id}, s.err
}

func (s *stubService) UpdateWidget(_ context.Context, w dashboard.Widget) error {
	s.updateCalls++
	s.updated = w
	return s.err
}

func (s *stubService) ApplyLayout(context.Context, []dashboard.LayoutItem) error {
	s.layoutCalls++
	return s.err
}

func (s *stubService) SelectEntity(context.Context, dashboard.EditorSelection) (dashboard.EditorState, error) {
	s.selectionCalls++
	return dashboard.EditorState{}, s.err
}

func (s *stubService) EditForm(dashboard.WidgetForm) (dashboard.EditorState, error) {
	return dashboard.EditorState{}, s.err
}

func (s *stubService) CommitEditor(context.Context) (dashboard.Widget, error) {
	s.commitCalls++
	return dashboard.Widget{ID: "w1"}, s.err
}

func (s *stubService) CloseEditor() { s.closeCalls++ }

func (s *stubService) Rename(_ context.Context, name, _ string) error {
	s.renamed = name
	return s.err
}

func (s *stubService) Save(context.Context) (dashboard.Dashboard, error) {
	s.saveCalls++
	return dashboard.Dashboard{ID: "dash-1"}, s.err
}

func (s *stubService) DeleteDashboard(context.Context, string) error { return s.err }

func (s *stubService) Retry(context.Context, string) error { return s.err }

func (s *stubService) NotifyWidgetUpdated(_ context.Context, event dashboard.WidgetEvent) error {
	s.refreshCalls++
	s.lastEvent = event
	return s.err
}

type stubTelemetry struct {
	calls int
}

func (s *stubTelemetry) Record(context.Context, string, map[string]any) {
	s.calls++
}
