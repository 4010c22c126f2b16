package queries

import (
	"context"
	"testing"

	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

type stubStateService struct {
	snapshotCalls int
}

func (s *stubStateService) State() dashboard.DesignerState {
	return dashboard.DesignerState{SelectedWidgetID: "w1", ShowWidgetPanel: true}
}

func (s *stubStateService) Snapshots() []dashboard.WidgetSnapshot {
	s.snapshotCalls++
	return []dashboard.WidgetSnapshot{{WidgetID: "w1", State: dashboard.StateReady}}
}

func TestStateQuery(t *testing.T) {
	service := &stubStateService{}
	query := NewStateQuery(service)
	out, err := query.Query(context.Background(), StateInput{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if out.SelectedWidgetID != "w1" || out.Snapshots != nil {
		t.Fatalf("unexpected state %+v", out)
	}
	out, err = query.Query(context.Background(), StateInput{WithSnapshots: true})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if service.snapshotCalls != 1 || len(out.Snapshots) != 1 {
		t.Fatalf("expected snapshots, got %+v", out.Snapshots)
	}
}

type stubListService struct{}

func (stubListService) ListDashboards(context.Context) ([]dashboard.Dashboard, error) {
	return []dashboard.Dashboard{
		{ID: "a", Name: "First", Widgets: []dashboard.Widget{{ID: "w1"}, {ID: "w2"}}},
		{ID: "b", Name: "Second"},
	}, nil
}

func TestListDashboardsQuery(t *testing.T) {
	out, err := NewListDashboardsQuery(stubListService{}).Query(context.Background(), ListDashboardsInput{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(out) != 2 || out[0].Widgets != 2 || out[1].ID != "b" {
		t.Fatalf("unexpected summaries %+v", out)
	}
}

type stubCatalog struct {
	parent string
}

func (c *stubCatalog) Facilities(context.Context) ([]dashboard.Facility, error) {
	return []dashboard.Facility{{ID: "facility-1"}}, nil
}

func (c *stubCatalog) Systems(_ context.Context, id string) ([]dashboard.System, error) {
	c.parent = id
	return []dashboard.System{{ID: "system-1", FacilityID: id}}, nil
}

func (c *stubCatalog) Devices(_ context.Context, id string) ([]dashboard.Device, error) {
	c.parent = id
	return []dashboard.Device{{ID: "device-1", SystemID: id}}, nil
}

func (c *stubCatalog) Metrics(_ context.Context, id string) ([]dashboard.Metric, error) {
	c.parent = id
	return []dashboard.Metric{{ID: "flow"}}, nil
}

func TestCatalogQuery(t *testing.T) {
	catalog := &stubCatalog{}
	query := NewCatalogQuery(catalog)

	out, err := query.Query(context.Background(), CatalogInput{Level: "devices", ParentID: "system-1"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if catalog.parent != "system-1" || len(out.Devices) != 1 || out.Systems != nil {
		t.Fatalf("unexpected result %+v", out)
	}

	if _, err := query.Query(context.Background(), CatalogInput{Level: "areas"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestPaletteQuery(t *testing.T) {
	svc := dashboard.NewService(dashboard.Options{})
	out, err := NewPaletteQuery(svc).Query(context.Background(), PaletteInput{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected palette categories")
	}
}
