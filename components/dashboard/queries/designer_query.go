package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

// StateInput requests the designer state. WithSnapshots adds widget runtime
// states.
type StateInput struct {
	WithSnapshots bool
}

// StateResult is the designer state plus optional runtime snapshots.
type StateResult struct {
	dashboard.DesignerState
	Snapshots []dashboard.WidgetSnapshot `json:"snapshots,omitempty"`
}

type stateService interface {
	State() dashboard.DesignerState
	Snapshots() []dashboard.WidgetSnapshot
}

// StateQuery reads the designer state.
type StateQuery struct {
	service stateService
}

// NewStateQuery builds the query.
func NewStateQuery(service stateService) *StateQuery {
	return &StateQuery{service: service}
}

var _ gocommand.Querier[StateInput, StateResult] = (*StateQuery)(nil)

// Query returns the current state.
func (q *StateQuery) Query(ctx context.Context, input StateInput) (StateResult, error) {
	out := StateResult{DesignerState: q.service.State()}
	if input.WithSnapshots {
		out.Snapshots = q.service.Snapshots()
	}
	return out, nil
}

// ListDashboardsInput requests every stored dashboard.
type ListDashboardsInput struct{}

// DashboardSummary is a stored dashboard without its widgets.
type DashboardSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Widgets     int    `json:"widgets"`
}

type listService interface {
	ListDashboards(ctx context.Context) ([]dashboard.Dashboard, error)
}

// ListDashboardsQuery summarizes stored dashboards.
type ListDashboardsQuery struct {
	service listService
}

// NewListDashboardsQuery builds the query.
func NewListDashboardsQuery(service listService) *ListDashboardsQuery {
	return &ListDashboardsQuery{service: service}
}

var _ gocommand.Querier[ListDashboardsInput, []DashboardSummary] = (*ListDashboardsQuery)(nil)

// Query lists dashboards in storage order.
func (q *ListDashboardsQuery) Query(ctx context.Context, _ ListDashboardsInput) ([]DashboardSummary, error) {
	list, err := q.service.ListDashboards(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DashboardSummary, 0, len(list))
	for _, d := range list {
		out = append(out, DashboardSummary{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Widgets:     len(d.Widgets),
		})
	}
	return out, nil
}

// PaletteInput requests the widget palette.
type PaletteInput struct{}

type paletteService interface {
	Palette() []dashboard.PaletteCategory
}

// PaletteQuery lists widget definitions by category.
type PaletteQuery struct {
	service paletteService
}

// NewPaletteQuery builds the query.
func NewPaletteQuery(service paletteService) *PaletteQuery {
	return &PaletteQuery{service: service}
}

var _ gocommand.Querier[PaletteInput, []dashboard.PaletteCategory] = (*PaletteQuery)(nil)

// Query returns the palette.
func (q *PaletteQuery) Query(ctx context.Context, _ PaletteInput) ([]dashboard.PaletteCategory, error) {
	return q.service.Palette(), nil
}
