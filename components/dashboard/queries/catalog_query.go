package queries

import (
	"context"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

// CatalogInput selects one level of the entity catalog. ParentID is the
// facility for systems, the system for devices and the device for metrics.
type CatalogInput struct {
	Level    string
	ParentID string
}

// CatalogResult holds the level that was requested.
type CatalogResult struct {
	Facilities []dashboard.Facility `json:"facilities,omitempty"`
	Systems    []dashboard.System   `json:"systems,omitempty"`
	Devices    []dashboard.Device   `json:"devices,omitempty"`
	Metrics    []dashboard.Metric   `json:"metrics,omitempty"`
}

// CatalogQuery serves the data source pickers.
type CatalogQuery struct {
	catalog dashboard.CatalogSource
}

// NewCatalogQuery builds the query.
func NewCatalogQuery(catalog dashboard.CatalogSource) *CatalogQuery {
	return &CatalogQuery{catalog: catalog}
}

var _ gocommand.Querier[CatalogInput, CatalogResult] = (*CatalogQuery)(nil)

// Query loads one catalog level.
func (q *CatalogQuery) Query(ctx context.Context, input CatalogInput) (CatalogResult, error) {
	var (
		out CatalogResult
		err error
	)
	switch input.Level {
	case "facilities":
		out.Facilities, err = q.catalog.Facilities(ctx)
	case "systems":
		out.Systems, err = q.catalog.Systems(ctx, input.ParentID)
	case "devices":
		out.Devices, err = q.catalog.Devices(ctx, input.ParentID)
	case "metrics":
		out.Metrics, err = q.catalog.Metrics(ctx, input.ParentID)
	default:
		return CatalogResult{}, fmt.Errorf("unknown catalog level %q", input.Level)
	}
	return out, err
}
