package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

// SeedDashboardInput controls bootstrap behavior.
type SeedDashboardInput struct {
	Name string `json:"name"`
	// Load swaps the seeded dashboard into the designer.
	Load bool `json:"load"`
}

// SeedDashboardCommand stores the demo dashboard and optionally opens it.
type SeedDashboardCommand struct {
	store     dashboard.DashboardStore
	service   loadService
	telemetry Telemetry
}

// NewSeedDashboardCommand wires dependencies.
func NewSeedDashboardCommand(store dashboard.DashboardStore, service loadService, telemetry Telemetry) *SeedDashboardCommand {
	return &SeedDashboardCommand{
		store:     store,
		service:   service,
		telemetry: normalizeTelemetry(telemetry),
	}
}

var _ gocommand.Commander[SeedDashboardInput] = (*SeedDashboardCommand)(nil)

// Execute runs the bootstrap pipeline.
func (c *SeedDashboardCommand) Execute(ctx context.Context, msg SeedDashboardInput) error {
	d, err := dashboard.SeedDashboard(ctx, c.store, msg.Name)
	if err != nil {
		return err
	}
	if msg.Load && c.service != nil {
		if _, err := c.service.Load(ctx, d.ID); err != nil {
			return err
		}
	}
	c.telemetry.Record(ctx, "designer.command.seed", map[string]any{
		"dashboard_id": d.ID,
		"widgets":      len(d.Widgets),
	})
	return nil
}
