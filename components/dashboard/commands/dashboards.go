package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

// LoadDashboardInput selects a stored dashboard. An empty id loads the most
// recent one.
type LoadDashboardInput struct {
	ID string `json:"id"`
}

type loadService interface {
	Load(ctx context.Context, id string) (dashboard.Dashboard, error)
}

// LoadDashboardCommand swaps the dashboard being edited.
type LoadDashboardCommand struct {
	service   loadService
	telemetry Telemetry
}

// NewLoadDashboardCommand creates the command.
func NewLoadDashboardCommand(service loadService, telemetry Telemetry) *LoadDashboardCommand {
	return &LoadDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LoadDashboardInput] = (*LoadDashboardCommand)(nil)

// Execute loads the dashboard.
func (c *LoadDashboardCommand) Execute(ctx context.Context, msg LoadDashboardInput) error {
	if c.service == nil {
		return missingService("load")
	}
	d, err := c.service.Load(ctx, msg.ID)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "designer.command.load", map[string]any{"dashboard_id": d.ID})
	return nil
}

// SaveDashboardInput optionally renames the dashboard before saving it.
type SaveDashboardInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type saveService interface {
	Rename(ctx context.Context, name, description string) error
	Save(ctx context.Context) (dashboard.Dashboard, error)
}

// SaveDashboardCommand persists the whole dashboard.
type SaveDashboardCommand struct {
	service   saveService
	telemetry Telemetry
}

// NewSaveDashboardCommand creates the command.
func NewSaveDashboardCommand(service saveService, telemetry Telemetry) *SaveDashboardCommand {
	return &SaveDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveDashboardInput] = (*SaveDashboardCommand)(nil)

// Execute saves the dashboard.
func (c *SaveDashboardCommand) Execute(ctx context.Context, msg SaveDashboardInput) error {
	if c.service == nil {
		return missingService("save")
	}
	if msg.Name != "" {
		if err := c.service.Rename(ctx, msg.Name, msg.Description); err != nil {
			return err
		}
	}
	d, err := c.service.Save(ctx)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "designer.command.save", map[string]any{
		"dashboard_id": d.ID,
		"widgets":      len(d.Widgets),
	})
	return nil
}

// DeleteDashboardInput identifies a stored dashboard.
type DeleteDashboardInput struct {
	ID string `json:"id"`
}

type deleteService interface {
	DeleteDashboard(ctx context.Context, id string) error
}

// DeleteDashboardCommand removes a stored dashboard.
type DeleteDashboardCommand struct {
	service   deleteService
	telemetry Telemetry
}

// NewDeleteDashboardCommand creates the command.
func NewDeleteDashboardCommand(service deleteService, telemetry Telemetry) *DeleteDashboardCommand {
	return &DeleteDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteDashboardInput] = (*DeleteDashboardCommand)(nil)

// Execute deletes the dashboard.
func (c *DeleteDashboardCommand) Execute(ctx context.Context, msg DeleteDashboardInput) error {
	if c.service == nil {
		return missingService("delete")
	}
	if msg.ID == "" {
		return errors.New("delete command requires dashboard id")
	}
	if err := c.service.DeleteDashboard(ctx, msg.ID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "designer.command.delete", map[string]any{"dashboard_id": msg.ID})
	return nil
}

// SetTimeContextInput sets or clears the dashboard-wide time window.
type SetTimeContextInput struct {
	TimeContext *dashboard.TimeContext `json:"timeContext"`
}

type timeService interface {
	SetTimeContext(ctx context.Context, tc *dashboard.TimeContext)
}

// SetTimeContextCommand changes the dashboard time window.
type SetTimeContextCommand struct {
	service timeService
}

// NewSetTimeContextCommand creates the command.
func NewSetTimeContextCommand(service timeService) *SetTimeContextCommand {
	return &SetTimeContextCommand{service: service}
}

var _ gocommand.Commander[SetTimeContextInput] = (*SetTimeContextCommand)(nil)

// Execute applies the time context.
func (c *SetTimeContextCommand) Execute(ctx context.Context, msg SetTimeContextInput) error {
	if c.service == nil {
		return missingService("time context")
	}
	c.service.SetTimeContext(ctx, msg.TimeContext)
	return nil
}
