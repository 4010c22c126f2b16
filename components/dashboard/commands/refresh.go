package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

// RefreshWidgetInput emits a widget event to the refresh hooks.
type RefreshWidgetInput struct {
	Event dashboard.WidgetEvent `json:"event"`
}

type refreshNotifier interface {
	NotifyWidgetUpdated(ctx context.Context, event dashboard.WidgetEvent) error
}

// RefreshWidgetCommand triggers refresh hooks without forcing transports.
type RefreshWidgetCommand struct {
	service   refreshNotifier
	telemetry Telemetry
}

// NewRefreshWidgetCommand creates the command.
func NewRefreshWidgetCommand(service refreshNotifier, telemetry Telemetry) *RefreshWidgetCommand {
	return &RefreshWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshWidgetInput] = (*RefreshWidgetCommand)(nil)

// Execute notifies the designer service's refresh hooks.
func (c *RefreshWidgetCommand) Execute(ctx context.Context, msg RefreshWidgetInput) error {
	if c.service == nil {
		return missingService("refresh")
	}
	if msg.Event.Reason == "" {
		msg.Event.Reason = "refresh"
	}
	if err := c.service.NotifyWidgetUpdated(ctx, msg.Event); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "designer.command.refresh", map[string]any{
		"dashboard_id": msg.Event.DashboardID,
		"widget_id":    msg.Event.WidgetID,
	})
	return nil
}
