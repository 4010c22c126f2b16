package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

// AddWidgetInput names the palette entry to place.
type AddWidgetInput struct {
	Type string `json:"type"`
}

type addService interface {
	AddWidget(ctx context.Context, rawType string) (dashboard.Widget, error)
}

// AddWidgetCommand places a widget with its type defaults.
type AddWidgetCommand struct {
	service   addService
	telemetry Telemetry
}

// NewAddWidgetCommand creates a command instance.
func NewAddWidgetCommand(service addService, telemetry Telemetry) *AddWidgetCommand {
	return &AddWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[AddWidgetInput] = (*AddWidgetCommand)(nil)

// Execute delegates to the designer service.
func (c *AddWidgetCommand) Execute(ctx context.Context, msg AddWidgetInput) error {
	if c.service == nil {
		return missingService("add widget")
	}
	if msg.Type == "" {
		return errors.New("add widget command requires type")
	}
	w, err := c.service.AddWidget(ctx, msg.Type)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "designer.command.add_widget", map[string]any{
		"widget_id": w.ID,
		"type":      string(w.Type),
	})
	return nil
}

// RemoveWidgetInput identifies the widget to remove.
type RemoveWidgetInput struct {
	WidgetID string `json:"widget_id"`
}

type removeService interface {
	RemoveWidget(ctx context.Context, widgetID string) error
}

// RemoveWidgetCommand wraps Service.RemoveWidget.
type RemoveWidgetCommand struct {
	service   removeService
	telemetry Telemetry
}

// NewRemoveWidgetCommand builds a command instance.
func NewRemoveWidgetCommand(service removeService, telemetry Telemetry) *RemoveWidgetCommand {
	return &RemoveWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RemoveWidgetInput] = (*RemoveWidgetCommand)(nil)

// Execute removes the widget.
func (c *RemoveWidgetCommand) Execute(ctx context.Context, msg RemoveWidgetInput) error {
	if c.service == nil {
		return missingService("remove")
	}
	if err := c.service.RemoveWidget(ctx, msg.WidgetID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "designer.command.remove_widget", map[string]any{"widget_id": msg.WidgetID})
	return nil
}

// UpdateWidgetInput carries either a submitted property form or a full widget.
// The form wins when both are set.
type UpdateWidgetInput struct {
	WidgetID string                `json:"widget_id"`
	Form     *dashboard.WidgetForm `json:"form,omitempty"`
	Widget   *dashboard.Widget     `json:"widget,omitempty"`
}

type updateService interface {
	ApplyForm(ctx context.Context, id string, form dashboard.WidgetForm) (dashboard.Widget, error)
	UpdateWidget(ctx context.Context, w dashboard.Widget) error
}

// UpdateWidgetCommand wraps Service.ApplyForm and Service.UpdateWidget.
type UpdateWidgetCommand struct {
	service   updateService
	telemetry Telemetry
}

// NewUpdateWidgetCommand creates the command.
func NewUpdateWidgetCommand(service updateService, telemetry Telemetry) *UpdateWidgetCommand {
	return &UpdateWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateWidgetInput] = (*UpdateWidgetCommand)(nil)

// Execute updates the widget.
func (c *UpdateWidgetCommand) Execute(ctx context.Context, msg UpdateWidgetInput) error {
	if c.service == nil {
		return missingService("update")
	}
	if msg.WidgetID == "" {
		return errors.New("update command requires widget id")
	}
	switch {
	case msg.Form != nil:
		if _, err := c.service.ApplyForm(ctx, msg.WidgetID, *msg.Form); err != nil {
			return err
		}
	case msg.Widget != nil:
		w := msg.Widget.Clone()
		if w.ID == "" {
			w.ID = msg.WidgetID
		}
		if w.ID != msg.WidgetID {
			return errors.New("update command widget id mismatch")
		}
		if err := c.service.UpdateWidget(ctx, w); err != nil {
			return err
		}
	default:
		return errors.New("update command requires form or widget")
	}
	c.telemetry.Record(ctx, "designer.command.update_widget", map[string]any{
		"widget_id": msg.WidgetID,
		"form":      msg.Form != nil,
	})
	return nil
}

// ApplyLayoutInput carries grid item-change events.
type ApplyLayoutInput struct {
	Items []dashboard.LayoutItem `json:"items"`
}

type layoutService interface {
	ApplyLayout(ctx context.Context, items []dashboard.LayoutItem) error
}

// ApplyLayoutCommand stores new widget positions and sizes.
type ApplyLayoutCommand struct {
	service   layoutService
	telemetry Telemetry
}

// NewApplyLayoutCommand creates the command.
func NewApplyLayoutCommand(service layoutService, telemetry Telemetry) *ApplyLayoutCommand {
	return &ApplyLayoutCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ApplyLayoutInput] = (*ApplyLayoutCommand)(nil)

// Execute applies the layout batch.
func (c *ApplyLayoutCommand) Execute(ctx context.Context, msg ApplyLayoutInput) error {
	if c.service == nil {
		return missingService("layout")
	}
	if len(msg.Items) == 0 {
		return nil
	}
	if err := c.service.ApplyLayout(ctx, msg.Items); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "designer.command.layout", map[string]any{"count": len(msg.Items)})
	return nil
}

// RetryWidgetInput identifies a widget to reload.
type RetryWidgetInput struct {
	WidgetID string `json:"widget_id"`
}

type retryService interface {
	Retry(ctx context.Context, widgetID string) error
}

// RetryWidgetCommand reloads a widget after an error.
type RetryWidgetCommand struct {
	service   retryService
	telemetry Telemetry
}

// NewRetryWidgetCommand creates the command.
func NewRetryWidgetCommand(service retryService, telemetry Telemetry) *RetryWidgetCommand {
	return &RetryWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RetryWidgetInput] = (*RetryWidgetCommand)(nil)

// Execute retries the widget.
func (c *RetryWidgetCommand) Execute(ctx context.Context, msg RetryWidgetInput) error {
	if c.service == nil {
		return missingService("retry")
	}
	if err := c.service.Retry(ctx, msg.WidgetID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "designer.command.retry", map[string]any{"widget_id": msg.WidgetID})
	return nil
}

// ResizeWidgetInput is a container measurement reported by the canvas.
type ResizeWidgetInput struct {
	WidgetID string  `json:"widget_id"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

type resizeService interface {
	Resize(ctx context.Context, widgetID string, d dashboard.Dimensions) (dashboard.WidgetSnapshot, error)
}

// ResizeWidgetCommand re-renders a widget for a new container size.
type ResizeWidgetCommand struct {
	service resizeService
}

// NewResizeWidgetCommand creates the command.
func NewResizeWidgetCommand(service resizeService) *ResizeWidgetCommand {
	return &ResizeWidgetCommand{service: service}
}

var _ gocommand.Commander[ResizeWidgetInput] = (*ResizeWidgetCommand)(nil)

// Execute records the measurement.
func (c *ResizeWidgetCommand) Execute(ctx context.Context, msg ResizeWidgetInput) error {
	if c.service == nil {
		return missingService("resize")
	}
	_, err := c.service.Resize(ctx, msg.WidgetID, dashboard.Dimensions{Width: msg.Width, Height: msg.Height})
	return err
}
