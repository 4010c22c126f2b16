package dashboard

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// RefreshHooks fans a widget event out to several hooks. Every hook runs; the
// errors are joined.
type RefreshHooks []RefreshHook

// WidgetUpdated forwards the event to each hook in order.
func (hooks RefreshHooks) WidgetUpdated(ctx context.Context, event WidgetEvent) error {
	var errs []error
	for _, h := range hooks {
		if h == nil {
			continue
		}
		if err := h.WidgetUpdated(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogHook records widget events at debug level.
type LogHook struct {
	Logger *zap.Logger
}

func (h LogHook) WidgetUpdated(_ context.Context, event WidgetEvent) error {
	if h.Logger == nil {
		return nil
	}
	fields := []zap.Field{
		zap.String("reason", event.Reason),
		zap.String("widget_id", event.WidgetID),
	}
	if event.DashboardID != "" {
		fields = append(fields, zap.String("dashboard_id", event.DashboardID))
	}
	if event.Snapshot != nil {
		fields = append(fields, zap.String("state", string(event.Snapshot.State)))
	}
	h.Logger.Debug("widget event", fields...)
	return nil
}
