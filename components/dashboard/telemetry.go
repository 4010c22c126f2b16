package dashboard

import (
	"context"

	"go.uber.org/zap"
)

// Telemetry records designer events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// ZapTelemetry writes every event as a structured debug entry.
type ZapTelemetry struct {
	logger *zap.Logger
}

// NewZapTelemetry records events on logger under the "telemetry" name.
func NewZapTelemetry(logger *zap.Logger) *ZapTelemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapTelemetry{logger: logger.Named("telemetry")}
}

// Record implements Telemetry.
func (t *ZapTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	fields := make([]zap.Field, 0, len(payload)+1)
	fields = append(fields, zap.String("event", event))
	for k, v := range payload {
		fields = append(fields, zap.Any(k, v))
	}
	t.logger.Debug(event, fields...)
}
