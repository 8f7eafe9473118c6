package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"b2b-tenancy/internal/telemetry"
	"b2b-tenancy/internal/telemetry/domain"
)

// recordEmitter is the subset of otellog.Logger used for emitting.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventPublisher mirrors invitation events as OTel log records. The raw
// token is never written. A nil provider yields a no-op publisher.
func NewEventPublisher(provider *sdklog.LoggerProvider) telemetry.EventPublisher {
	if provider == nil {
		return telemetry.Nop{}
	}
	return &logPublisher{logger: provider.Logger("b2b-tenancy.invitations")}
}

// NewEventPublisherWithLogger is for tests that capture records.
func NewEventPublisherWithLogger(logger recordEmitter) telemetry.EventPublisher {
	return &logPublisher{logger: logger}
}

type logPublisher struct {
	logger recordEmitter
}

func (p *logPublisher) Publish(ctx context.Context, event *domain.InvitationEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue(event.Type))
	rec.AddAttributes(
		otellog.String("event_type", event.Type),
		otellog.String("invitation_id", event.InvitationID),
		otellog.String("org_id", event.OrgID),
		otellog.String("email", event.Email),
		otellog.String("role", event.Role),
		otellog.String("invited_by", event.InvitedBy),
		otellog.String("expires_at", event.ExpiresAt.UTC().Format(time.RFC3339)),
	)
	p.logger.Emit(ctx, rec)
	return nil
}
