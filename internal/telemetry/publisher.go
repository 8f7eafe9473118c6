// Package telemetry carries the invitation event stream and the service metrics.
package telemetry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"b2b-tenancy/internal/telemetry/domain"
)

// publishTimeout bounds a single async publish.
const publishTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after GracefulStop before closing
// publishers so in-flight async publishes can finish.
const ShutdownDrainDuration = publishTimeout

// EventPublisher delivers invitation events. Best-effort; callers log and ignore errors.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.InvitationEvent) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, *domain.InvitationEvent) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []EventPublisher

func (m Multi) Publish(ctx context.Context, event *domain.InvitationEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishAsync publishes in a goroutine so the request is not blocked. The
// goroutine does not inherit cancellation from ctx; errors are logged.
func PublishAsync(ctx context.Context, publisher EventPublisher, logger *zap.Logger, event *domain.InvitationEvent) {
	if publisher == nil || event == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := publisher.Publish(pubCtx, event); err != nil {
			logger.Warn("telemetry: publish invitation event failed",
				zap.String("type", event.Type),
				zap.String("invitation_id", event.InvitationID),
				zap.Error(err))
		}
	}()
}
