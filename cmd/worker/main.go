// Worker consumes invitation events from Kafka and delivers the invitation
// link. Delivery is a structured log line; swap deliver for a mail client.
// Set KAFKA_BROKERS, INVITATION_EVENTS_TOPIC, KAFKA_GROUP_ID and INVITATION_ACCEPT_URL.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"b2b-tenancy/internal/config"
	"b2b-tenancy/internal/platform/logging"
	"b2b-tenancy/internal/telemetry/consumer"
	"b2b-tenancy/internal/telemetry/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal("worker: KAFKA_BROKERS is required")
	}

	c := consumer.NewKafkaConsumer(brokers, cfg.InvitationEventsTopic, cfg.KafkaGroupID, logger)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("worker: shutting down")
		cancel()
	}()

	logger.Info("worker: consuming invitation events",
		zap.String("topic", cfg.InvitationEventsTopic),
		zap.String("group", cfg.KafkaGroupID))

	if err := c.Run(ctx, deliver(logger, cfg.InvitationAcceptURL, cfg.IsProduction())); err != nil {
		logger.Error("worker: stopped", zap.Error(err))
		return
	}
	logger.Info("worker: stopped")
}

// deliver returns the event handler. The accept link carries the raw token,
// so it is only logged outside production.
func deliver(logger *zap.Logger, acceptURL string, production bool) consumer.Handler {
	return func(_ context.Context, e *domain.InvitationEvent) error {
		fields := []zap.Field{
			zap.String("event_type", e.Type),
			zap.String("invitation_id", e.InvitationID),
			zap.String("org", e.OrgName),
			zap.String("to", e.Email),
			zap.String("role", e.Role),
			zap.Time("expires_at", e.ExpiresAt),
		}
		if !production {
			fields = append(fields, zap.String("accept_url", acceptURL+e.Token))
		}
		logger.Info("invitation delivered", fields...)
		return nil
	}
}
