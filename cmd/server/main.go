package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"b2b-tenancy/internal/audit"
	"b2b-tenancy/internal/config"
	"b2b-tenancy/internal/db"
	"b2b-tenancy/internal/db/migrate"
	identityservice "b2b-tenancy/internal/identity/service"
	invitationservice "b2b-tenancy/internal/invitation/service"
	membershipservice "b2b-tenancy/internal/membership/service"
	organizationservice "b2b-tenancy/internal/organization/service"
	"b2b-tenancy/internal/platform/logging"
	"b2b-tenancy/internal/policy/engine"
	policyservice "b2b-tenancy/internal/policy/service"
	"b2b-tenancy/internal/security"
	"b2b-tenancy/internal/server"
	"b2b-tenancy/internal/server/interceptors"
	"b2b-tenancy/internal/store"
	"b2b-tenancy/internal/store/memstore"
	teamservice "b2b-tenancy/internal/team/service"
	"b2b-tenancy/internal/telemetry"
	"b2b-tenancy/internal/telemetry/otel"
	"b2b-tenancy/internal/telemetry/producer"
	"b2b-tenancy/internal/tenancy"
	userservice "b2b-tenancy/internal/user/service"
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

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, otel.Settings{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.OTELServiceName,
		Environment: cfg.AppEnv,
		Insecure:    cfg.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatal("otel providers", zap.Error(err))
	}
	providers.SetGlobal()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider.Meter("b2b-tenancy"))
	if err != nil {
		logger.Fatal("metrics", zap.Error(err))
	}

	st, conn, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}
	if conn != nil {
		defer conn.Close()
	}

	var tokens *security.TokenProvider
	if cfg.AuthEnabled() {
		signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			logger.Fatal("jwt keys", zap.Error(err))
		}
		tokens = security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	} else {
		logger.Warn("JWT keys not configured; authentication RPCs are disabled and protected RPCs are rejected")
	}

	events := telemetry.Multi{otel.NewEventPublisher(providers.LoggerProvider)}
	var kafka *producer.KafkaPublisher
	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		kafka = producer.NewKafkaPublisher(brokers, cfg.InvitationEventsTopic)
		events = append(events, kafka)
		logger.Info("invitation events to kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.InvitationEventsTopic))
	}

	recorder := audit.NewLogger(st.AuditLogs(), interceptors.ClientIP, logger)
	evaluator := engine.NewOPAEvaluator(st.Policies(), logger)
	ledger := membershipservice.NewLedger(st, recorder, metrics, logger)
	resolver := tenancy.NewResolver(st.Organizations(), st.Memberships(), metrics, logger)

	deps := server.Deps{
		Authorizer:          resolver,
		Users:               userservice.NewService(st, logger),
		Organizations:       organizationservice.NewService(st, ledger, recorder, logger),
		Ledger:              ledger,
		Teams:               teamservice.NewService(st, recorder, logger),
		Invitations:         invitationservice.NewService(st, ledger, evaluator, events, recorder, metrics, logger, cfg.InvitationLifetime()),
		Policies:            policyservice.NewService(st, recorder),
		AuditRepo:           st.AuditLogs(),
		HealthPinger:        st,
		HealthPolicyChecker: evaluator,
		StandardHealth:      health.NewServer(),
	}
	opts := server.Options{
		Logger:         logger,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}
	if tokens != nil {
		deps.Auth = identityservice.NewAuthService(st, security.NewHasher(cfg.BcryptCost), tokens, logger)
		opts.Tokens = tokens
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	defer lis.Close()

	s := server.NewGRPCServer(opts)
	server.RegisterServices(s, deps)
	deps.StandardHealth.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := s.Serve(lis); err != nil {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gRPC server")
	deps.StandardHealth.Shutdown()
	s.GracefulStop()

	// Give async invitation publishes time to finish before closing publishers.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if kafka != nil {
		if err := kafka.Close(); err != nil {
			logger.Warn("kafka close", zap.Error(err))
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
	logger.Info("gRPC server stopped")
}

// openStore returns the Postgres store when DATABASE_URL is set and the
// in-memory store otherwise. conn is nil for the in-memory store.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; using the in-memory store")
		return memstore.New(), nil, nil
	}
	if cfg.AutoMigrate {
		if err := migrate.Run(cfg.DatabaseURL, migrate.Up, logger); err != nil {
			return nil, nil, err
		}
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgres(conn), conn, nil
}
