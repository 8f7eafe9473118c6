// seed inserts development sample data for local testing: go run ./cmd/seed
// Idempotent: skips everything if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/zap"

	"b2b-tenancy/internal/config"
	"b2b-tenancy/internal/db"
	identityservice "b2b-tenancy/internal/identity/service"
	invitationservice "b2b-tenancy/internal/invitation/service"
	memberdomain "b2b-tenancy/internal/membership/domain"
	membershipservice "b2b-tenancy/internal/membership/service"
	organizationservice "b2b-tenancy/internal/organization/service"
	"b2b-tenancy/internal/platform/logging"
	"b2b-tenancy/internal/policy/engine"
	policyservice "b2b-tenancy/internal/policy/service"
	"b2b-tenancy/internal/security"
	"b2b-tenancy/internal/store"
	teamservice "b2b-tenancy/internal/team/service"
)

const (
	devUserEmail  = "dev@example.com"
	devPassword   = "password123"
	adminEmail    = "admin@example.com"
	memberEmail   = "member@example.com"
	inviteeEmail  = "invitee@example.com"
	devOrgName    = "Dev Org"
	devTeamName   = "Platform"
	devPolicyName = "Default admission"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; put it in .env or the environment")
	}
	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	defer conn.Close()
	st := store.NewPostgres(conn)

	existing, err := st.Users().GetByEmail(ctx, devUserEmail)
	if err != nil {
		logger.Fatal("check dev user", zap.Error(err))
	}
	if existing != nil {
		logger.Info("dev user already exists; skipping seed", zap.String("email", devUserEmail))
		return
	}
	if err := seed(ctx, st, cfg, logger); err != nil {
		logger.Fatal("seed", zap.Error(err))
	}
}

func seed(ctx context.Context, st store.Store, cfg *config.Config, logger *zap.Logger) error {
	// Register never issues tokens, so no token provider is needed.
	auth := identityservice.NewAuthService(st, security.NewHasher(cfg.BcryptCost), nil, logger)
	ledger := membershipservice.NewLedger(st, nil, nil, logger)
	orgs := organizationservice.NewService(st, ledger, nil, logger)
	teams := teamservice.NewService(st, nil, logger)
	policies := policyservice.NewService(st, nil)
	invitations := invitationservice.NewService(st, ledger, engine.NewOPAEvaluator(st.Policies(), logger), nil, nil, nil, logger, cfg.InvitationLifetime())

	owner, err := auth.Register(ctx, devUserEmail, devPassword, "Dev User")
	if err != nil {
		return fmt.Errorf("register %s: %w", devUserEmail, err)
	}
	admin, err := auth.Register(ctx, adminEmail, devPassword, "Admin User")
	if err != nil {
		return fmt.Errorf("register %s: %w", adminEmail, err)
	}
	member, err := auth.Register(ctx, memberEmail, devPassword, "Member User")
	if err != nil {
		return fmt.Errorf("register %s: %w", memberEmail, err)
	}

	created, err := orgs.Create(ctx, owner.UserID, organizationservice.CreateParams{Name: devOrgName})
	if err != nil {
		return fmt.Errorf("create org: %w", err)
	}
	orgID := created.Org.ID
	if _, err := ledger.Create(ctx, orgID, admin.UserID, memberdomain.RoleAdmin); err != nil {
		return fmt.Errorf("add admin: %w", err)
	}
	memberMembership, err := ledger.Create(ctx, orgID, member.UserID, memberdomain.RoleMember)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}

	team, err := teams.Create(ctx, created.Membership, devTeamName, "", "Seeded team")
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	if err := teams.AddMember(ctx, created.Membership, team.ID, memberMembership.ID); err != nil {
		return fmt.Errorf("add team member: %w", err)
	}

	if _, err := policies.Create(ctx, orgID, owner.UserID, devPolicyName, engine.DefaultPolicy, true); err != nil {
		return fmt.Errorf("create policy: %w", err)
	}

	issued, err := invitations.Create(ctx, created.Membership, invitationservice.CreateParams{
		Email:   inviteeEmail,
		Role:    memberdomain.RoleMember,
		Message: "Welcome to the dev org",
		TeamIDs: []string{team.ID},
	})
	if err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}

	logger.Info("seed complete",
		zap.String("org_id", orgID),
		zap.String("org_slug", created.Org.Slug),
		zap.String("owner_email", devUserEmail),
		zap.String("admin_email", adminEmail),
		zap.String("member_email", memberEmail),
		zap.String("password", devPassword),
		zap.String("team_id", team.ID),
		zap.String("invitation_id", issued.Invitation.ID),
	)
	// The raw token is shown once so the invitation can be accepted locally.
	fmt.Printf("invitation token for %s: %s\n", inviteeEmail, issued.Token)
	return nil
}
