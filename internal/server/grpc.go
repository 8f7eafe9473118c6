package server

import (
	"errors"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	apiv1 "b2b-tenancy/api/v1"
	audithandler "b2b-tenancy/internal/audit/handler"
	auditrepo "b2b-tenancy/internal/audit/repository"
	healthhandler "b2b-tenancy/internal/health/handler"
	identityhandler "b2b-tenancy/internal/identity/handler"
	identityservice "b2b-tenancy/internal/identity/service"
	invitationhandler "b2b-tenancy/internal/invitation/handler"
	invitationservice "b2b-tenancy/internal/invitation/service"
	membershiphandler "b2b-tenancy/internal/membership/handler"
	membershipservice "b2b-tenancy/internal/membership/service"
	organizationhandler "b2b-tenancy/internal/organization/handler"
	organizationservice "b2b-tenancy/internal/organization/service"
	"b2b-tenancy/internal/platform/rbac"
	policyhandler "b2b-tenancy/internal/policy/handler"
	policyservice "b2b-tenancy/internal/policy/service"
	"b2b-tenancy/internal/server/interceptors"
	teamhandler "b2b-tenancy/internal/team/handler"
	teamservice "b2b-tenancy/internal/team/service"
	userhandler "b2b-tenancy/internal/user/handler"
	userservice "b2b-tenancy/internal/user/service"
)

// Deps holds optional service dependencies for gRPC handlers. A nil service
// leaves its RPCs registered but returning Unimplemented.
type Deps struct {
	// Authorizer resolves the tenant of org-scoped RPCs (normally *tenancy.Resolver).
	Authorizer rbac.Authorizer

	Auth          *identityservice.AuthService
	Users         *userservice.Service
	Organizations *organizationservice.Service
	Ledger        *membershipservice.Ledger
	Teams         *teamservice.Service
	Invitations   *invitationservice.Service
	Policies      *policyservice.Service
	// AuditRepo backs ListAuditLogs.
	AuditRepo auditrepo.Repository

	// HealthPinger is used by HealthService for readiness (the store). If nil, HealthCheck skips it.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by HealthService for readiness (the OPA evaluator). If nil, HealthCheck skips it.
	HealthPolicyChecker healthhandler.PolicyChecker
	// StandardHealth, when set, is registered as grpc.health.v1.Health for load balancers.
	StandardHealth *health.Server
}

// RegisterServices registers all API services with the given server.
//
// Service → handler mapping:
//   - AuthService         → internal/identity/handler
//   - UserService         → internal/user/handler
//   - OrganizationService → internal/organization/handler
//   - MembershipService   → internal/membership/handler
//   - TeamService         → internal/team/handler
//   - InvitationService   → internal/invitation/handler
//   - PolicyService       → internal/policy/handler
//   - AuditService        → internal/audit/handler
//   - HealthService       → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	apiv1.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Auth))
	apiv1.RegisterUserServiceServer(s, userhandler.NewServer(deps.Users))
	apiv1.RegisterOrganizationServiceServer(s, organizationhandler.NewServer(deps.Authorizer, deps.Organizations))
	apiv1.RegisterMembershipServiceServer(s, membershiphandler.NewServer(deps.Authorizer, deps.Ledger))
	apiv1.RegisterTeamServiceServer(s, teamhandler.NewServer(deps.Authorizer, deps.Teams))
	apiv1.RegisterInvitationServiceServer(s, invitationhandler.NewServer(deps.Authorizer, deps.Invitations))
	apiv1.RegisterPolicyServiceServer(s, policyhandler.NewServer(deps.Authorizer, deps.Policies))
	apiv1.RegisterAuditServiceServer(s, audithandler.NewServer(deps.Authorizer, deps.AuditRepo))
	apiv1.RegisterHealthServiceServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker))
	if deps.StandardHealth != nil {
		healthpb.RegisterHealthServer(s, deps.StandardHealth)
	}
}

// PublicMethods are the RPCs callable without an access token.
func PublicMethods() map[string]bool {
	return map[string]bool{
		apiv1.FullMethod(apiv1.AuthServiceName, "Register"):               true,
		apiv1.FullMethod(apiv1.AuthServiceName, "Login"):                  true,
		apiv1.FullMethod(apiv1.AuthServiceName, "Refresh"):                true,
		apiv1.FullMethod(apiv1.InvitationServiceName, "LookupInvitation"): true,
		apiv1.FullMethod(apiv1.HealthServiceName, "HealthCheck"):          true,
		healthpb.Health_Check_FullMethodName:                              true,
		healthpb.Health_List_FullMethodName:                               true,
	}
}

// RateLimitedMethods are the RPCs that take a credential or an invitation token.
func RateLimitedMethods() map[string]bool {
	return map[string]bool{
		apiv1.FullMethod(apiv1.AuthServiceName, "Register"):                true,
		apiv1.FullMethod(apiv1.AuthServiceName, "Login"):                   true,
		apiv1.FullMethod(apiv1.AuthServiceName, "Refresh"):                 true,
		apiv1.FullMethod(apiv1.AuthServiceName, "ChangePassword"):          true,
		apiv1.FullMethod(apiv1.InvitationServiceName, "LookupInvitation"):  true,
		apiv1.FullMethod(apiv1.InvitationServiceName, "AcceptInvitation"):  true,
		apiv1.FullMethod(apiv1.InvitationServiceName, "DeclineInvitation"): true,
	}
}

// Options configures NewGRPCServer.
type Options struct {
	// Tokens validates access tokens. If nil every protected RPC is rejected.
	Tokens         interceptors.AccessTokenValidator
	Logger         *zap.Logger
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewGRPCServer returns a grpc.Server with OpenTelemetry instrumentation and
// the interceptor chain: logging, auth, then rate limiting.
func NewGRPCServer(opts Options, extra ...grpc.ServerOption) *grpc.Server {
	chain := []grpc.UnaryServerInterceptor{
		interceptors.LoggingUnary(opts.Logger, map[string]bool{
			apiv1.FullMethod(apiv1.HealthServiceName, "HealthCheck"): true,
			healthpb.Health_Check_FullMethodName:                     true,
		}),
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = rejectAll{}
	}
	chain = append(chain,
		interceptors.AuthUnary(tokens, PublicMethods()),
		interceptors.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, RateLimitedMethods()).Unary(),
	)
	serverOpts := append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	}, extra...)
	return grpc.NewServer(serverOpts...)
}

var errAuthDisabled = errors.New("authentication is not configured")

type rejectAll struct{}

func (rejectAll) ValidateAccess(string) (string, error) {
	return "", errAuthDisabled
}
