package handler

import (
	"context"
	"time"

	apiv1 "b2b-tenancy/api/v1"
)

const checkTimeout = 2 * time.Second

// Pinger checks that storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PolicyChecker checks that the policy engine can evaluate.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server implements HealthService for readiness and liveness probes.
type Server struct {
	db     Pinger
	policy PolicyChecker
}

var _ apiv1.HealthServiceServer = (*Server)(nil)

// NewServer returns a new Health gRPC server. Either dependency may be nil and is then skipped.
func NewServer(db Pinger, policy PolicyChecker) *Server {
	return &Server{db: db, policy: policy}
}

// HealthCheck reports NOT_SERVING when any check fails. Failures are reported
// in the response, never as a gRPC error.
func (s *Server) HealthCheck(ctx context.Context, _ *apiv1.Empty) (*apiv1.HealthCheckResponse, error) {
	resp := &apiv1.HealthCheckResponse{Status: apiv1.HealthServing, Checks: map[string]string{}}
	check := func(name string, fn func(context.Context) error) {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()
		if err := fn(cctx); err != nil {
			resp.Status = apiv1.HealthNotServing
			resp.Checks[name] = err.Error()
			return
		}
		resp.Checks[name] = "ok"
	}
	if s.db != nil {
		check("database", s.db.Ping)
	}
	if s.policy != nil {
		check("policy_engine", s.policy.HealthCheck)
	}
	return resp, nil
}
