package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the ledger counters. A nil *Metrics records nothing.
type Metrics struct {
	membershipMutations   metric.Int64Counter
	invitationTransitions metric.Int64Counter
	authorizationDenials  metric.Int64Counter
}

// NewMetrics registers the counters on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	mm, err := meter.Int64Counter("tenancy.membership.mutations",
		metric.WithDescription("Committed membership ledger mutations by operation."))
	if err != nil {
		return nil, err
	}
	it, err := meter.Int64Counter("tenancy.invitation.transitions",
		metric.WithDescription("Committed invitation status changes by target status."))
	if err != nil {
		return nil, err
	}
	ad, err := meter.Int64Counter("tenancy.authorization.denials",
		metric.WithDescription("Requests refused by the tenancy resolver by action and reason."))
	if err != nil {
		return nil, err
	}
	return &Metrics{membershipMutations: mm, invitationTransitions: it, authorizationDenials: ad}, nil
}

func (m *Metrics) MembershipMutation(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.membershipMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *Metrics) InvitationTransition(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.invitationTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) AuthorizationDenied(ctx context.Context, action, reason string) {
	if m == nil {
		return
	}
	m.authorizationDenials.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("reason", reason),
	))
}
