package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	memberdomain "b2b-tenancy/internal/membership/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/telemetry"
	userdomain "b2b-tenancy/internal/user/domain"
)

// MaxBulkEmails bounds the addresses accepted by one BulkCreate call.
const MaxBulkEmails = 100

// BulkCreateParams invites several addresses with the same role and message.
type BulkCreateParams struct {
	Emails  []string
	Role    memberdomain.Role
	Message string
	TeamIDs []string
	TTL     time.Duration
}

// BulkFailure is an address that was not invited. Err carries an errs kind.
type BulkFailure struct {
	Email string
	Err   error
}

// BulkResult lists what BulkCreate issued and what it skipped, in request order.
type BulkResult struct {
	Sent   []*Issued
	Failed []BulkFailure
}

// BulkCreate invites each address through Create. Addresses fail one by one:
// existing members, addresses with a pending invitation, repeats within the
// request, invalid addresses and policy rejections land in Failed while the
// rest are still invited. Problems with the request as a whole (role,
// permission, list size) fail the call before anything is issued. An error
// that is not about the address stops the loop and is returned together with
// what was issued so far.
func (s *Service) BulkCreate(ctx context.Context, actor *memberdomain.Membership, p BulkCreateParams) (res *BulkResult, err error) {
	ctx, span := tracer.Start(ctx, "invitation.BulkCreate", trace.WithAttributes(
		attribute.String("org.id", actor.OrgID), attribute.Int("emails", len(p.Emails))))
	defer func() { telemetry.End(span, err) }()

	switch {
	case len(p.Emails) == 0:
		return nil, errs.New(errs.ErrInvalidArgument, "at least one email is required")
	case len(p.Emails) > MaxBulkEmails:
		return nil, errs.Newf(errs.ErrInvalidArgument, "at most %d emails per request", MaxBulkEmails)
	case p.Role == memberdomain.RoleOwner:
		return nil, errs.New(errs.ErrInvariantViolation, "ownership cannot be granted by invitation")
	case !p.Role.Valid():
		return nil, errs.New(errs.ErrInvalidArgument, "role is required")
	case p.TTL < 0:
		return nil, errs.New(errs.ErrInvalidArgument, "ttl must be positive")
	}
	if err := canInvite(actor, p.Role); err != nil {
		return nil, err
	}

	res = &BulkResult{}
	seen := make(map[string]bool, len(p.Emails))
	for _, raw := range p.Emails {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		email := userdomain.NormalizeEmail(raw)
		if seen[email] {
			res.Failed = append(res.Failed, BulkFailure{
				Email: email,
				Err:   errs.Newf(errs.ErrConflict, "%s is listed more than once", email),
			})
			continue
		}
		seen[email] = true

		issued, err := s.Create(ctx, actor, CreateParams{
			Email:   email,
			Role:    p.Role,
			Message: p.Message,
			TeamIDs: p.TeamIDs,
			TTL:     p.TTL,
		})
		if err == nil {
			res.Sent = append(res.Sent, issued)
			continue
		}
		if !perAddress(err) {
			return res, err
		}
		res.Failed = append(res.Failed, BulkFailure{Email: email, Err: err})
	}
	s.logger.Info("invitation: bulk create",
		zap.String("org_id", actor.OrgID), zap.Int("sent", len(res.Sent)), zap.Int("failed", len(res.Failed)))
	return res, nil
}

// perAddress reports whether err concerns one address rather than the caller
// or the storage.
func perAddress(err error) bool {
	switch {
	case errors.Is(err, errs.ErrConflict), errors.Is(err, errs.ErrInvalidArgument):
		return true
	case errors.Is(err, errs.ErrForbidden):
		// canInvite passed up front, so a Forbidden here is an admission policy rejection.
		return true
	}
	return false
}
