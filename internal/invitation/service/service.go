// Package service is the invitation ledger: offers of membership addressed
// to an email, redeemed once with a secret token before they expire.
//
// Expiration is lazy. Any operation that reads a pending invitation past its
// expires_at first records it as expired; nothing sweeps in the background.
package service

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"b2b-tenancy/internal/audit"
	"b2b-tenancy/internal/invitation/domain"
	memberdomain "b2b-tenancy/internal/membership/domain"
	memberservice "b2b-tenancy/internal/membership/service"
	orgdomain "b2b-tenancy/internal/organization/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/policy/engine"
	"b2b-tenancy/internal/security"
	"b2b-tenancy/internal/store"
	"b2b-tenancy/internal/telemetry"
	teldomain "b2b-tenancy/internal/telemetry/domain"
	userdomain "b2b-tenancy/internal/user/domain"
)

var tracer = otel.Tracer("b2b-tenancy/internal/invitation/service")

// DefaultTTL is used when the service is built with a zero lifetime.
const DefaultTTL = 7 * 24 * time.Hour

// Service implements the invitation lifecycle.
type Service struct {
	store   store.Store
	ledger  *memberservice.Ledger
	policy  engine.Evaluator
	events  telemetry.EventPublisher
	audit   audit.Recorder
	metrics *telemetry.Metrics
	logger  *zap.Logger
	ttl     time.Duration
	now     func() time.Time
}

// NewService returns a Service. policy, events, recorder, metrics and logger
// may be nil; a nil policy admits every invitation.
func NewService(
	st store.Store,
	ledger *memberservice.Ledger,
	policy engine.Evaluator,
	events telemetry.EventPublisher,
	recorder audit.Recorder,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
	ttl time.Duration,
) *Service {
	if events == nil {
		events = telemetry.Nop{}
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:   st,
		ledger:  ledger,
		policy:  policy,
		events:  events,
		audit:   recorder,
		metrics: metrics,
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
	}
}

// CreateParams describes a new invitation. A zero TTL uses the service default.
type CreateParams struct {
	Email   string
	Role    memberdomain.Role
	Message string
	TeamIDs []string
	TTL     time.Duration
}

// Issued is an invitation together with its raw token. The token is not
// stored and cannot be recovered later.
type Issued struct {
	Invitation *domain.Invitation
	Token      string
}

// Create invites p.Email into the actor's organization.
func (s *Service) Create(ctx context.Context, actor *memberdomain.Membership, p CreateParams) (out *Issued, err error) {
	ctx, span := tracer.Start(ctx, "invitation.Create", trace.WithAttributes(
		attribute.String("org.id", actor.OrgID), attribute.String("role", p.Role.String())))
	defer func() { telemetry.End(span, err) }()

	email := userdomain.NormalizeEmail(p.Email)
	if err := userdomain.ValidateEmail(email); err != nil {
		return nil, errs.New(errs.ErrInvalidArgument, err.Error())
	}
	if p.Role == memberdomain.RoleOwner {
		return nil, errs.New(errs.ErrInvariantViolation, "ownership cannot be granted by invitation")
	}
	if !p.Role.Valid() {
		return nil, errs.New(errs.ErrInvalidArgument, "role is required")
	}
	if p.TTL < 0 {
		return nil, errs.New(errs.ErrInvalidArgument, "ttl must be positive")
	}
	if err := canInvite(actor, p.Role); err != nil {
		return nil, err
	}
	org, err := s.store.Organizations().GetOrganizationByID(ctx, actor.OrgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, errs.New(errs.ErrNotAMember, "caller is not a member of this organization")
	}
	if err := s.admit(ctx, org, actor, email, p.Role); err != nil {
		return nil, err
	}

	token, fingerprint, err := security.GenerateInviteToken()
	if err != nil {
		return nil, err
	}
	ttl := p.TTL
	if ttl == 0 {
		ttl = s.ttl
	}
	teamIDs := compactIDs(p.TeamIDs)

	var (
		inv     *domain.Invitation
		expired []*domain.Invitation
	)
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		expired = nil
		cur, err := lockActor(ctx, tx, actor)
		if err != nil {
			return err
		}
		if err := canInvite(cur, p.Role); err != nil {
			return err
		}
		for _, id := range teamIDs {
			t, err := tx.Teams().GetTeamByID(ctx, id)
			if err != nil {
				return err
			}
			if t == nil || t.OrgID != cur.OrgID {
				return errs.Newf(errs.ErrNotFound, "team %s not found", id)
			}
		}
		u, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if u != nil {
			m, err := tx.Memberships().GetMembershipByUserAndOrg(ctx, u.ID, cur.OrgID)
			if err != nil {
				return err
			}
			if m != nil {
				return errs.Newf(errs.ErrConflict, "%s is already a member", email)
			}
		}
		pending, err := tx.Invitations().GetPendingInvitation(ctx, cur.OrgID, email)
		if err != nil {
			return err
		}
		if pending != nil {
			lapsed, err := s.expireIfDue(ctx, tx, pending)
			if err != nil {
				return err
			}
			if !lapsed {
				return errs.Newf(errs.ErrConflict, "%s already has a pending invitation", email)
			}
			expired = append(expired, pending)
		}
		now := s.now().UTC()
		inv = &domain.Invitation{
			ID:        uuid.Must(uuid.NewV7()).String(),
			OrgID:     cur.OrgID,
			Email:     email,
			Role:      p.Role,
			Status:    domain.StatusPending,
			TokenHash: fingerprint,
			Message:   p.Message,
			InvitedBy: cur.UserID,
			TeamIDs:   teamIDs,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Invitations().CreateInvitation(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	s.recordExpired(ctx, expired)
	s.recordTransition(ctx, actor.UserID, inv, audit.ActionInvitationCreated, map[string]string{
		"email": inv.Email, "role": inv.Role.String(),
	})
	s.publish(ctx, teldomain.EventInvitationCreated, org, inv, token)
	return &Issued{Invitation: inv, Token: token}, nil
}

// Accept redeems token for userID: the membership (and any team links) is
// created and the invitation marked accepted in one transaction. An
// invitation found past its expiry is recorded as expired before Expired is
// returned.
func (s *Service) Accept(ctx context.Context, token, userID string) (m *memberdomain.Membership, inv *domain.Invitation, err error) {
	ctx, span := tracer.Start(ctx, "invitation.Accept")
	defer func() { telemetry.End(span, err) }()

	var lapsed bool
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		cur, wasLapsed, err := s.redeemable(ctx, tx, token, userID)
		lapsed = wasLapsed
		if err != nil || lapsed {
			inv = cur
			return err
		}
		existing, err := tx.Memberships().GetMembershipByUserAndOrg(ctx, userID, cur.OrgID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.New(errs.ErrConflict, "already a member of this organization")
		}
		m, err = s.ledger.CreateTx(ctx, tx, cur.OrgID, userID, cur.Role)
		if err != nil {
			return err
		}
		for _, teamID := range cur.TeamIDs {
			t, err := tx.Teams().GetTeamByID(ctx, teamID)
			if err != nil {
				return err
			}
			// Teams deleted since the invitation was sent are skipped.
			if t == nil || t.OrgID != cur.OrgID {
				continue
			}
			if err := tx.Teams().AddTeamMember(ctx, teamID, m.ID); err != nil {
				return err
			}
		}
		if err := s.transition(ctx, tx, cur, domain.StatusAccepted); err != nil {
			return err
		}
		inv = cur
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if lapsed {
		s.recordExpired(ctx, []*domain.Invitation{inv})
		return nil, nil, errs.New(errs.ErrExpired, "invitation has expired")
	}
	s.recordTransition(ctx, userID, inv, audit.ActionInvitationAccepted, map[string]string{"membership_id": m.ID})
	s.metrics.MembershipMutation(ctx, "create")
	s.audit.Record(ctx, audit.Event{
		OrgID:    m.OrgID,
		UserID:   userID,
		Action:   audit.ActionMemberAdded,
		Resource: "membership/" + m.ID,
		Metadata: map[string]string{"user_id": userID, "role": m.Role.String(), "invitation_id": inv.ID},
	})
	return m, inv, nil
}

// Decline refuses the invitation behind token on behalf of userID.
func (s *Service) Decline(ctx context.Context, token, userID string) (inv *domain.Invitation, err error) {
	ctx, span := tracer.Start(ctx, "invitation.Decline")
	defer func() { telemetry.End(span, err) }()

	var lapsed bool
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		cur, wasLapsed, err := s.redeemable(ctx, tx, token, userID)
		lapsed = wasLapsed
		inv = cur
		if err != nil || lapsed {
			return err
		}
		return s.transition(ctx, tx, cur, domain.StatusDeclined)
	})
	if err != nil {
		return nil, err
	}
	if lapsed {
		s.recordExpired(ctx, []*domain.Invitation{inv})
		return nil, errs.New(errs.ErrExpired, "invitation has expired")
	}
	s.recordTransition(ctx, userID, inv, audit.ActionInvitationDeclined, nil)
	return inv, nil
}

// Cancel withdraws a pending invitation.
func (s *Service) Cancel(ctx context.Context, actor *memberdomain.Membership, invitationID string) (inv *domain.Invitation, err error) {
	ctx, span := tracer.Start(ctx, "invitation.Cancel", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	var lapsed bool
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		cur, wasLapsed, err := s.managed(ctx, tx, actor, invitationID, false)
		lapsed = wasLapsed
		inv = cur
		if err != nil || lapsed {
			return err
		}
		return s.transition(ctx, tx, cur, domain.StatusCancelled)
	})
	if err != nil {
		return nil, err
	}
	if lapsed {
		s.recordExpired(ctx, []*domain.Invitation{inv})
		return nil, errs.New(errs.ErrInvalidState, "invitation has expired")
	}
	s.recordTransition(ctx, actor.UserID, inv, audit.ActionInvitationCancelled, nil)
	return inv, nil
}

// Resend issues a fresh token for a pending invitation and restarts its
// lifetime. The previous token stops working.
func (s *Service) Resend(ctx context.Context, actor *memberdomain.Membership, invitationID string) (out *Issued, err error) {
	ctx, span := tracer.Start(ctx, "invitation.Resend", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	token, fingerprint, err := security.GenerateInviteToken()
	if err != nil {
		return nil, err
	}
	var (
		inv    *domain.Invitation
		lapsed bool
	)
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		cur, wasLapsed, err := s.managed(ctx, tx, actor, invitationID, true)
		lapsed = wasLapsed
		inv = cur
		if err != nil || lapsed {
			return err
		}
		now := s.now().UTC()
		expiresAt := now.Add(s.ttl)
		ok, err := tx.Invitations().RotateInvitationToken(ctx, cur.ID, fingerprint, expiresAt, now)
		if err != nil {
			return err
		}
		if !ok {
			return errs.New(errs.ErrInvalidState, "invitation is no longer pending")
		}
		cur.TokenHash, cur.ExpiresAt, cur.UpdatedAt = fingerprint, expiresAt, now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if lapsed {
		s.recordExpired(ctx, []*domain.Invitation{inv})
		return nil, errs.New(errs.ErrInvalidState, "invitation has expired")
	}
	s.audit.Record(ctx, audit.Event{
		OrgID:    inv.OrgID,
		UserID:   actor.UserID,
		Action:   audit.ActionInvitationResent,
		Resource: resource(inv),
		Metadata: map[string]string{"expires_at": inv.ExpiresAt.Format(time.RFC3339)},
	})
	if org, err := s.store.Organizations().GetOrganizationByID(ctx, inv.OrgID); err == nil && org != nil {
		s.publish(ctx, teldomain.EventInvitationResent, org, inv, token)
	} else {
		s.logger.Warn("invitation: resend event not published", zap.String("invitation_id", inv.ID), zap.Error(err))
	}
	return &Issued{Invitation: inv, Token: token}, nil
}

// Get returns one invitation of orgID.
func (s *Service) Get(ctx context.Context, orgID, id string) (*domain.Invitation, error) {
	inv, err := s.store.Invitations().GetInvitationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.OrgID != orgID {
		return nil, errs.Newf(errs.ErrNotFound, "invitation %s not found", id)
	}
	if err := s.expireOnRead(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Lookup returns the invitation behind token so the invitee can see what
// they are accepting.
func (s *Service) Lookup(ctx context.Context, token string) (*domain.Invitation, error) {
	inv, err := s.store.Invitations().GetInvitationByTokenHash(ctx, security.FingerprintInviteToken(token))
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, errs.New(errs.ErrNotFound, "invitation not found")
	}
	if err := s.expireOnRead(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListByOrg returns orgID's invitations, newest first. An empty status lists all.
func (s *Service) ListByOrg(ctx context.Context, orgID string, status domain.Status) ([]*domain.Invitation, error) {
	if status != "" {
		if _, ok := domain.ParseStatus(string(status)); !ok {
			return nil, errs.Newf(errs.ErrInvalidArgument, "unknown status %q", status)
		}
	}
	all, err := s.store.Invitations().ListInvitationsByOrg(ctx, orgID, "")
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, inv := range all {
		if err := s.expireOnRead(ctx, inv); err != nil {
			return nil, err
		}
		if status == "" || inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

// ListMine returns the pending invitations addressed to userID's email.
func (s *Service) ListMine(ctx context.Context, userID string) ([]*domain.Invitation, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.New(errs.ErrNotFound, "user not found")
	}
	pending, err := s.store.Invitations().ListPendingInvitationsByEmail(ctx, userdomain.NormalizeEmail(u.Email))
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(pending, func(inv *domain.Invitation) bool {
		if err := s.expireOnRead(ctx, inv); err != nil {
			s.logger.Warn("invitation: lazy expiry failed", zap.String("invitation_id", inv.ID), zap.Error(err))
		}
		return inv.Status != domain.StatusPending
	}), nil
}

// redeemable loads the invitation behind token for its invitee under the org
// lock. It reports lapsed=true, with nil error, after recording expiry so
// the caller can commit that before failing.
func (s *Service) redeemable(ctx context.Context, tx store.Store, token, userID string) (*domain.Invitation, bool, error) {
	inv, err := tx.Invitations().GetInvitationByTokenHash(ctx, security.FingerprintInviteToken(token))
	if err != nil {
		return nil, false, err
	}
	if inv == nil {
		return nil, false, errs.New(errs.ErrNotFound, "invitation not found")
	}
	if err := tx.Organizations().LockOrganization(ctx, inv.OrgID); err != nil {
		return nil, false, err
	}
	inv, err = tx.Invitations().GetInvitationByID(ctx, inv.ID)
	if err != nil {
		return nil, false, err
	}
	if inv == nil {
		return nil, false, errs.New(errs.ErrNotFound, "invitation not found")
	}
	lapsed, err := s.expireIfDue(ctx, tx, inv)
	if err != nil || lapsed {
		return inv, lapsed, err
	}
	if inv.Status != domain.StatusPending {
		return nil, false, errs.Newf(errs.ErrInvalidState, "invitation is %s", inv.Status)
	}
	u, err := tx.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if u == nil || u.Status != userdomain.UserStatusActive || userdomain.NormalizeEmail(u.Email) != inv.Email {
		return nil, false, errs.New(errs.ErrForbidden, "invitation is addressed to a different email")
	}
	return inv, false, nil
}

// managed loads an invitation of the actor's org for cancel or resend under the lock.
func (s *Service) managed(ctx context.Context, tx store.Store, actor *memberdomain.Membership, id string, needRank bool) (*domain.Invitation, bool, error) {
	cur, err := lockActor(ctx, tx, actor)
	if err != nil {
		return nil, false, err
	}
	if !cur.Role.AtLeast(memberdomain.RoleAdmin) {
		return nil, false, errs.New(errs.ErrForbidden, "managing invitations requires admin")
	}
	inv, err := tx.Invitations().GetInvitationByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if inv == nil || inv.OrgID != cur.OrgID {
		return nil, false, errs.Newf(errs.ErrNotFound, "invitation %s not found", id)
	}
	if needRank && !cur.Role.AtLeast(inv.Role) {
		return nil, false, errs.New(errs.ErrForbidden, "cannot resend an invitation above your own role")
	}
	lapsed, err := s.expireIfDue(ctx, tx, inv)
	if err != nil || lapsed {
		return inv, lapsed, err
	}
	if inv.Status != domain.StatusPending {
		return nil, false, errs.Newf(errs.ErrInvalidState, "invitation is %s", inv.Status)
	}
	return inv, false, nil
}

// expireIfDue records a pending invitation past its expiry as expired and
// reports whether it did.
func (s *Service) expireIfDue(ctx context.Context, tx store.Store, inv *domain.Invitation) (bool, error) {
	now := s.now().UTC()
	if !inv.IsExpiredAt(now) {
		return false, nil
	}
	if _, err := tx.Invitations().TransitionInvitation(ctx, inv.ID, domain.StatusPending, domain.StatusExpired, now); err != nil {
		return false, err
	}
	inv.Status, inv.UpdatedAt = domain.StatusExpired, now
	return true, nil
}

// expireOnRead applies lazy expiry outside a transaction. The update is a
// single compare-and-swap, so a concurrent accept either wins or sees expired.
func (s *Service) expireOnRead(ctx context.Context, inv *domain.Invitation) error {
	now := s.now().UTC()
	if !inv.IsExpiredAt(now) {
		return nil
	}
	changed, err := s.store.Invitations().TransitionInvitation(ctx, inv.ID, domain.StatusPending, domain.StatusExpired, now)
	if err != nil {
		return err
	}
	if !changed {
		// Someone else moved it first; report what is stored.
		fresh, err := s.store.Invitations().GetInvitationByID(ctx, inv.ID)
		if err != nil {
			return err
		}
		if fresh != nil {
			*inv = *fresh
		}
		return nil
	}
	inv.Status, inv.UpdatedAt = domain.StatusExpired, now
	s.recordExpired(ctx, []*domain.Invitation{inv})
	return nil
}

func (s *Service) transition(ctx context.Context, tx store.Store, inv *domain.Invitation, to domain.Status) error {
	if !domain.CanTransition(inv.Status, to) {
		return errs.Newf(errs.ErrInvalidState, "invitation is %s", inv.Status)
	}
	now := s.now().UTC()
	ok, err := tx.Invitations().TransitionInvitation(ctx, inv.ID, inv.Status, to, now)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.ErrInvalidState, "invitation is no longer pending")
	}
	inv.Status, inv.UpdatedAt = to, now
	return nil
}

func (s *Service) admit(ctx context.Context, org *orgdomain.Org, actor *memberdomain.Membership, email string, role memberdomain.Role) error {
	if s.policy == nil {
		return nil
	}
	d, err := s.policy.AdmitInvitation(ctx, engine.InvitationInput{
		OrgID:               org.ID,
		AllowedEmailDomains: org.Settings.AllowedEmailDomains,
		InviterUserID:       actor.UserID,
		InviterRole:         actor.Role.String(),
		Email:               email,
		Role:                role.String(),
	})
	if err != nil {
		return err
	}
	if !d.Allowed {
		return errs.New(errs.ErrForbidden, d.Reason)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, org *orgdomain.Org, inv *domain.Invitation, token string) {
	telemetry.PublishAsync(ctx, s.events, s.logger, &teldomain.InvitationEvent{
		Type:         eventType,
		InvitationID: inv.ID,
		OrgID:        org.ID,
		OrgName:      org.Name,
		Email:        inv.Email,
		Role:         inv.Role.String(),
		InvitedBy:    inv.InvitedBy,
		Message:      inv.Message,
		Token:        token,
		ExpiresAt:    inv.ExpiresAt,
		OccurredAt:   s.now().UTC(),
	})
}

func (s *Service) recordTransition(ctx context.Context, userID string, inv *domain.Invitation, action string, metadata map[string]string) {
	s.metrics.InvitationTransition(ctx, string(inv.Status))
	s.audit.Record(ctx, audit.Event{
		OrgID:    inv.OrgID,
		UserID:   userID,
		Action:   action,
		Resource: resource(inv),
		Metadata: metadata,
	})
}

func (s *Service) recordExpired(ctx context.Context, invs []*domain.Invitation) {
	for _, inv := range invs {
		s.recordTransition(ctx, "", inv, audit.ActionInvitationExpired, nil)
	}
}

func lockActor(ctx context.Context, tx store.Store, actor *memberdomain.Membership) (*memberdomain.Membership, error) {
	if err := tx.Organizations().LockOrganization(ctx, actor.OrgID); err != nil {
		return nil, err
	}
	cur, err := tx.Memberships().GetMembershipByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if cur == nil || cur.OrgID != actor.OrgID || !cur.IsActive() {
		return nil, errs.New(errs.ErrNotAMember, "caller is not an active member")
	}
	return cur, nil
}

func canInvite(actor *memberdomain.Membership, role memberdomain.Role) error {
	if !actor.Role.AtLeast(memberdomain.RoleAdmin) {
		return errs.New(errs.ErrForbidden, "inviting members requires admin")
	}
	if !actor.Role.AtLeast(role) {
		return errs.New(errs.ErrForbidden, "cannot invite above your own role")
	}
	return nil
}

func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func resource(inv *domain.Invitation) string {
	return "invitation/" + inv.ID
}
