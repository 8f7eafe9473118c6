// Package service is the membership ledger: who belongs to an organization,
// with which role, and the rules for changing that.
package service

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"b2b-tenancy/internal/audit"
	"b2b-tenancy/internal/membership/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/store"
	"b2b-tenancy/internal/telemetry"
	userdomain "b2b-tenancy/internal/user/domain"
)

var tracer = otel.Tracer("b2b-tenancy/internal/membership/service")

const listBatchSize = 100

// Ledger owns every membership mutation. Each mutation runs in one
// transaction holding the organization lock, re-reads the actor and target
// under it, and is recorded in the audit log after commit.
type Ledger struct {
	store   store.Store
	audit   audit.Recorder
	metrics *telemetry.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewLedger returns a Ledger. recorder, metrics and logger may be nil.
func NewLedger(st store.Store, recorder audit.Recorder, metrics *telemetry.Metrics, logger *zap.Logger) *Ledger {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: st, audit: recorder, metrics: metrics, logger: logger, now: time.Now}
}

// CreateTx adds an active membership inside the caller's transaction. The
// caller must already hold the organization lock.
func (l *Ledger) CreateTx(ctx context.Context, tx store.Store, orgID, userID string, role domain.Role) (*domain.Membership, error) {
	if !role.Valid() {
		return nil, errs.New(errs.ErrInvalidArgument, "role is required")
	}
	existing, err := tx.Memberships().GetMembershipByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.Newf(errs.ErrConflict, "user %s is already a member", userID)
	}
	if role == domain.RoleOwner {
		n, err := tx.Memberships().CountActiveOwners(ctx, orgID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, errs.New(errs.ErrInvariantViolation, "organization already has an owner")
		}
	}
	now := l.now().UTC()
	m := &domain.Membership{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		OrgID:     orgID,
		Role:      role,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Memberships().CreateMembership(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Create adds userID to orgID with role.
func (l *Ledger) Create(ctx context.Context, orgID, userID string, role domain.Role) (m *domain.Membership, err error) {
	ctx, span := tracer.Start(ctx, "membership.Create", trace.WithAttributes(
		attribute.String("org.id", orgID), attribute.String("role", role.String())))
	defer func() { telemetry.End(span, err) }()

	err = l.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Organizations().LockOrganization(ctx, orgID); err != nil {
			return err
		}
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil || u.Status != userdomain.UserStatusActive {
			return errs.Newf(errs.ErrNotFound, "user %s not found", userID)
		}
		m, err = l.CreateTx(ctx, tx, orgID, userID, role)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.committed(ctx, "create", audit.Event{
		OrgID:    orgID,
		Action:   audit.ActionMemberAdded,
		Resource: resource(m),
		Metadata: map[string]string{"user_id": userID, "role": role.String()},
	})
	return m, nil
}

// SetRole changes target's role. Promotion to owner is refused while an
// owner exists, whoever asks; ownership only moves through TransferOwnership.
func (l *Ledger) SetRole(ctx context.Context, actor *domain.Membership, targetID string, newRole domain.Role) (target *domain.Membership, err error) {
	ctx, span := tracer.Start(ctx, "membership.SetRole", trace.WithAttributes(
		attribute.String("org.id", actor.OrgID), attribute.String("role", newRole.String())))
	defer func() { telemetry.End(span, err) }()

	if !newRole.Valid() {
		return nil, errs.New(errs.ErrInvalidArgument, "role is required")
	}
	var oldRole domain.Role
	err = l.store.WithTx(ctx, func(tx store.Store) error {
		cur, tgt, err := l.lockPair(ctx, tx, actor, targetID)
		if err != nil {
			return err
		}
		if newRole == domain.RoleOwner {
			n, err := tx.Memberships().CountActiveOwners(ctx, actor.OrgID)
			if err != nil {
				return err
			}
			if n > 0 {
				return errs.New(errs.ErrInvariantViolation, "organization already has an owner; use ownership transfer")
			}
		}
		if !cur.Role.AtLeast(domain.RoleAdmin) {
			return errs.New(errs.ErrForbidden, "changing roles requires admin")
		}
		if !cur.Role.AtLeast(newRole) || !cur.Role.AtLeast(tgt.Role) {
			return errs.New(errs.ErrForbidden, "cannot assign or change a role above your own")
		}
		if tgt.Role == domain.RoleOwner && newRole != domain.RoleOwner {
			return errs.New(errs.ErrInvariantViolation, "organization must keep an owner; use ownership transfer")
		}
		oldRole = tgt.Role
		target = tgt
		if tgt.Role == newRole {
			return nil
		}
		tgt.Role = newRole
		tgt.UpdatedAt = l.now().UTC()
		return tx.Memberships().UpdateMembership(ctx, tgt)
	})
	if err != nil {
		return nil, err
	}
	if oldRole != newRole {
		l.committed(ctx, "set_role", audit.Event{
			OrgID:    target.OrgID,
			UserID:   actor.UserID,
			Action:   audit.ActionMemberRoleChanged,
			Resource: resource(target),
			Metadata: map[string]string{"from": oldRole.String(), "to": newRole.String()},
		})
	}
	return target, nil
}

// Remove deletes target's membership. Members may always remove themselves,
// suspended ones included; removing someone else takes an active admin with a
// role at least the target's. The owner is never removed.
func (l *Ledger) Remove(ctx context.Context, actor *domain.Membership, targetID string) (err error) {
	ctx, span := tracer.Start(ctx, "membership.Remove", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	var target *domain.Membership
	err = l.store.WithTx(ctx, func(tx store.Store) error {
		var cur, tgt *domain.Membership
		var err error
		if targetID == actor.ID {
			cur, err = l.lockSelf(ctx, tx, actor)
			tgt = cur
		} else {
			cur, tgt, err = l.lockPair(ctx, tx, actor, targetID)
		}
		if err != nil {
			return err
		}
		if tgt.Role == domain.RoleOwner {
			return errs.New(errs.ErrInvariantViolation, "the owner cannot be removed; transfer ownership first")
		}
		if cur.ID != tgt.ID && !(cur.Role.AtLeast(domain.RoleAdmin) && cur.Role.AtLeast(tgt.Role)) {
			return errs.New(errs.ErrForbidden, "removing members requires admin at or above their role")
		}
		target = tgt
		return tx.Memberships().DeleteMembership(ctx, tgt.ID)
	})
	if err != nil {
		return err
	}
	action := audit.ActionMemberRemoved
	if target.ID == actor.ID {
		action = audit.ActionMemberLeft
	}
	l.committed(ctx, "remove", audit.Event{
		OrgID:    target.OrgID,
		UserID:   actor.UserID,
		Action:   action,
		Resource: resource(target),
		Metadata: map[string]string{"user_id": target.UserID, "role": target.Role.String()},
	})
	return nil
}

// Leave removes the actor's own membership.
func (l *Ledger) Leave(ctx context.Context, actor *domain.Membership) error {
	return l.Remove(ctx, actor, actor.ID)
}

// SetStatus suspends or reactivates target. The owner is never suspended and
// nobody changes their own status.
func (l *Ledger) SetStatus(ctx context.Context, actor *domain.Membership, targetID string, status domain.Status) (target *domain.Membership, err error) {
	ctx, span := tracer.Start(ctx, "membership.SetStatus", trace.WithAttributes(
		attribute.String("org.id", actor.OrgID), attribute.String("status", string(status))))
	defer func() { telemetry.End(span, err) }()

	if _, ok := domain.ParseStatus(string(status)); !ok {
		return nil, errs.Newf(errs.ErrInvalidArgument, "unknown status %q", status)
	}
	changed := false
	err = l.store.WithTx(ctx, func(tx store.Store) error {
		cur, tgt, err := l.lockPair(ctx, tx, actor, targetID)
		if err != nil {
			return err
		}
		if !cur.Role.AtLeast(domain.RoleAdmin) || !cur.Role.AtLeast(tgt.Role) {
			return errs.New(errs.ErrForbidden, "changing member status requires admin at or above their role")
		}
		if cur.ID == tgt.ID {
			return errs.New(errs.ErrForbidden, "cannot change your own status")
		}
		if tgt.Role == domain.RoleOwner {
			return errs.New(errs.ErrInvariantViolation, "the owner cannot be suspended")
		}
		target = tgt
		if tgt.Status == status {
			return nil
		}
		changed = true
		tgt.Status = status
		tgt.UpdatedAt = l.now().UTC()
		return tx.Memberships().UpdateMembership(ctx, tgt)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		l.committed(ctx, "set_status", audit.Event{
			OrgID:    target.OrgID,
			UserID:   actor.UserID,
			Action:   audit.ActionMemberStatusChanged,
			Resource: resource(target),
			Metadata: map[string]string{"status": string(status)},
		})
	}
	return target, nil
}

// ProfileUpdate holds the optional membership profile fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	JobTitle   *string
	Department *string
}

// UpdateProfile edits job title and department. Admins edit anyone at or
// below their role; everyone edits their own.
func (l *Ledger) UpdateProfile(ctx context.Context, actor *domain.Membership, targetID string, upd ProfileUpdate) (target *domain.Membership, err error) {
	ctx, span := tracer.Start(ctx, "membership.UpdateProfile", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	err = l.store.WithTx(ctx, func(tx store.Store) error {
		cur, tgt, err := l.lockPair(ctx, tx, actor, targetID)
		if err != nil {
			return err
		}
		if cur.ID != tgt.ID && !(cur.Role.AtLeast(domain.RoleAdmin) && cur.Role.AtLeast(tgt.Role)) {
			return errs.New(errs.ErrForbidden, "editing another member requires admin at or above their role")
		}
		if upd.JobTitle != nil {
			tgt.JobTitle = *upd.JobTitle
		}
		if upd.Department != nil {
			tgt.Department = *upd.Department
		}
		tgt.UpdatedAt = l.now().UTC()
		target = tgt
		return tx.Memberships().UpdateMembership(ctx, tgt)
	})
	if err != nil {
		return nil, err
	}
	l.committed(ctx, "update_profile", audit.Event{
		OrgID:    target.OrgID,
		UserID:   actor.UserID,
		Action:   audit.ActionMemberUpdated,
		Resource: resource(target),
	})
	return target, nil
}

// Get returns one membership of orgID.
func (l *Ledger) Get(ctx context.Context, orgID, id string) (*domain.Membership, error) {
	m, err := l.store.Memberships().GetMembershipByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil || m.OrgID != orgID {
		return nil, errs.Newf(errs.ErrNotFound, "membership %s not found", id)
	}
	return m, nil
}

// List yields the memberships of orgID in id order, fetching from storage in
// batches as the consumer advances. Each range over the result starts over.
func (l *Ledger) List(ctx context.Context, orgID string, filter domain.Filter) iter.Seq2[*domain.Membership, error] {
	return func(yield func(*domain.Membership, error) bool) {
		after := ""
		for {
			batch, err := l.store.Memberships().ListMembershipsByOrg(ctx, orgID, filter, after, listBatchSize)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, m := range batch {
				if !yield(m, nil) {
					return
				}
			}
			if len(batch) < listBatchSize {
				return
			}
			after = batch[len(batch)-1].ID
		}
	}
}

// lockSelf locks the actor's organization and re-reads the actor's own
// membership whatever its status.
func (l *Ledger) lockSelf(ctx context.Context, tx store.Store, actor *domain.Membership) (*domain.Membership, error) {
	if err := tx.Organizations().LockOrganization(ctx, actor.OrgID); err != nil {
		return nil, err
	}
	cur, err := tx.Memberships().GetMembershipByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if cur == nil || cur.OrgID != actor.OrgID {
		return nil, errs.New(errs.ErrNotAMember, "caller is not a member")
	}
	return cur, nil
}

// lockPair locks the actor's organization and re-reads actor and target under the lock.
func (l *Ledger) lockPair(ctx context.Context, tx store.Store, actor *domain.Membership, targetID string) (*domain.Membership, *domain.Membership, error) {
	if err := tx.Organizations().LockOrganization(ctx, actor.OrgID); err != nil {
		return nil, nil, err
	}
	cur, err := tx.Memberships().GetMembershipByID(ctx, actor.ID)
	if err != nil {
		return nil, nil, err
	}
	if cur == nil || cur.OrgID != actor.OrgID || !cur.IsActive() {
		return nil, nil, errs.New(errs.ErrNotAMember, "caller is not an active member")
	}
	if targetID == cur.ID {
		return cur, cur, nil
	}
	tgt, err := tx.Memberships().GetMembershipByID(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}
	if tgt == nil || tgt.OrgID != actor.OrgID {
		return nil, nil, errs.Newf(errs.ErrNotFound, "membership %s not found", targetID)
	}
	return cur, tgt, nil
}

func (l *Ledger) committed(ctx context.Context, op string, e audit.Event) {
	l.metrics.MembershipMutation(ctx, op)
	l.audit.Record(ctx, e)
	l.logger.Info("membership: "+op,
		zap.String("org_id", e.OrgID),
		zap.String("actor_user_id", e.UserID),
		zap.String("resource", e.Resource))
}

func resource(m *domain.Membership) string {
	return "membership/" + m.ID
}
