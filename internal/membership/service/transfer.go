package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"b2b-tenancy/internal/audit"
	"b2b-tenancy/internal/membership/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/store"
	"b2b-tenancy/internal/telemetry"
)

// TransferOwnership hands ownership from the actor, who must be the active
// owner, to toID. The outgoing owner becomes an admin. Both changes commit
// together or not at all.
func (l *Ledger) TransferOwnership(ctx context.Context, actor *domain.Membership, toID string) (from, to *domain.Membership, err error) {
	ctx, span := tracer.Start(ctx, "membership.TransferOwnership", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	err = l.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Organizations().LockOrganization(ctx, actor.OrgID); err != nil {
			return err
		}
		cur, err := tx.Memberships().GetMembershipByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		if cur == nil || cur.OrgID != actor.OrgID || cur.UserID != actor.UserID || !cur.IsActiveOwner() {
			return errs.New(errs.ErrForbidden, "only the owner can transfer ownership")
		}
		tgt, err := tx.Memberships().GetMembershipByID(ctx, toID)
		if err != nil {
			return err
		}
		if tgt == nil || tgt.OrgID != cur.OrgID {
			return errs.Newf(errs.ErrNotFound, "membership %s not found", toID)
		}
		if tgt.ID == cur.ID || tgt.Role == domain.RoleOwner {
			return errs.New(errs.ErrConflict, "target already owns the organization")
		}
		if !tgt.IsActive() {
			return errs.New(errs.ErrInvalidState, "ownership can only go to an active member")
		}
		now := l.now().UTC()
		// Demote first so the one-owner constraint holds at every statement.
		cur.Role, cur.UpdatedAt = domain.RoleAdmin, now
		if err := tx.Memberships().UpdateMembership(ctx, cur); err != nil {
			return err
		}
		tgt.Role, tgt.UpdatedAt = domain.RoleOwner, now
		if err := tx.Memberships().UpdateMembership(ctx, tgt); err != nil {
			return err
		}
		from, to = cur, tgt
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	l.committed(ctx, "transfer_ownership", audit.Event{
		OrgID:    to.OrgID,
		UserID:   actor.UserID,
		Action:   audit.ActionOwnershipTransfer,
		Resource: resource(to),
		Metadata: map[string]string{"from_user_id": from.UserID, "to_user_id": to.UserID},
	})
	return from, to, nil
}
