package memstore

import (
	"context"
	"slices"
	"strings"
	"time"

	invdomain "b2b-tenancy/internal/invitation/domain"
	"b2b-tenancy/internal/platform/errs"
)

type invitations struct{ s *Store }

func (r *invitations) find(pred func(inv *invdomain.Invitation) bool) *invdomain.Invitation {
	var out *invdomain.Invitation
	r.s.read(func(st *state) {
		for _, inv := range st.invitations {
			if pred(&inv) {
				out = inv.Clone()
				return
			}
		}
	})
	return out
}

func (r *invitations) filter(pred func(inv *invdomain.Invitation) bool) []*invdomain.Invitation {
	var out []*invdomain.Invitation
	r.s.read(func(st *state) {
		for _, inv := range st.invitations {
			if pred(&inv) {
				out = append(out, inv.Clone())
			}
		}
	})
	slices.SortFunc(out, func(a, b *invdomain.Invitation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out
}

func (r *invitations) GetInvitationByID(_ context.Context, id string) (*invdomain.Invitation, error) {
	return r.find(func(inv *invdomain.Invitation) bool { return inv.ID == id }), nil
}

func (r *invitations) GetInvitationByTokenHash(_ context.Context, tokenHash string) (*invdomain.Invitation, error) {
	return r.find(func(inv *invdomain.Invitation) bool { return inv.TokenHash == tokenHash }), nil
}

func (r *invitations) GetPendingInvitation(_ context.Context, orgID, email string) (*invdomain.Invitation, error) {
	return r.find(func(inv *invdomain.Invitation) bool {
		return inv.OrgID == orgID && inv.Email == email && inv.Status == invdomain.StatusPending
	}), nil
}

func (r *invitations) ListInvitationsByOrg(_ context.Context, orgID string, status invdomain.Status) ([]*invdomain.Invitation, error) {
	return r.filter(func(inv *invdomain.Invitation) bool {
		return inv.OrgID == orgID && (status == "" || inv.Status == status)
	}), nil
}

func (r *invitations) ListPendingInvitationsByEmail(_ context.Context, email string) ([]*invdomain.Invitation, error) {
	return r.filter(func(inv *invdomain.Invitation) bool {
		return inv.Email == email && inv.Status == invdomain.StatusPending
	}), nil
}

func (r *invitations) CreateInvitation(_ context.Context, inv *invdomain.Invitation) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.orgs[inv.OrgID]; !ok {
			return errs.New(errs.ErrNotFound, "organization not found")
		}
		for _, teamID := range inv.TeamIDs {
			if t, ok := st.teams[teamID]; !ok || t.OrgID != inv.OrgID {
				return errs.Newf(errs.ErrNotFound, "team %s not found", teamID)
			}
		}
		for _, existing := range st.invitations {
			if existing.ID == inv.ID || existing.TokenHash == inv.TokenHash {
				return errs.New(errs.ErrConflict, "invitation already exists")
			}
			if existing.OrgID == inv.OrgID && existing.Email == inv.Email && existing.Status == invdomain.StatusPending {
				return errs.Newf(errs.ErrConflict, "a pending invitation for %s already exists", inv.Email)
			}
		}
		st.invitations[inv.ID] = *inv.Clone()
		return nil
	})
}

func (r *invitations) TransitionInvitation(_ context.Context, id string, from, to invdomain.Status, at time.Time) (bool, error) {
	changed := false
	err := r.s.write(func(st *state) error {
		cur, ok := st.invitations[id]
		if !ok || cur.Status != from {
			return nil
		}
		cur.Status = to
		cur.UpdatedAt = at
		st.invitations[id] = cur
		changed = true
		return nil
	})
	return changed, err
}

func (r *invitations) RotateInvitationToken(_ context.Context, id, tokenHash string, expiresAt, at time.Time) (bool, error) {
	changed := false
	err := r.s.write(func(st *state) error {
		cur, ok := st.invitations[id]
		if !ok || cur.Status != invdomain.StatusPending {
			return nil
		}
		cur.TokenHash = tokenHash
		cur.ExpiresAt = expiresAt
		cur.UpdatedAt = at
		st.invitations[id] = cur
		changed = true
		return nil
	})
	return changed, err
}
