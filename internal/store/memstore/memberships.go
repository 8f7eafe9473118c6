package memstore

import (
	"context"
	"slices"
	"strings"

	memberdomain "b2b-tenancy/internal/membership/domain"
	"b2b-tenancy/internal/platform/errs"
)

type memberships struct{ s *Store }

func (r *memberships) GetMembershipByID(_ context.Context, id string) (*memberdomain.Membership, error) {
	var out *memberdomain.Membership
	r.s.read(func(st *state) {
		if m, ok := st.memberships[id]; ok {
			out = &m
		}
	})
	return out, nil
}

func (r *memberships) GetMembershipByUserAndOrg(_ context.Context, userID, orgID string) (*memberdomain.Membership, error) {
	var out *memberdomain.Membership
	r.s.read(func(st *state) {
		for _, m := range st.memberships {
			if m.UserID == userID && m.OrgID == orgID {
				out = &m
				return
			}
		}
	})
	return out, nil
}

func (r *memberships) ListMembershipsByOrg(_ context.Context, orgID string, filter memberdomain.Filter, afterID string, limit int) ([]*memberdomain.Membership, error) {
	var out []*memberdomain.Membership
	r.s.read(func(st *state) {
		for _, m := range st.memberships {
			if m.OrgID == orgID && m.ID > afterID && filter.Matches(&m) {
				out = append(out, &m)
			}
		}
	})
	sortByID(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memberships) ListMembershipsByUser(_ context.Context, userID string) ([]*memberdomain.Membership, error) {
	var out []*memberdomain.Membership
	r.s.read(func(st *state) {
		for _, m := range st.memberships {
			if m.UserID == userID {
				out = append(out, &m)
			}
		}
	})
	sortByID(out)
	return out, nil
}

func (r *memberships) CountActiveOwners(_ context.Context, orgID string) (int64, error) {
	var n int64
	r.s.read(func(st *state) { n = countActiveOwners(st, orgID, "") })
	return n, nil
}

func (r *memberships) CreateMembership(_ context.Context, m *memberdomain.Membership) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.orgs[m.OrgID]; !ok {
			return errs.New(errs.ErrNotFound, "organization or user not found")
		}
		if _, ok := st.users[m.UserID]; !ok {
			return errs.New(errs.ErrNotFound, "organization or user not found")
		}
		for _, existing := range st.memberships {
			if existing.ID == m.ID || (existing.OrgID == m.OrgID && existing.UserID == m.UserID) {
				return errs.Newf(errs.ErrConflict, "user %s is already a member of %s", m.UserID, m.OrgID)
			}
		}
		if m.IsActiveOwner() && countActiveOwners(st, m.OrgID, "") > 0 {
			return errs.Newf(errs.ErrInvariantViolation, "organization %s already has an active owner", m.OrgID)
		}
		st.memberships[m.ID] = *m
		return nil
	})
}

func (r *memberships) UpdateMembership(_ context.Context, m *memberdomain.Membership) error {
	return r.s.write(func(st *state) error {
		cur, ok := st.memberships[m.ID]
		if !ok {
			return errs.New(errs.ErrNotFound, "membership not found")
		}
		if m.IsActiveOwner() && countActiveOwners(st, cur.OrgID, m.ID) > 0 {
			return errs.Newf(errs.ErrInvariantViolation, "organization %s already has an active owner", cur.OrgID)
		}
		cur.Role, cur.Status, cur.JobTitle, cur.Department, cur.UpdatedAt = m.Role, m.Status, m.JobTitle, m.Department, m.UpdatedAt
		st.memberships[m.ID] = cur
		return nil
	})
}

func (r *memberships) DeleteMembership(_ context.Context, id string) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.memberships[id]; !ok {
			return errs.New(errs.ErrNotFound, "membership not found")
		}
		delete(st.memberships, id)
		deleteTeamLinks(st, "", id)
		return nil
	})
}

func countActiveOwners(st *state, orgID, exceptID string) int64 {
	var n int64
	for _, m := range st.memberships {
		if m.OrgID == orgID && m.ID != exceptID && m.IsActiveOwner() {
			n++
		}
	}
	return n
}

func sortByID(ms []*memberdomain.Membership) {
	slices.SortFunc(ms, func(a, b *memberdomain.Membership) int { return strings.Compare(a.ID, b.ID) })
}
