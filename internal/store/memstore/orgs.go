package memstore

import (
	"cmp"
	"context"
	"slices"

	memberdomain "b2b-tenancy/internal/membership/domain"
	orgdomain "b2b-tenancy/internal/organization/domain"
	"b2b-tenancy/internal/platform/errs"
)

type orgs struct{ s *Store }

func cloneOrg(o orgdomain.Org) *orgdomain.Org {
	o.Settings = o.Settings.Clone()
	return &o
}

func (r *orgs) GetOrganizationByID(_ context.Context, id string) (*orgdomain.Org, error) {
	var out *orgdomain.Org
	r.s.read(func(st *state) {
		if o, ok := st.orgs[id]; ok {
			out = cloneOrg(o)
		}
	})
	return out, nil
}

func (r *orgs) GetOrganizationBySlug(_ context.Context, slug string) (*orgdomain.Org, error) {
	var out *orgdomain.Org
	r.s.read(func(st *state) {
		for _, o := range st.orgs {
			if o.Slug == slug {
				out = cloneOrg(o)
				return
			}
		}
	})
	return out, nil
}

func (r *orgs) ListOrganizationsByUser(_ context.Context, userID string) ([]*orgdomain.Org, error) {
	var out []*orgdomain.Org
	r.s.read(func(st *state) {
		for _, m := range st.memberships {
			if m.UserID != userID || m.Status != memberdomain.StatusActive {
				continue
			}
			if o, ok := st.orgs[m.OrgID]; ok {
				out = append(out, cloneOrg(o))
			}
		}
	})
	slices.SortFunc(out, func(a, b *orgdomain.Org) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *orgs) CreateOrganization(_ context.Context, o *orgdomain.Org) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.orgs[o.ID]; ok {
			return errs.Newf(errs.ErrConflict, "organization %s already exists", o.ID)
		}
		if slugTaken(st, o.Slug, "") {
			return errs.Newf(errs.ErrConflict, "organization slug %q is taken", o.Slug)
		}
		st.orgs[o.ID] = *cloneOrg(*o)
		return nil
	})
}

func (r *orgs) UpdateOrganization(_ context.Context, o *orgdomain.Org) error {
	return r.s.write(func(st *state) error {
		cur, ok := st.orgs[o.ID]
		if !ok {
			return errs.New(errs.ErrNotFound, "organization not found")
		}
		if slugTaken(st, o.Slug, o.ID) {
			return errs.Newf(errs.ErrConflict, "organization slug %q is taken", o.Slug)
		}
		next := *cloneOrg(*o)
		next.CreatedAt = cur.CreatedAt
		st.orgs[o.ID] = next
		return nil
	})
}

// DeleteOrganization mirrors the schema's ON DELETE CASCADE.
func (r *orgs) DeleteOrganization(_ context.Context, id string) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.orgs[id]; !ok {
			return errs.New(errs.ErrNotFound, "organization not found")
		}
		delete(st.orgs, id)
		for mid, m := range st.memberships {
			if m.OrgID == id {
				delete(st.memberships, mid)
				deleteTeamLinks(st, "", mid)
			}
		}
		for tid, t := range st.teams {
			if t.OrgID == id {
				delete(st.teams, tid)
				deleteTeamLinks(st, tid, "")
			}
		}
		for iid, inv := range st.invitations {
			if inv.OrgID == id {
				delete(st.invitations, iid)
			}
		}
		for pid, p := range st.policies {
			if p.OrgID == id {
				delete(st.policies, pid)
			}
		}
		return nil
	})
}

// LockOrganization only checks existence; the transaction already holds the writer lock.
func (r *orgs) LockOrganization(_ context.Context, id string) error {
	var ok bool
	r.s.read(func(st *state) { _, ok = st.orgs[id] })
	if !ok {
		return errs.Newf(errs.ErrNotFound, "organization %s not found", id)
	}
	return nil
}

func slugTaken(st *state, slug, exceptID string) bool {
	for _, o := range st.orgs {
		if o.Slug == slug && o.ID != exceptID {
			return true
		}
	}
	return false
}

func deleteTeamLinks(st *state, teamID, membershipID string) {
	for k := range st.teamMembers {
		if (teamID != "" && k.teamID == teamID) || (membershipID != "" && k.membershipID == membershipID) {
			delete(st.teamMembers, k)
		}
	}
}
