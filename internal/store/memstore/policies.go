package memstore

import (
	"cmp"
	"context"
	"slices"

	"b2b-tenancy/internal/platform/errs"
	policydomain "b2b-tenancy/internal/policy/domain"
)

type policies struct{ s *Store }

func (r *policies) GetByID(_ context.Context, id string) (*policydomain.Policy, error) {
	var out *policydomain.Policy
	r.s.read(func(st *state) {
		if p, ok := st.policies[id]; ok {
			out = &p
		}
	})
	return out, nil
}

func (r *policies) list(orgID string, enabledOnly bool) []*policydomain.Policy {
	var out []*policydomain.Policy
	r.s.read(func(st *state) {
		for _, p := range st.policies {
			if p.OrgID == orgID && (!enabledOnly || p.Enabled) {
				out = append(out, &p)
			}
		}
	})
	slices.SortFunc(out, func(a, b *policydomain.Policy) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (r *policies) ListByOrg(_ context.Context, orgID string) ([]*policydomain.Policy, error) {
	return r.list(orgID, false), nil
}

func (r *policies) GetEnabledPoliciesByOrg(_ context.Context, orgID string) ([]*policydomain.Policy, error) {
	return r.list(orgID, true), nil
}

func (r *policies) Create(_ context.Context, p *policydomain.Policy) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.orgs[p.OrgID]; !ok {
			return errs.Newf(errs.ErrNotFound, "organization %s not found", p.OrgID)
		}
		if _, ok := st.policies[p.ID]; ok {
			return errs.New(errs.ErrConflict, "policy already exists")
		}
		st.policies[p.ID] = *p
		return nil
	})
}

func (r *policies) Update(_ context.Context, p *policydomain.Policy) error {
	return r.s.write(func(st *state) error {
		cur, ok := st.policies[p.ID]
		if !ok {
			return errs.New(errs.ErrNotFound, "policy not found")
		}
		cur.Name, cur.Rules, cur.Enabled, cur.UpdatedAt = p.Name, p.Rules, p.Enabled, p.UpdatedAt
		st.policies[p.ID] = cur
		return nil
	})
}

func (r *policies) Delete(_ context.Context, id string) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.policies[id]; !ok {
			return errs.New(errs.ErrNotFound, "policy not found")
		}
		delete(st.policies, id)
		return nil
	})
}
