package memstore

import (
	"context"
	"slices"
	"strings"
	"time"

	"b2b-tenancy/internal/platform/errs"
	teamdomain "b2b-tenancy/internal/team/domain"
)

type teams struct{ s *Store }

func (r *teams) GetTeamByID(_ context.Context, id string) (*teamdomain.Team, error) {
	var out *teamdomain.Team
	r.s.read(func(st *state) {
		if t, ok := st.teams[id]; ok {
			out = &t
		}
	})
	return out, nil
}

func (r *teams) ListTeamsByOrg(_ context.Context, orgID string) ([]*teamdomain.Team, error) {
	var out []*teamdomain.Team
	r.s.read(func(st *state) {
		for _, t := range st.teams {
			if t.OrgID == orgID {
				out = append(out, &t)
			}
		}
	})
	slices.SortFunc(out, func(a, b *teamdomain.Team) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *teams) CreateTeam(_ context.Context, t *teamdomain.Team) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.orgs[t.OrgID]; !ok {
			return errs.New(errs.ErrNotFound, "organization not found")
		}
		if teamSlugTaken(st, t.OrgID, t.Slug, "") {
			return errs.Newf(errs.ErrConflict, "team slug %q is taken", t.Slug)
		}
		st.teams[t.ID] = *t
		return nil
	})
}

func (r *teams) UpdateTeam(_ context.Context, t *teamdomain.Team) error {
	return r.s.write(func(st *state) error {
		cur, ok := st.teams[t.ID]
		if !ok {
			return errs.New(errs.ErrNotFound, "team not found")
		}
		if teamSlugTaken(st, cur.OrgID, t.Slug, t.ID) {
			return errs.Newf(errs.ErrConflict, "team slug %q is taken", t.Slug)
		}
		cur.Name, cur.Slug, cur.Description, cur.UpdatedAt = t.Name, t.Slug, t.Description, t.UpdatedAt
		st.teams[t.ID] = cur
		return nil
	})
}

func (r *teams) DeleteTeam(_ context.Context, id string) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.teams[id]; !ok {
			return errs.New(errs.ErrNotFound, "team not found")
		}
		delete(st.teams, id)
		deleteTeamLinks(st, id, "")
		for iid, inv := range st.invitations {
			if slices.Contains(inv.TeamIDs, id) {
				inv.TeamIDs = slices.DeleteFunc(slices.Clone(inv.TeamIDs), func(t string) bool { return t == id })
				st.invitations[iid] = inv
			}
		}
		return nil
	})
}

func (r *teams) AddTeamMember(_ context.Context, teamID, membershipID string) error {
	return r.s.write(func(st *state) error {
		_, okT := st.teams[teamID]
		_, okM := st.memberships[membershipID]
		if !okT || !okM {
			return errs.New(errs.ErrNotFound, "team or membership not found")
		}
		k := teamMemberKey{teamID: teamID, membershipID: membershipID}
		if _, ok := st.teamMembers[k]; !ok {
			st.teamMembers[k] = time.Now().UTC()
		}
		return nil
	})
}

func (r *teams) RemoveTeamMember(_ context.Context, teamID, membershipID string) error {
	return r.s.write(func(st *state) error {
		k := teamMemberKey{teamID: teamID, membershipID: membershipID}
		if _, ok := st.teamMembers[k]; !ok {
			return errs.New(errs.ErrNotFound, "team member not found")
		}
		delete(st.teamMembers, k)
		return nil
	})
}

func (r *teams) ListTeamMemberIDs(_ context.Context, teamID string) ([]string, error) {
	var out []string
	r.s.read(func(st *state) {
		for k := range st.teamMembers {
			if k.teamID == teamID {
				out = append(out, k.membershipID)
			}
		}
	})
	slices.Sort(out)
	return out, nil
}

func teamSlugTaken(st *state, orgID, slug, exceptID string) bool {
	for _, t := range st.teams {
		if t.OrgID == orgID && t.Slug == slug && t.ID != exceptID {
			return true
		}
	}
	return false
}
