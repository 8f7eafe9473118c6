// Package service manages teams inside an organization.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"b2b-tenancy/internal/audit"
	memberdomain "b2b-tenancy/internal/membership/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/platform/slug"
	"b2b-tenancy/internal/store"
	"b2b-tenancy/internal/team/domain"
	"b2b-tenancy/internal/telemetry"
)

var tracer = otel.Tracer("b2b-tenancy/internal/team/service")

type Service struct {
	store  store.Store
	audit  audit.Recorder
	logger *zap.Logger
	now    func() time.Time
}

func NewService(st store.Store, recorder audit.Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, audit: recorder, logger: logger, now: time.Now}
}

// Create adds a team to the actor's organization. An empty slug is derived from name.
func (s *Service) Create(ctx context.Context, actor *memberdomain.Membership, name, teamSlug, description string) (t *domain.Team, err error) {
	ctx, span := tracer.Start(ctx, "team.Create", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	sl, err := slug.Normalize(teamSlug, name)
	if err != nil {
		return nil, errs.New(errs.ErrInvalidArgument, err.Error())
	}
	now := s.now().UTC()
	t = &domain.Team{
		ID:          uuid.Must(uuid.NewV7()).String(),
		OrgID:       actor.OrgID,
		Name:        strings.TrimSpace(name),
		Slug:        sl,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		return nil, errs.New(errs.ErrInvalidArgument, err.Error())
	}
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := lockAdmin(ctx, tx, actor); err != nil {
			return err
		}
		return tx.Teams().CreateTeam(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, audit.ActionTeamCreated, t.ID, map[string]string{"slug": t.Slug})
	return t, nil
}

// Get returns a team of orgID.
func (s *Service) Get(ctx context.Context, orgID, id string) (*domain.Team, error) {
	t, err := s.store.Teams().GetTeamByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.OrgID != orgID {
		return nil, errs.Newf(errs.ErrNotFound, "team %s not found", id)
	}
	return t, nil
}

// List returns orgID's teams ordered by name.
func (s *Service) List(ctx context.Context, orgID string) ([]*domain.Team, error) {
	return s.store.Teams().ListTeamsByOrg(ctx, orgID)
}

// Update changes a team's name, slug or description. Nil fields are kept.
func (s *Service) Update(ctx context.Context, actor *memberdomain.Membership, id string, name, teamSlug, description *string) (t *domain.Team, err error) {
	ctx, span := tracer.Start(ctx, "team.Update", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := lockAdmin(ctx, tx, actor); err != nil {
			return err
		}
		t, err = teamIn(ctx, tx, actor.OrgID, id)
		if err != nil {
			return err
		}
		if name != nil {
			t.Name = strings.TrimSpace(*name)
		}
		if teamSlug != nil {
			sl, err := slug.Normalize(*teamSlug, t.Name)
			if err != nil {
				return errs.New(errs.ErrInvalidArgument, err.Error())
			}
			t.Slug = sl
		}
		if description != nil {
			t.Description = *description
		}
		if err := t.Validate(); err != nil {
			return errs.New(errs.ErrInvalidArgument, err.Error())
		}
		t.UpdatedAt = s.now().UTC()
		return tx.Teams().UpdateTeam(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, audit.ActionTeamUpdated, t.ID, nil)
	return t, nil
}

// Delete removes a team and its member links.
func (s *Service) Delete(ctx context.Context, actor *memberdomain.Membership, id string) (err error) {
	ctx, span := tracer.Start(ctx, "team.Delete", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := lockAdmin(ctx, tx, actor); err != nil {
			return err
		}
		if _, err := teamIn(ctx, tx, actor.OrgID, id); err != nil {
			return err
		}
		return tx.Teams().DeleteTeam(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, audit.ActionTeamDeleted, id, nil)
	return nil
}

// AddMember links an active membership of the same organization to a team.
// Adding an existing member is a no-op.
func (s *Service) AddMember(ctx context.Context, actor *memberdomain.Membership, teamID, membershipID string) (err error) {
	ctx, span := tracer.Start(ctx, "team.AddMember", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := lockAdmin(ctx, tx, actor); err != nil {
			return err
		}
		if _, err := teamIn(ctx, tx, actor.OrgID, teamID); err != nil {
			return err
		}
		m, err := tx.Memberships().GetMembershipByID(ctx, membershipID)
		if err != nil {
			return err
		}
		if m == nil || m.OrgID != actor.OrgID {
			return errs.Newf(errs.ErrNotFound, "membership %s not found", membershipID)
		}
		if !m.IsActive() {
			return errs.New(errs.ErrInvalidState, "membership is suspended")
		}
		return tx.Teams().AddTeamMember(ctx, teamID, membershipID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, audit.ActionTeamMemberAdded, teamID, map[string]string{"membership_id": membershipID})
	return nil
}

// RemoveMember unlinks a membership from a team.
func (s *Service) RemoveMember(ctx context.Context, actor *memberdomain.Membership, teamID, membershipID string) (err error) {
	ctx, span := tracer.Start(ctx, "team.RemoveMember", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := lockAdmin(ctx, tx, actor); err != nil {
			return err
		}
		if _, err := teamIn(ctx, tx, actor.OrgID, teamID); err != nil {
			return err
		}
		return tx.Teams().RemoveTeamMember(ctx, teamID, membershipID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, audit.ActionTeamMemberRemoved, teamID, map[string]string{"membership_id": membershipID})
	return nil
}

// Members returns the memberships linked to a team of orgID.
func (s *Service) Members(ctx context.Context, orgID, teamID string) ([]*memberdomain.Membership, error) {
	if _, err := s.Get(ctx, orgID, teamID); err != nil {
		return nil, err
	}
	ids, err := s.store.Teams().ListTeamMemberIDs(ctx, teamID)
	if err != nil {
		return nil, err
	}
	out := make([]*memberdomain.Membership, 0, len(ids))
	for _, id := range ids {
		m, err := s.store.Memberships().GetMembershipByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, actor *memberdomain.Membership, action, teamID string, metadata map[string]string) {
	s.audit.Record(ctx, audit.Event{
		OrgID:    actor.OrgID,
		UserID:   actor.UserID,
		Action:   action,
		Resource: "team/" + teamID,
		Metadata: metadata,
	})
}

func lockAdmin(ctx context.Context, tx store.Store, actor *memberdomain.Membership) (*memberdomain.Membership, error) {
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
	if !cur.Role.AtLeast(memberdomain.RoleAdmin) {
		return nil, errs.New(errs.ErrForbidden, "managing teams requires admin")
	}
	return cur, nil
}

func teamIn(ctx context.Context, tx store.Store, orgID, id string) (*domain.Team, error) {
	t, err := tx.Teams().GetTeamByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.OrgID != orgID {
		return nil, errs.Newf(errs.ErrNotFound, "team %s not found", id)
	}
	return t, nil
}
