// Package service manages organizations. Creating one also creates its
// founder's owner membership in the same transaction.
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
	memberservice "b2b-tenancy/internal/membership/service"
	"b2b-tenancy/internal/organization/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/platform/slug"
	"b2b-tenancy/internal/store"
	"b2b-tenancy/internal/telemetry"
)

var tracer = otel.Tracer("b2b-tenancy/internal/organization/service")

// Service implements organization lifecycle operations.
type Service struct {
	store  store.Store
	ledger *memberservice.Ledger
	audit  audit.Recorder
	logger *zap.Logger
	now    func() time.Time
}

// NewService returns a Service. recorder and logger may be nil.
func NewService(st store.Store, ledger *memberservice.Ledger, recorder audit.Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, ledger: ledger, audit: recorder, logger: logger, now: time.Now}
}

// CreateParams describes a new organization. An empty Slug is derived from Name.
type CreateParams struct {
	Name        string
	Slug        string
	Description string
	LogoURL     string
	Website     string
	Plan        domain.Plan
}

// Membership pairs an organization with the caller's membership in it.
type Membership struct {
	Org        *domain.Org
	Membership *memberdomain.Membership
}

// Create creates an organization with userID as its owner.
func (s *Service) Create(ctx context.Context, userID string, p CreateParams) (out *Membership, err error) {
	ctx, span := tracer.Start(ctx, "organization.Create")
	defer func() { telemetry.End(span, err) }()

	sl, err := slug.Normalize(p.Slug, p.Name)
	if err != nil {
		return nil, errs.New(errs.ErrInvalidArgument, err.Error())
	}
	now := s.now().UTC()
	org := &domain.Org{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Name:        strings.TrimSpace(p.Name),
		Slug:        sl,
		Description: p.Description,
		LogoURL:     p.LogoURL,
		Website:     p.Website,
		Plan:        p.Plan,
		Settings:    domain.DefaultSettings(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := org.Validate(); err != nil {
		return nil, errs.New(errs.ErrInvalidArgument, err.Error())
	}

	var owner *memberdomain.Membership
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil || !u.IsActive() {
			return errs.New(errs.ErrNotFound, "user not found")
		}
		if err := tx.Organizations().CreateOrganization(ctx, org); err != nil {
			return err
		}
		if err := tx.Organizations().LockOrganization(ctx, org.ID); err != nil {
			return err
		}
		owner, err = s.ledger.CreateTx(ctx, tx, org.ID, userID, memberdomain.RoleOwner)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		OrgID:    org.ID,
		UserID:   userID,
		Action:   audit.ActionOrgCreated,
		Resource: resource(org.ID),
		Metadata: map[string]string{"slug": org.Slug},
	})
	s.logger.Info("organization created", zap.String("org_id", org.ID), zap.String("slug", org.Slug))
	return &Membership{Org: org, Membership: owner}, nil
}

// Get returns an organization by id.
func (s *Service) Get(ctx context.Context, orgID string) (*domain.Org, error) {
	org, err := s.store.Organizations().GetOrganizationByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, errs.Newf(errs.ErrNotFound, "organization %s not found", orgID)
	}
	return org, nil
}

// Update is a partial update; nil fields are left unchanged.
type Update struct {
	Name        *string
	Slug        *string
	Description *string
	LogoURL     *string
	Website     *string
}

// Update changes an organization's profile.
func (s *Service) Update(ctx context.Context, actor *memberdomain.Membership, upd Update) (org *domain.Org, err error) {
	ctx, span := tracer.Start(ctx, "organization.Update", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	var changed []string
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		changed = changed[:0]
		cur, err := lockActor(ctx, tx, actor, memberdomain.RoleAdmin)
		if err != nil {
			return err
		}
		org, err = tx.Organizations().GetOrganizationByID(ctx, cur.OrgID)
		if err != nil {
			return err
		}
		if upd.Name != nil {
			org.Name = strings.TrimSpace(*upd.Name)
			changed = append(changed, "name")
		}
		if upd.Slug != nil {
			sl, err := slug.Normalize(*upd.Slug, org.Name)
			if err != nil {
				return errs.New(errs.ErrInvalidArgument, err.Error())
			}
			org.Slug = sl
			changed = append(changed, "slug")
		}
		if upd.Description != nil {
			org.Description = *upd.Description
			changed = append(changed, "description")
		}
		if upd.LogoURL != nil {
			org.LogoURL = *upd.LogoURL
			changed = append(changed, "logo_url")
		}
		if upd.Website != nil {
			org.Website = *upd.Website
			changed = append(changed, "website")
		}
		if len(changed) == 0 {
			return nil
		}
		if err := org.Validate(); err != nil {
			return errs.New(errs.ErrInvalidArgument, err.Error())
		}
		org.UpdatedAt = s.now().UTC()
		return tx.Organizations().UpdateOrganization(ctx, org)
	})
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		s.audit.Record(ctx, audit.Event{
			OrgID:    org.ID,
			UserID:   actor.UserID,
			Action:   audit.ActionOrgUpdated,
			Resource: resource(org.ID),
			Metadata: map[string]string{"fields": strings.Join(changed, ",")},
		})
	}
	return org, nil
}

// SettingsUpdate is a partial settings update; nil fields are left unchanged.
type SettingsUpdate struct {
	AllowMemberInvites  *bool
	DefaultMemberRole   *string
	Require2FA          *bool
	AllowedEmailDomains *[]string
}

// UpdateSettings changes an organization's settings.
func (s *Service) UpdateSettings(ctx context.Context, actor *memberdomain.Membership, upd SettingsUpdate) (settings domain.Settings, err error) {
	ctx, span := tracer.Start(ctx, "organization.UpdateSettings", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	if upd.DefaultMemberRole != nil {
		r, ok := memberdomain.ParseRole(*upd.DefaultMemberRole)
		if !ok || r == memberdomain.RoleOwner {
			return settings, errs.Newf(errs.ErrInvalidArgument, "default_member_role %q is invalid", *upd.DefaultMemberRole)
		}
	}
	var domains []string
	if upd.AllowedEmailDomains != nil {
		if domains, err = domain.NormalizeEmailDomains(*upd.AllowedEmailDomains); err != nil {
			return settings, errs.New(errs.ErrInvalidArgument, err.Error())
		}
	}

	var org *domain.Org
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		cur, err := lockActor(ctx, tx, actor, memberdomain.RoleAdmin)
		if err != nil {
			return err
		}
		org, err = tx.Organizations().GetOrganizationByID(ctx, cur.OrgID)
		if err != nil {
			return err
		}
		if upd.AllowMemberInvites != nil {
			org.Settings.AllowMemberInvites = *upd.AllowMemberInvites
		}
		if upd.DefaultMemberRole != nil {
			org.Settings.DefaultMemberRole = *upd.DefaultMemberRole
		}
		if upd.Require2FA != nil {
			org.Settings.Require2FA = *upd.Require2FA
		}
		if upd.AllowedEmailDomains != nil {
			org.Settings.AllowedEmailDomains = domains
		}
		org.UpdatedAt = s.now().UTC()
		return tx.Organizations().UpdateOrganization(ctx, org)
	})
	if err != nil {
		return settings, err
	}
	s.audit.Record(ctx, audit.Event{
		OrgID:    org.ID,
		UserID:   actor.UserID,
		Action:   audit.ActionOrgSettingsUpdated,
		Resource: resource(org.ID),
	})
	return org.Settings, nil
}

// Delete removes the organization and everything in it. Only the owner may.
func (s *Service) Delete(ctx context.Context, actor *memberdomain.Membership) (err error) {
	ctx, span := tracer.Start(ctx, "organization.Delete", trace.WithAttributes(attribute.String("org.id", actor.OrgID)))
	defer func() { telemetry.End(span, err) }()

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		cur, err := lockActor(ctx, tx, actor, memberdomain.RoleOwner)
		if err != nil {
			return err
		}
		return tx.Organizations().DeleteOrganization(ctx, cur.OrgID)
	})
	if err != nil {
		return err
	}
	// audit_logs has no foreign key to organizations, so this row outlives the org.
	s.audit.Record(ctx, audit.Event{
		OrgID:    actor.OrgID,
		UserID:   actor.UserID,
		Action:   audit.ActionOrgDeleted,
		Resource: resource(actor.OrgID),
	})
	s.logger.Info("organization deleted", zap.String("org_id", actor.OrgID), zap.String("user_id", actor.UserID))
	return nil
}

// ListForUser returns the organizations userID is an active member of, with
// that membership.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Membership, error) {
	ms, err := s.store.Memberships().ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Membership, 0, len(ms))
	for _, m := range ms {
		if !m.IsActive() {
			continue
		}
		org, err := s.store.Organizations().GetOrganizationByID(ctx, m.OrgID)
		if err != nil {
			return nil, err
		}
		if org == nil {
			continue
		}
		out = append(out, Membership{Org: org, Membership: m})
	}
	return out, nil
}

func lockActor(ctx context.Context, tx store.Store, actor *memberdomain.Membership, minimum memberdomain.Role) (*memberdomain.Membership, error) {
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
	if !cur.Role.AtLeast(minimum) {
		return nil, errs.Newf(errs.ErrForbidden, "requires role %s or higher", minimum)
	}
	return cur, nil
}

func resource(orgID string) string {
	return "organization/" + orgID
}
