// Package service stores per-organization Rego modules that replace the
// built-in invitation admission policy while at least one is enabled.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"b2b-tenancy/internal/audit"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/policy/domain"
	"b2b-tenancy/internal/policy/engine"
	"b2b-tenancy/internal/store"
)

type Service struct {
	store store.Store
	audit audit.Recorder
	now   func() time.Time
}

func NewService(st store.Store, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{store: st, audit: recorder, now: time.Now}
}

// Create validates and stores a policy for orgID.
func (s *Service) Create(ctx context.Context, orgID, userID, name, rules string, enabled bool) (*domain.Policy, error) {
	if err := validate(name, rules); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &domain.Policy{
		ID:        uuid.Must(uuid.NewV7()).String(),
		OrgID:     orgID,
		Name:      strings.TrimSpace(name),
		Rules:     rules,
		Enabled:   enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Policies().Create(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, userID, audit.ActionPolicyCreated, p)
	return p, nil
}

// Get returns a policy of orgID.
func (s *Service) Get(ctx context.Context, orgID, id string) (*domain.Policy, error) {
	p, err := s.store.Policies().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.OrgID != orgID {
		return nil, errs.Newf(errs.ErrNotFound, "policy %s not found", id)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, orgID string) ([]*domain.Policy, error) {
	return s.store.Policies().ListByOrg(ctx, orgID)
}

// Update replaces the fields that are non-nil.
func (s *Service) Update(ctx context.Context, orgID, userID, id string, name, rules *string, enabled *bool) (*domain.Policy, error) {
	p, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		p.Name = strings.TrimSpace(*name)
	}
	if rules != nil {
		p.Rules = *rules
	}
	if enabled != nil {
		p.Enabled = *enabled
	}
	if err := validate(p.Name, p.Rules); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.store.Policies().Update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, userID, audit.ActionPolicyUpdated, p)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, orgID, userID, id string) error {
	p, err := s.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	if err := s.store.Policies().Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, userID, audit.ActionPolicyDeleted, p)
	return nil
}

func (s *Service) record(ctx context.Context, userID, action string, p *domain.Policy) {
	s.audit.Record(ctx, audit.Event{
		OrgID:    p.OrgID,
		UserID:   userID,
		Action:   action,
		Resource: "policy/" + p.ID,
		Metadata: map[string]string{"name": p.Name},
	})
}

func validate(name, rules string) error {
	if strings.TrimSpace(name) == "" {
		return errs.New(errs.ErrInvalidArgument, "name is required")
	}
	if err := engine.ValidatePolicy(rules); err != nil {
		return errs.New(errs.ErrInvalidArgument, err.Error())
	}
	return nil
}
