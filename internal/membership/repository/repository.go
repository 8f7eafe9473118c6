package repository

import (
	"context"

	"b2b-tenancy/internal/membership/domain"
)

// Repository defines persistence for memberships.
type Repository interface {
	GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error)
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	// ListMembershipsByOrg returns up to limit memberships with ID greater than
	// afterID, in ID order, matching filter.
	ListMembershipsByOrg(ctx context.Context, orgID string, filter domain.Filter, afterID string, limit int) ([]*domain.Membership, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]*domain.Membership, error)
	CountActiveOwners(ctx context.Context, orgID string) (int64, error)
	// CreateMembership fails with a conflict for a duplicate (org, user) and an
	// invariant violation for a second active owner.
	CreateMembership(ctx context.Context, m *domain.Membership) error
	// UpdateMembership writes role, status, job title and department.
	UpdateMembership(ctx context.Context, m *domain.Membership) error
	DeleteMembership(ctx context.Context, id string) error
}
