package repository

import (
	"context"

	"b2b-tenancy/internal/organization/domain"
)

// Repository defines persistence for organizations.
type Repository interface {
	GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Org, error)
	// ListOrganizationsByUser returns the organizations where userID has an active membership.
	ListOrganizationsByUser(ctx context.Context, userID string) ([]*domain.Org, error)
	CreateOrganization(ctx context.Context, o *domain.Org) error
	UpdateOrganization(ctx context.Context, o *domain.Org) error
	// DeleteOrganization removes the org; memberships, teams, invitations and policies go with it.
	DeleteOrganization(ctx context.Context, id string) error
	// LockOrganization takes the row lock that serializes membership and
	// invitation mutations for the org until the transaction ends.
	LockOrganization(ctx context.Context, id string) error
}
