package repository

import (
	"context"

	"b2b-tenancy/internal/team/domain"
)

// Repository defines persistence for teams and their membership links.
type Repository interface {
	GetTeamByID(ctx context.Context, id string) (*domain.Team, error)
	ListTeamsByOrg(ctx context.Context, orgID string) ([]*domain.Team, error)
	CreateTeam(ctx context.Context, t *domain.Team) error
	UpdateTeam(ctx context.Context, t *domain.Team) error
	DeleteTeam(ctx context.Context, id string) error
	// AddTeamMember links a membership to a team; linking twice is a no-op.
	AddTeamMember(ctx context.Context, teamID, membershipID string) error
	RemoveTeamMember(ctx context.Context, teamID, membershipID string) error
	ListTeamMemberIDs(ctx context.Context, teamID string) ([]string, error)
}
