package repository

import (
	"context"
	"time"

	"b2b-tenancy/internal/invitation/domain"
)

// Repository defines persistence for invitations.
type Repository interface {
	GetInvitationByID(ctx context.Context, id string) (*domain.Invitation, error)
	GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error)
	// GetPendingInvitation returns the stored-pending invitation for (org, email), if any.
	GetPendingInvitation(ctx context.Context, orgID, email string) (*domain.Invitation, error)
	// ListInvitationsByOrg lists newest first; an empty status lists all.
	ListInvitationsByOrg(ctx context.Context, orgID string, status domain.Status) ([]*domain.Invitation, error)
	ListPendingInvitationsByEmail(ctx context.Context, email string) ([]*domain.Invitation, error)
	CreateInvitation(ctx context.Context, inv *domain.Invitation) error
	// TransitionInvitation moves id from one status to another only if it is
	// still in from. It reports whether the row changed.
	TransitionInvitation(ctx context.Context, id string, from, to domain.Status, at time.Time) (bool, error)
	// RotateInvitationToken replaces the token and expiry of a pending invitation.
	RotateInvitationToken(ctx context.Context, id, tokenHash string, expiresAt, at time.Time) (bool, error)
}
