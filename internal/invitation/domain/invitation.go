package domain

import (
	"slices"
	"time"

	memberdomain "b2b-tenancy/internal/membership/domain"
)

// Invitation is a pending offer of membership addressed to an email.
// Only the token fingerprint is stored; the raw token is handed out once.
type Invitation struct {
	ID        string
	OrgID     string
	Email     string
	Role      memberdomain.Role
	Status    Status
	TokenHash string
	Message   string
	InvitedBy string
	TeamIDs   []string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// ParseStatus parses a stored or requested status value.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusAccepted, StatusDeclined, StatusCancelled, StatusExpired:
		return Status(s), true
	}
	return "", false
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
// Every edge leaves pending; every other state is terminal.
func CanTransition(from, to Status) bool {
	if from != StatusPending {
		return false
	}
	switch to {
	case StatusAccepted, StatusDeclined, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// IsExpiredAt reports whether a pending invitation has passed its expiration.
// It is still redeemable at exactly expires_at.
func (i *Invitation) IsExpiredAt(now time.Time) bool {
	return i.Status == StatusPending && now.After(i.ExpiresAt)
}

// Clone returns a copy that shares no slices with i.
func (i *Invitation) Clone() *Invitation {
	c := *i
	c.TeamIDs = slices.Clone(i.TeamIDs)
	return &c
}
