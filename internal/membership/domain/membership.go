package domain

import (
	"time"
)

// Membership links a user to an organization with a role.
type Membership struct {
	ID         string
	UserID     string
	OrgID      string
	Role       Role
	Status     Status
	JobTitle   string
	Department string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsActive reports whether the membership grants access.
func (m *Membership) IsActive() bool {
	return m.Status == StatusActive
}

// IsActiveOwner reports whether m is the organization's current owner.
func (m *Membership) IsActiveOwner() bool {
	return m.Role == RoleOwner && m.Status == StatusActive
}

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// ParseStatus parses a stored or requested status value.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusActive, StatusSuspended:
		return Status(s), true
	}
	return "", false
}
