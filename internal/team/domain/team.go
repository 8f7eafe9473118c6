package domain

import (
	"errors"
	"strings"
	"time"
)

// Team groups memberships of one organization.
type Team struct {
	ID          string
	OrgID       string
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the team for persistence. Returns an error describing the first validation failure.
func (t *Team) Validate() error {
	if t.OrgID == "" {
		return errors.New("org_id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("name is required")
	}
	if t.Slug == "" {
		return errors.New("slug is required")
	}
	return nil
}
