package domain

import "time"

// Policy is an org-level Rego module evaluated when members are invited.
type Policy struct {
	ID        string
	OrgID     string
	Name      string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
