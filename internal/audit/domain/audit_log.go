package domain

import (
	"strings"
	"time"
)

// AuditLog is one recorded ledger event of an organization. Entries are
// append-only and outlive the memberships they mention.
type AuditLog struct {
	ID     string
	OrgID  string
	UserID string // acting user; empty for system actions such as lazy expiry
	// Action is "<subject>.<verb>", e.g. "membership.role_changed".
	Action string
	// Resource is "<kind>/<id>", e.g. "membership/0190f…".
	Resource string
	IP       string
	// Metadata is a JSON object of string values, or "" when there is none.
	Metadata  string
	CreatedAt time.Time
}

// ResourceKind returns the kind part of Resource ("membership", "invitation", …).
func (a *AuditLog) ResourceKind() string {
	kind, _, _ := strings.Cut(a.Resource, "/")
	return kind
}
