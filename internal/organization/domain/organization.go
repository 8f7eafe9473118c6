package domain

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// Org represents an organization/tenant.
type Org struct {
	ID          string
	Name        string
	Slug        string
	Description string
	LogoURL     string
	Website     string
	Plan        Plan
	Settings    Settings
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Settings is the per-organization settings blob.
type Settings struct {
	AllowMemberInvites  bool     `json:"allow_member_invites"`
	DefaultMemberRole   string   `json:"default_member_role"`
	Require2FA          bool     `json:"require_2fa"`
	AllowedEmailDomains []string `json:"allowed_email_domains"`
}

// DefaultSettings returns the settings a new organization starts with.
func DefaultSettings() Settings {
	return Settings{DefaultMemberRole: "member"}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	s.AllowedEmailDomains = slices.Clone(s.AllowedEmailDomains)
	return s
}

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("name is required")
	}
	if o.Slug == "" {
		return errors.New("slug is required")
	}
	if o.Plan == "" {
		o.Plan = PlanFree
	}
	switch o.Plan {
	case PlanFree, PlanPro, PlanEnterprise:
	default:
		return errors.New("plan is invalid")
	}
	if o.Settings.DefaultMemberRole == "" {
		o.Settings.DefaultMemberRole = "member"
	}
	return nil
}

// NormalizeEmailDomains lowercases, trims and dedupes a domain allow-list.
// Entries must look like a hostname; a leading "@" is dropped.
func NormalizeEmailDomains(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d == "" {
			continue
		}
		if strings.ContainsAny(d, "@ /") || !strings.Contains(d, ".") || strings.HasPrefix(d, ".") || strings.HasSuffix(d, ".") {
			return nil, errors.New("allowed_email_domains contains an invalid domain: " + d)
		}
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out, nil
}
