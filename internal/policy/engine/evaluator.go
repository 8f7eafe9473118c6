package engine

import "context"

// InvitationInput is what an admission policy sees about a new invitation.
type InvitationInput struct {
	OrgID               string
	AllowedEmailDomains []string
	InviterUserID       string
	InviterRole         string
	Email               string
	Role                string
}

// Decision is the result of an admission policy.
type Decision struct {
	Allowed bool
	Reason  string
}

// Evaluator decides whether an invitation may be created.
type Evaluator interface {
	AdmitInvitation(ctx context.Context, in InvitationInput) (Decision, error)
}
