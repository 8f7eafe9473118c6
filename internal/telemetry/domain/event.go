package domain

import "time"

// Invitation event types.
const (
	EventInvitationCreated = "invitation.created"
	EventInvitationResent  = "invitation.resent"
)

// InvitationEvent asks a downstream mailer to deliver an invitation. Token is
// the raw invitation token; it is only ever written to the event stream.
type InvitationEvent struct {
	Type         string    `json:"type"`
	InvitationID string    `json:"invitation_id"`
	OrgID        string    `json:"org_id"`
	OrgName      string    `json:"org_name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	InvitedBy    string    `json:"invited_by"`
	Message      string    `json:"message,omitempty"`
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expires_at"`
	OccurredAt   time.Time `json:"occurred_at"`
}
