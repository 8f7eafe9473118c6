package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"b2b-tenancy/internal/audit/domain"
	auditrepo "b2b-tenancy/internal/audit/repository"
)

// Actions recorded by the ledgers.
const (
	ActionOrgCreated         = "organization.created"
	ActionOrgUpdated         = "organization.updated"
	ActionOrgSettingsUpdated = "organization.settings_updated"
	ActionOrgDeleted         = "organization.deleted"

	ActionMemberAdded         = "membership.created"
	ActionMemberRoleChanged   = "membership.role_changed"
	ActionMemberStatusChanged = "membership.status_changed"
	ActionMemberUpdated       = "membership.updated"
	ActionMemberRemoved       = "membership.removed"
	ActionMemberLeft          = "membership.left"
	ActionOwnershipTransfer   = "ownership.transferred"

	ActionInvitationCreated   = "invitation.created"
	ActionInvitationAccepted  = "invitation.accepted"
	ActionInvitationDeclined  = "invitation.declined"
	ActionInvitationCancelled = "invitation.cancelled"
	ActionInvitationResent    = "invitation.resent"
	ActionInvitationExpired   = "invitation.expired"

	ActionTeamCreated       = "team.created"
	ActionTeamUpdated       = "team.updated"
	ActionTeamDeleted       = "team.deleted"
	ActionTeamMemberAdded   = "team.member_added"
	ActionTeamMemberRemoved = "team.member_removed"

	ActionPolicyCreated = "policy.created"
	ActionPolicyUpdated = "policy.updated"
	ActionPolicyDeleted = "policy.deleted"
)

// Event is one entry to record. Resource is "<kind>/<id>".
type Event struct {
	OrgID    string
	UserID   string
	Action   string
	Resource string
	Metadata map[string]string
}

// Recorder records audit events. Recording is best-effort and never fails the caller.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// Logger persists events through the audit repository. It must be given the
// root store's repository, never a transaction's: events are recorded after commit.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	logger      *zap.Logger
	now         func() time.Time
}

// NewLogger returns a Logger. ipExtractor may be nil; the IP is then "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, logger: logger, now: time.Now}
}

// Record writes one entry. Failures are logged and dropped.
func (l *Logger) Record(ctx context.Context, e Event) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	var metadata string
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			l.logger.Warn("audit: encode metadata", zap.String("action", e.Action), zap.Error(err))
		} else {
			metadata = string(b)
		}
	}
	entry := &domain.AuditLog{
		ID:        uuid.Must(uuid.NewV7()).String(),
		OrgID:     e.OrgID,
		UserID:    e.UserID,
		Action:    e.Action,
		Resource:  e.Resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: l.now().UTC(),
	}
	// A cancelled request must not drop an event for a change that already committed.
	if err := l.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		l.logger.Warn("audit: record event failed",
			zap.String("action", e.Action),
			zap.String("resource", e.Resource),
			zap.Error(err))
	}
}
