package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"b2b-tenancy/internal/audit/domain"
)

type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func TestLogger_Record(t *testing.T) {
	repo := &mockAuditRepo{}
	l := NewLogger(repo, func(context.Context) string { return "10.0.0.1" }, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Record(context.Background(), Event{
		OrgID:    "org-1",
		UserID:   "user-1",
		Action:   ActionMemberRoleChanged,
		Resource: "membership/m-1",
		Metadata: map[string]string{"to": "admin", "from": "member"},
	})

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	e := repo.entries[0]
	if e.OrgID != "org-1" || e.UserID != "user-1" || e.Action != ActionMemberRoleChanged {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.IP != "10.0.0.1" {
		t.Errorf("ip = %q", e.IP)
	}
	if e.Metadata != `{"from":"member","to":"admin"}` {
		t.Errorf("metadata = %q", e.Metadata)
	}
	if !e.CreatedAt.Equal(fixed) {
		t.Errorf("created_at = %v", e.CreatedAt)
	}
	if e.ID == "" {
		t.Error("id not set")
	}
}

func TestLogger_Record_UnknownIPAndEmptyMetadata(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil, nil).Record(context.Background(), Event{OrgID: "org-1", Action: ActionOrgCreated})
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].IP != "unknown" || repo.entries[0].Metadata != "" {
		t.Errorf("unexpected entry %+v", repo.entries[0])
	}
}

func TestLogger_Record_SurvivesCancelledContext(t *testing.T) {
	repo := &mockAuditRepo{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewLogger(repo, nil, nil).Record(ctx, Event{OrgID: "org-1", Action: ActionOrgDeleted})
	if len(repo.entries) != 1 {
		t.Fatalf("expected event recorded after cancellation, got %d", len(repo.entries))
	}
}

func TestLogger_Record_RepoErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	NewLogger(repo, nil, zap.New(core)).Record(context.Background(), Event{OrgID: "org-1", Action: ActionTeamCreated})
	if logs.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", logs.Len())
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	l.Record(context.Background(), Event{Action: ActionOrgCreated})
	NewLogger(nil, nil, nil).Record(context.Background(), Event{Action: ActionOrgCreated})
}
