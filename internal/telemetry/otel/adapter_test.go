package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"b2b-tenancy/internal/telemetry/domain"
)

type recordCapture struct {
	rec otellog.Record
	n   int
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
	r.n++
}

func TestNewEventPublisher_NilProvider(t *testing.T) {
	p := NewEventPublisher(nil)
	if err := p.Publish(context.Background(), &domain.InvitationEvent{}); err != nil {
		t.Errorf("noop Publish: %v", err)
	}
}

func TestNewEventPublisher_WithProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	if err := NewEventPublisher(provider).Publish(context.Background(), &domain.InvitationEvent{Type: "x"}); err != nil {
		t.Errorf("Publish: %v", err)
	}
}

func TestPublish_RedactsToken(t *testing.T) {
	cap := &recordCapture{}
	p := NewEventPublisherWithLogger(cap)
	occurred := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	event := &domain.InvitationEvent{
		Type:         domain.EventInvitationCreated,
		InvitationID: "inv-1",
		OrgID:        "org-1",
		Email:        "a@example.com",
		Role:         "admin",
		InvitedBy:    "user-1",
		Token:        "secret-token",
		ExpiresAt:    occurred.Add(7 * 24 * time.Hour),
		OccurredAt:   occurred,
	}
	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if cap.n != 1 {
		t.Fatalf("emitted %d records", cap.n)
	}
	if !cap.rec.Timestamp().Equal(occurred) {
		t.Errorf("timestamp = %v", cap.rec.Timestamp())
	}
	attrs := map[string]string{}
	cap.rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	for _, v := range attrs {
		if v == "secret-token" {
			t.Fatal("token leaked into log record")
		}
	}
	if attrs["invitation_id"] != "inv-1" || attrs["email"] != "a@example.com" || attrs["role"] != "admin" {
		t.Errorf("attributes = %v", attrs)
	}
	if attrs["expires_at"] != "2026-01-08T09:00:00Z" {
		t.Errorf("expires_at = %q", attrs["expires_at"])
	}
}

func TestPublish_NilEvent(t *testing.T) {
	cap := &recordCapture{}
	if err := NewEventPublisherWithLogger(cap).Publish(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if cap.n != 0 {
		t.Error("nil event should not emit")
	}
}
