package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"b2b-tenancy/internal/telemetry/domain"
)

type mockPublisher struct {
	mu     sync.Mutex
	events []*domain.InvitationEvent
	err    error
	done   chan struct{}
}

func (m *mockPublisher) Publish(ctx context.Context, event *domain.InvitationEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.done != nil {
		m.done <- struct{}{}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.err
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestMulti_PublishesToAllAndJoinsErrors(t *testing.T) {
	ok := &mockPublisher{}
	failing := &mockPublisher{err: errors.New("broker down")}
	err := Multi{ok, nil, failing}.Publish(context.Background(), &domain.InvitationEvent{Type: domain.EventInvitationCreated})
	if err == nil || err.Error() != "broker down" {
		t.Errorf("err = %v, want broker down", err)
	}
	if ok.count() != 1 || failing.count() != 1 {
		t.Errorf("counts = %d, %d; want 1, 1", ok.count(), failing.count())
	}
}

func TestPublishAsync_NilPublisherOrEvent(t *testing.T) {
	PublishAsync(context.Background(), nil, nil, &domain.InvitationEvent{})
	p := &mockPublisher{}
	PublishAsync(context.Background(), p, nil, nil)
	time.Sleep(10 * time.Millisecond)
	if p.count() != 0 {
		t.Errorf("expected no publish, got %d", p.count())
	}
}

func TestPublishAsync_IgnoresRequestCancellation(t *testing.T) {
	p := &mockPublisher{done: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	PublishAsync(ctx, p, nil, &domain.InvitationEvent{Type: domain.EventInvitationResent})
	select {
	case <-p.done:
	case <-time.After(time.Second):
		t.Fatal("publish did not run")
	}
}

func TestPublishAsync_LogsFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := &mockPublisher{err: errors.New("boom"), done: make(chan struct{}, 1)}
	PublishAsync(context.Background(), p, zap.New(core), &domain.InvitationEvent{InvitationID: "inv-1"})
	<-p.done
	deadline := time.Now().Add(time.Second)
	for logs.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["invitation_id"]; got != "inv-1" {
		t.Errorf("invitation_id field = %v", got)
	}
}
