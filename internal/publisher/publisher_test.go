package publisher_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rgregg/frigate-event-processor/internal/publisher"
)

type stubEgress struct {
	failures int
	calls    int
	lastErr  error
}

func (s *stubEgress) Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("egress unavailable")
	}
	return s.lastErr
}

func TestPublisher_SucceedsFirstTry(t *testing.T) {
	egress := &stubEgress{}
	p := publisher.New(egress, "alerts/out", 1, nil)
	err := p.Publish(context.Background(), publisher.Alert{EventID: "evt1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if egress.calls != 1 {
		t.Errorf("egress.calls = %d, want 1", egress.calls)
	}
}

func TestPublisher_RetriesThenSucceeds(t *testing.T) {
	egress := &stubEgress{failures: 2}
	p := publisher.New(egress, "alerts/out", 1, nil)
	err := p.Publish(context.Background(), publisher.Alert{EventID: "evt1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if egress.calls != 3 {
		t.Errorf("egress.calls = %d, want 3", egress.calls)
	}
}

func TestPublisher_ExhaustsRetriesAndReturnsLastError(t *testing.T) {
	egress := &stubEgress{failures: 10}
	p := publisher.New(egress, "alerts/out", 1, nil)
	err := p.Publish(context.Background(), publisher.Alert{EventID: "evt1"})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if egress.calls != 3 {
		t.Errorf("egress.calls = %d, want 3 (maxAttempts)", egress.calls)
	}
}

func TestPublisher_ContextCancelledDuringBackoffStopsEarly(t *testing.T) {
	egress := &stubEgress{failures: 10}
	p := publisher.New(egress, "alerts/out", 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, publisher.Alert{EventID: "evt1"})
	if err == nil {
		t.Fatal("expected an error when context is already cancelled")
	}
}
