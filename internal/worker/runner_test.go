package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nyashahama/vitalwatch-backend/internal/email"
	"github.com/nyashahama/vitalwatch-backend/internal/worker"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubSender fails the first failN calls, then succeeds. Each call is
// reported on sent.
type stubSender struct {
	mu    sync.Mutex
	calls int
	failN int
	sent  chan email.HighRiskAlertParams
}

func newStubSender(failN int) *stubSender {
	return &stubSender{failN: failN, sent: make(chan email.HighRiskAlertParams, 16)}
}

func (s *stubSender) SendHighRiskAlert(_ context.Context, p email.HighRiskAlertParams) error {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	s.sent <- p
	if n <= s.failN {
		return errors.New("resend unavailable")
	}
	return nil
}

func (s *stubSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitCalls(t *testing.T, s *stubSender, n int) []email.HighRiskAlertParams {
	t.Helper()
	var got []email.HighRiskAlertParams
	for len(got) < n {
		select {
		case p := <-s.sent:
			got = append(got, p)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d sends", len(got), n)
		}
	}
	return got
}

// ─── TESTS ────────────────────────────────────────────────────────────────────

func TestRunner_DeliversAlertToRecipient(t *testing.T) {
	sender := newStubSender(0)
	r := worker.NewRunner(
		worker.NewJob(sender, "oncall@clinic.test", discardLogger()),
		worker.RunnerConfig{Workers: 1, Backoff: time.Millisecond},
		discardLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { r.Start(ctx); close(done) }()

	if err := r.Enqueue(ctx, worker.Alert{PatientID: "USR004", Condition: "diabetes", RiskScore: 91}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got := waitCalls(t, sender, 1)
	if got[0].To != "oncall@clinic.test" || got[0].PatientID != "USR004" || got[0].RiskScore != 91 {
		t.Errorf("unexpected params: %+v", got[0])
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestRunner_RetriesWithBackoff(t *testing.T) {
	sender := newStubSender(2)
	r := worker.NewRunner(
		worker.NewJob(sender, "x@y.test", discardLogger()),
		worker.RunnerConfig{Workers: 1, MaxRetries: 3, Backoff: 5 * time.Millisecond},
		discardLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx)

	start := time.Now()
	if err := r.Enqueue(ctx, worker.Alert{PatientID: "USR001"}); err != nil {
		t.Fatal(err)
	}
	waitCalls(t, sender, 3)

	// 5ms after the first failure, 10ms after the second.
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("expected exponential back-off between attempts, took %v", elapsed)
	}
}

func TestRunner_GivesUpAfterMaxRetries(t *testing.T) {
	sender := newStubSender(100)
	r := worker.NewRunner(
		worker.NewJob(sender, "x@y.test", discardLogger()),
		worker.RunnerConfig{Workers: 1, MaxRetries: 2, Backoff: time.Millisecond},
		discardLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx)

	if err := r.Enqueue(ctx, worker.Alert{PatientID: "USR002"}); err != nil {
		t.Fatal(err)
	}
	waitCalls(t, sender, 2)

	// No third attempt.
	time.Sleep(50 * time.Millisecond)
	if n := sender.count(); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestRunner_EnqueueWhenFull(t *testing.T) {
	r := worker.NewRunner(
		worker.NewJob(newStubSender(0), "x@y.test", discardLogger()),
		worker.RunnerConfig{Workers: 1, QueueSize: 1},
		discardLogger(),
	)

	// Not started: the single slot fills and the next Enqueue must not block.
	if err := r.Enqueue(context.Background(), worker.Alert{PatientID: "USR001"}); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	if err := r.Enqueue(context.Background(), worker.Alert{PatientID: "USR002"}); !errors.Is(err, worker.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}
