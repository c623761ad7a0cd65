package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func fail(_ context.Context) error { return errors.New("fail") }
func ok(_ context.Context) error   { return nil }

func newTestBreaker(threshold int, reset time.Duration) (*CircuitBreaker, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: threshold,
		ResetTimeout:     reset,
	})
	cb.nowFunc = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_ClosedState_PassesThrough(t *testing.T) {
	cb, _ := newTestBreaker(5, time.Minute)

	var calls int
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed state, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}

	if cb.State() != CircuitOpen {
		t.Errorf("expected open state after 3 failures, got %s", cb.State())
	}

	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("should not be called when circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_NeverRetries(t *testing.T) {
	cb, _ := newTestBreaker(5, time.Minute)

	var calls int
	_ = cb.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return errors.New("boom")
	})
	if calls != 1 {
		t.Errorf("expected exactly one attempt, got %d", calls)
	}
}

func TestCircuitBreaker_SuccessResetsCounter(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	if got := cb.Failures(); got != 2 {
		t.Errorf("expected 2 consecutive failures, got %d", got)
	}

	_ = cb.Execute(context.Background(), ok)
	if got := cb.Failures(); got != 0 {
		t.Errorf("expected counter reset, got %d", got)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbeCloses(t *testing.T) {
	cb, now := newTestBreaker(1, 30*time.Second)

	_ = cb.Execute(context.Background(), fail)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	*now = now.Add(31 * time.Second)
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open after timeout, got %s", cb.State())
	}

	if err := cb.Execute(context.Background(), ok); err != nil {
		t.Fatalf("probe should pass: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(1, 30*time.Second)

	_ = cb.Execute(context.Background(), fail)
	*now = now.Add(31 * time.Second)

	_ = cb.Execute(context.Background(), fail)
	if cb.State() != CircuitOpen {
		t.Errorf("expected reopened circuit, got %s", cb.State())
	}

	// The reset window restarts from the failed probe.
	*now = now.Add(10 * time.Second)
	if err := cb.Execute(context.Background(), ok); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SingleProbeInFlight(t *testing.T) {
	cb, now := newTestBreaker(1, time.Second)
	_ = cb.Execute(context.Background(), fail)
	*now = now.Add(2 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(context.Background(), func(_ context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := cb.Execute(context.Background(), ok); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second caller during probe should be rejected, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_CancellationDoesNotTrip(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)

	err := cb.Execute(context.Background(), func(_ context.Context) error {
		return context.Canceled
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled passthrough, got %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("cancellation should not open the circuit, got %s", cb.State())
	}
}

func TestCircuitBreaker_DeadlineTrips(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)

	_ = cb.Execute(context.Background(), func(_ context.Context) error {
		return context.DeadlineExceeded
	})
	if cb.State() != CircuitOpen {
		t.Errorf("timeouts should count as failures, got %s", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = cb.Execute(context.Background(), fail)
	cb.Reset()

	want := []string{"closed->open", "open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestCircuitBreaker_ShouldTrip(t *testing.T) {
	errIgnored := errors.New("ignored")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ShouldTrip:       func(err error) bool { return err != nil && !errors.Is(err, errIgnored) },
	})

	_ = cb.Execute(context.Background(), func(_ context.Context) error { return errIgnored })
	if cb.State() != CircuitClosed {
		t.Errorf("ignored error should not trip, got %s", cb.State())
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = cb.Execute(context.Background(), fail)
			} else {
				_ = cb.Execute(context.Background(), ok)
			}
			_ = cb.State()
		}(i)
	}
	wg.Wait()
}

func TestExecuteVal(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)

	v, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
		return "hello", nil
	})
	if err != nil || v != "hello" {
		t.Fatalf("expected hello, got %q (%v)", v, err)
	}

	_, _ = ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
		return "", errors.New("fail")
	})
	v, err = ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
		t.Error("should not be called")
		return "x", nil
	})
	if !errors.Is(err, ErrCircuitOpen) || v != "" {
		t.Errorf("expected zero value and ErrCircuitOpen, got %q (%v)", v, err)
	}
}

func TestNewCircuitConfig(t *testing.T) {
	cfg := NewCircuitConfig("gemini", 4, 90)
	if cfg.Name != "gemini" || cfg.FailureThreshold != 4 || cfg.ResetTimeout != 90*time.Second {
		t.Errorf("unexpected config: %+v", cfg)
	}
	cb := NewCircuitBreaker(NewCircuitConfig("x", 0, 0))
	if cb.cfg.FailureThreshold != 5 || cb.cfg.ResetTimeout != 60*time.Second {
		t.Errorf("defaults not applied: %+v", cb.cfg)
	}
}

func TestCircuitState_String(t *testing.T) {
	cases := map[CircuitState]string{
		CircuitClosed:    "closed",
		CircuitOpen:      "open",
		CircuitHalfOpen:  "half-open",
		CircuitState(99): "unknown",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("%d: expected %s, got %s", s, want, s.String())
		}
	}
}
