package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

var errTemp = errors.New("temporary")

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func retryTemp(err error) ErrorClassification {
	return ErrorClassification{Retryable: errors.Is(err, errTemp), RecordFailure: true}
}

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)

	attempts := 0
	err := exec.Execute(context.Background(), "repo.save_report", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, retryTemp)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteStopsAtMaxAttempts(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)

	attempts := 0
	err := exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
		attempts++
		return errTemp
	}, retryTemp)
	if !errors.Is(err, errTemp) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, retryTemp)
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteHonoursCanceledContext(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := exec.Execute(ctx, "op", func(context.Context) error {
		called = true
		return nil
	}, retryTemp)
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancellation before call, got err=%v called=%v", err, called)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = 50 * time.Millisecond
	cfg.BreakerHalfOpenMaxCalls = 1
	exec := NewExecutor(cfg, nil)

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, nil)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestCallReturnsValue(t *testing.T) {
	attempts := 0
	got, err := Call(context.Background(), NewExecutor(fastConfig(), nil), "repo.get", func(context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errTemp
		}
		return "run-1", nil
	}, retryTemp)
	if err != nil || got != "run-1" {
		t.Fatalf("expected run-1, got %q (%v)", got, err)
	}

	direct, err := Call(context.Background(), nil, "repo.get", func(context.Context) (int, error) { return 7, nil }, nil)
	if err != nil || direct != 7 {
		t.Fatalf("expected direct call result 7, got %d (%v)", direct, err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("RESILIENCE_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RESILIENCE_BREAKER_ENABLED", "false")
	t.Setenv("RESILIENCE_RETRY_INITIAL_BACKOFF", "")

	cfg := ConfigFromEnv()
	if cfg.RetryMaxAttempts != 5 || cfg.BreakerEnabled {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.RetryInitialBackoff != DefaultConfig().RetryInitialBackoff {
		t.Fatalf("expected default backoff, got %v", cfg.RetryInitialBackoff)
	}
}
