package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"nil", nil, false, false},
		{"canceled", fmt.Errorf("publish: %w", context.Canceled), false, false},
		{"no servers", fmt.Errorf("nats publish: %w", nats.ErrNoServers), true, true},
		{"closed", nats.ErrConnectionClosed, true, true},
		{"open circuit", gobreaker.ErrOpenState, true, true},
		{"bad subject", nats.ErrBadSubject, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyNATSError(tc.err)
			if got.Retryable != tc.retryable || got.RecordFailure != tc.record {
				t.Fatalf("expected retryable=%v record=%v, got %+v", tc.retryable, tc.record, got)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := wrapTemporaryIfNeeded(nats.ErrTimeout); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
	permanent := errors.New("payload too large")
	if err := wrapTemporaryIfNeeded(permanent); domain.IsKind(err, domain.ErrTemporary) || !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error untouched, got %v", err)
	}
}
