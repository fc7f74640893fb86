package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunInvokesTrigger(t *testing.T) {
	var calls atomic.Int32

	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context) (int, error) {
			if calls.Add(1) >= 3 {
				cancel()
			}
			return 1, nil
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 trigger calls, got %d", calls.Load())
	}
}

func TestRunContinuesAfterTriggerError(t *testing.T) {
	var calls atomic.Int32

	s := New(Options{Interval: 5 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context) (int, error) {
			if calls.Add(1) >= 2 {
				cancel()
			}
			return 0, errors.New("selection failed")
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler must outlive trigger failures")
	}

	if calls.Load() < 2 {
		t.Fatalf("expected the loop to continue after an error, got %d calls", calls.Load())
	}
}
