package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	var delays []time.Duration
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Second, Sleep: recordingSleep(&delays)}

	calls := 0
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		calls++
		return Ok(7)
	})

	if v, _ := r.Unwrap(); v != 7 {
		t.Fatalf("unexpected value: %d", v)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if len(delays) != 0 {
		t.Errorf("expected no sleeps, got %v", delays)
	}
}

func TestRetry_BackoffDoubles(t *testing.T) {
	var delays []time.Duration
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Second, Sleep: recordingSleep(&delays)}

	calls := 0
	r := Retry(context.Background(), opts, func(context.Context) Result[string] {
		calls++
		if calls < 3 {
			return Err[string](errors.New("transient"))
		}
		return Ok("done")
	})

	if r.IsErr() {
		_, err := r.Unwrap()
		t.Fatalf("expected ok after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestRetry_Exhausted(t *testing.T) {
	var delays []time.Duration
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Second, Sleep: recordingSleep(&delays)}

	boom := errors.New("still down")
	calls := 0
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		calls++
		return Err[int](boom)
	})

	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
	if _, err := r.Unwrap(); !errors.Is(err, boom) {
		t.Errorf("expected last error, got %v", err)
	}
	if len(delays) != 2 {
		t.Errorf("expected 2 sleeps, got %d", len(delays))
	}
}

func TestRetry_MaxWaitCaps(t *testing.T) {
	var delays []time.Duration
	opts := RetryOpts{MaxAttempts: 4, InitialWait: time.Second, MaxWait: 2 * time.Second, Sleep: recordingSleep(&delays)}

	Retry(context.Background(), opts, func(context.Context) Result[int] {
		return Err[int](errors.New("nope"))
	})

	want := []time.Duration{time.Second, 2 * time.Second, 2 * time.Second}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestRetry_ContextCancelledDuringSleep(t *testing.T) {
	opts := RetryOpts{
		MaxAttempts: 3,
		InitialWait: time.Second,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			return context.Canceled
		},
	}

	calls := 0
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		calls++
		return Err[int](errors.New("transient"))
	})

	if calls != 1 {
		t.Errorf("expected 1 call before cancel, got %d", calls)
	}
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
