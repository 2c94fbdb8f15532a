package fn

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestOkAndErr(t *testing.T) {
	ok := Ok(42)
	if !ok.IsOk() || ok.IsErr() {
		t.Error("Ok result should be ok")
	}
	if v, err := ok.Unwrap(); v != 42 || err != nil {
		t.Errorf("unexpected unwrap: %d, %v", v, err)
	}

	boom := errors.New("boom")
	bad := Err[int](boom)
	if bad.IsOk() || !bad.IsErr() {
		t.Error("Err result should be err")
	}
	if _, err := bad.Unwrap(); !errors.Is(err, boom) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestErrf(t *testing.T) {
	r := Errf[string]("failed after %d tries", 3)
	if _, err := r.Unwrap(); err == nil || err.Error() != "failed after 3 tries" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUnwrapOr(t *testing.T) {
	if got := Ok("a").UnwrapOr("b"); got != "a" {
		t.Errorf("expected a, got %s", got)
	}
	if got := Err[string](errors.New("x")).UnwrapOr("b"); got != "b" {
		t.Errorf("expected fallback b, got %s", got)
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair(1, nil); r.IsErr() {
		t.Error("nil error should produce Ok")
	}
	if r := FromPair(0, errors.New("x")); r.IsOk() {
		t.Error("non-nil error should produce Err")
	}
}

func TestThen(t *testing.T) {
	double := MapStage(func(n int) int { return n * 2 })
	str := MapStage(strconv.Itoa)

	r := Then(double, str)(context.Background(), 21)
	if v, _ := r.Unwrap(); v != "42" {
		t.Errorf("expected 42, got %s", v)
	}
}

func TestThenShortCircuits(t *testing.T) {
	boom := errors.New("first failed")
	first := func(context.Context, int) Result[int] { return Err[int](boom) }

	secondCalled := false
	second := func(_ context.Context, n int) Result[int] {
		secondCalled = true
		return Ok(n)
	}

	r := Then(first, second)(context.Background(), 1)
	if _, err := r.Unwrap(); !errors.Is(err, boom) {
		t.Errorf("expected first stage error, got %v", err)
	}
	if secondCalled {
		t.Error("second stage should not run after first fails")
	}
}

func TestTracedStage(t *testing.T) {
	stage := TracedStage("test.stage", MapStage(func(n int) int { return n + 1 }))
	if v, _ := stage(context.Background(), 1).Unwrap(); v != 2 {
		t.Errorf("traced stage changed result: %d", v)
	}

	boom := errors.New("inner")
	failing := TracedStage("test.fail", func(context.Context, int) Result[int] {
		return Err[int](boom)
	})
	if _, err := failing(context.Background(), 1).Unwrap(); !errors.Is(err, boom) {
		t.Errorf("traced stage swallowed error: %v", err)
	}
}

func TestRetryStage(t *testing.T) {
	opts := RetryOpts{
		MaxAttempts: 3,
		InitialWait: time.Second,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}

	calls := 0
	stage := RetryStage(opts, func(_ context.Context, n int) Result[int] {
		calls++
		if calls < 2 {
			return Err[int](errors.New("transient"))
		}
		return Ok(n * 10)
	})

	r := stage(context.Background(), 4)
	if v, err := r.Unwrap(); err != nil || v != 40 {
		t.Fatalf("unexpected result: %d, %v", v, err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestMap(t *testing.T) {
	got := Map([]int{1, 2, 3}, func(n int) int { return n * n })
	want := []int{1, 4, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestFilterMap(t *testing.T) {
	got := FilterMap([]string{"1", "x", "3"}, func(s string) (int, bool) {
		n, err := strconv.Atoi(s)
		return n, err == nil
	})
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("unexpected result: %v", got)
	}
}

func TestBatch(t *testing.T) {
	tests := []struct {
		name  string
		items int
		n     int
		sizes []int
	}{
		{"even split", 6, 2, []int{2, 2, 2}},
		{"remainder", 7, 3, []int{3, 3, 1}},
		{"single batch", 2, 100, []int{2}},
		{"empty", 0, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.items)
			batches := Batch(items, tt.n)
			if len(batches) != len(tt.sizes) {
				t.Fatalf("expected %d batches, got %d", len(tt.sizes), len(batches))
			}
			for i, want := range tt.sizes {
				if len(batches[i]) != want {
					t.Errorf("batch %d: expected %d items, got %d", i, want, len(batches[i]))
				}
			}
		})
	}
}

func TestBatchBadSize(t *testing.T) {
	if got := Batch([]int{1, 2}, 0); got != nil {
		t.Errorf("expected nil for n=0, got %v", got)
	}
}
