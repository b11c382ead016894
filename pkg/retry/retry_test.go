package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := Sleep
	Sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	t.Cleanup(func() { Sleep = orig })
	return &slept
}

func TestDo(t *testing.T) {
	errBoom := errors.New("boom")
	errFatal := errors.New("fatal")

	tests := []struct {
		name          string
		failCount     int
		failWith      error
		expectedCalls int
		expectErr     error
		expectSleeps  []time.Duration
	}{
		{
			name:          "success on first try",
			expectedCalls: 1,
		},
		{
			name:          "success after one retry",
			failCount:     1,
			failWith:      errBoom,
			expectedCalls: 2,
			expectSleeps:  []time.Duration{time.Second},
		},
		{
			name:          "exhausted after two retries",
			failCount:     10,
			failWith:      errBoom,
			expectedCalls: 3,
			expectErr:     errBoom,
			expectSleeps:  []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:          "non-retryable stops immediately",
			failCount:     10,
			failWith:      errFatal,
			expectedCalls: 1,
			expectErr:     errFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slept := recordSleeps(t)
			policy := DefaultPolicy()
			policy.Retryable = func(err error) bool { return !errors.Is(err, errFatal) }

			calls := 0
			got, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
				calls++
				if calls <= tt.failCount {
					return 0, tt.failWith
				}
				return 42, nil
			})

			if calls != tt.expectedCalls {
				t.Errorf("calls = %d, want %d", calls, tt.expectedCalls)
			}
			if tt.expectErr != nil {
				if !errors.Is(err, tt.expectErr) {
					t.Errorf("err = %v, want %v", err, tt.expectErr)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != 42 {
					t.Errorf("result = %d, want 42", got)
				}
			}
			if len(*slept) != len(tt.expectSleeps) {
				t.Fatalf("sleeps = %v, want %v", *slept, tt.expectSleeps)
			}
			for i, d := range tt.expectSleeps {
				if (*slept)[i] != d {
					t.Errorf("sleep[%d] = %v, want %v", i, (*slept)[i], d)
				}
			}
		})
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 5, InitialDelay: time.Hour, BackoffFactor: 2},
		func(ctx context.Context) (struct{}, error) {
			calls++
			return struct{}{}, errors.New("down")
		})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled in chain", err)
	}
}

func TestMaxBackoff(t *testing.T) {
	if got := DefaultPolicy().MaxBackoff(); got != 3*time.Second {
		t.Errorf("MaxBackoff() = %v, want 3s", got)
	}
	if got := (Policy{MaxAttempts: 1, InitialDelay: time.Second}).MaxBackoff(); got != 0 {
		t.Errorf("single attempt MaxBackoff() = %v, want 0", got)
	}
}
