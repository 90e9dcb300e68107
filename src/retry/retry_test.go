package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo(t *testing.T) {
	tests := []struct {
		name         string
		times        int
		failUntil    int // attempts before this one fail
		want         bool
		wantAttempts int
	}{
		{name: "first attempt succeeds", times: 0, failUntil: 1, want: true, wantAttempts: 1},
		{name: "no retries on failure", times: 0, failUntil: 99, want: false, wantAttempts: 1},
		{name: "succeeds on last retry", times: 2, failUntil: 3, want: true, wantAttempts: 3},
		{name: "gives up", times: 2, failUntil: 99, want: false, wantAttempts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts []int
			got := Do(tt.times, func(attempt int) error {
				attempts = append(attempts, attempt)
				if attempt < tt.failUntil {
					return errors.New("boom")
				}
				return nil
			})
			if got != tt.want {
				t.Errorf("Do() = %v, want %v", got, tt.want)
			}
			if len(attempts) != tt.wantAttempts {
				t.Errorf("attempts = %v, want %d of them", attempts, tt.wantAttempts)
			}
			for i, a := range attempts {
				if a != i+1 {
					t.Errorf("attempt %d numbered %d", i+1, a)
				}
			}
		})
	}
}

func TestDoContext(t *testing.T) {
	calls := 0
	err := DoContext(context.Background(), 2, time.Millisecond, func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 2 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("DoContext() = %v after %d calls, want nil after 2", err, calls)
	}

	sentinel := errors.New("down")
	err = DoContext(context.Background(), 1, 0, func(ctx context.Context, attempt int) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("DoContext() error = %v, want wrapped sentinel", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = DoContext(ctx, 3, time.Hour, func(ctx context.Context, attempt int) error { return sentinel })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("DoContext() error = %v, want context.Canceled", err)
	}
}
