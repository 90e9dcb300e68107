// Package retry runs one-shot idempotent operations, such as schema
// migration, a bounded number of times. Mail sending does not use it: a
// repeated send is not idempotent.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Do runs fn once and, after each failure, up to times more. It reports
// whether any attempt succeeded. Attempts are numbered from 1.
func Do(times int, fn func(attempt int) error) bool {
	for attempt := 1; attempt <= times+1; attempt++ {
		if err := fn(attempt); err == nil {
			return true
		}
	}
	return false
}

// DoContext is Do with a pause between attempts. It returns nil on success,
// the context error if ctx ends first, or the last attempt's error.
func DoContext(ctx context.Context, times int, delay time.Duration, fn func(ctx context.Context, attempt int) error) error {
	var last error
	for attempt := 1; attempt <= times+1; attempt++ {
		if attempt > 1 && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if last = fn(ctx, attempt); last == nil {
			return nil
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", times+1, last)
}
