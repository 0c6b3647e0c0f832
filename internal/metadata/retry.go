package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Retry defaults for metadata lookups.
const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = time.Second
)

// StatusError is a non-2xx HTTP response from a metadata source.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// IsRateLimited reports whether err is an HTTP 429.
func IsRateLimited(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests
	}
	return err != nil && strings.Contains(err.Error(), "429")
}

// RetryWithBackoff calls fn until it succeeds or maxRetries retries are spent.
// The delay starts at initialDelay and doubles after each attempt; rate-limited
// failures wait twice the current delay.
func RetryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func(ctx context.Context) error) error {
	delay := initialDelay
	for retries := 0; ; retries++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if retries >= maxRetries {
			return err
		}

		wait := delay
		if IsRateLimited(err) {
			wait = delay * 2
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}
}
