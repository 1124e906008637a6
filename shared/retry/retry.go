package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"syscall"
	"time"

	"video-scout/shared/config"
)

// Policy controls how often and how long Do waits between attempts.
type Policy struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

var DefaultPolicy = Policy{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
}

// FromConfig builds a Policy from the retry section, falling back to
// DefaultPolicy for unset durations.
func FromConfig(cfg config.RetryConfig) Policy {
	p := DefaultPolicy
	p.MaxRetries = cfg.MaxRetries
	if cfg.InitialWait > 0 {
		p.InitialWait = cfg.InitialWait
	}
	if cfg.MaxWait > 0 {
		p.MaxWait = cfg.MaxWait
	}
	return p
}

// StatusError carries the HTTP status of a failed API call so Do can decide
// whether another attempt is worthwhile.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// WithStatus wraps err with its HTTP status. A zero status returns err as is.
func WithStatus(code int, err error) error {
	if err == nil || code == 0 {
		return err
	}
	return &StatusError{StatusCode: code, Err: err}
}

// Do calls fn until it succeeds, returns a non-retryable error, the context
// ends, or p.MaxRetries retries have been spent.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		if attempt < p.MaxRetries {
			wait := p.backoff(attempt)
			slog.Debug("retrying", slog.Int("attempt", attempt+1), slog.Duration("wait", wait), slog.Any("error", err))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}

func (p Policy) backoff(attempt int) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	wait := time.Duration(float64(p.InitialWait) * math.Pow(mult, float64(attempt)))
	if p.MaxWait > 0 && wait > p.MaxWait {
		wait = p.MaxWait
	}
	return wait
}

// IsRetryable reports whether err is a rate limit, a server-side failure or a
// transient network problem.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return IsRetryableStatus(statusErr.StatusCode)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	// A refused connection points at a wrong endpoint and will not recover.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Timeout() || errors.Is(opErr, syscall.ECONNRESET)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
