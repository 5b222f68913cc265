// Package ratelimit provides a shared token-bucket limiter for outbound
// API calls. One limiter instance is shared by every worker talking to
// the same provider, so total request rate stays bounded regardless of
// concurrency.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate limit. Zero or negative
	// disables limiting.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size.
	BurstSize int

	// MaxWait bounds how long Wait blocks for a token. Zero means no
	// bound. When the bound is exceeded, Wait returns
	// domain.ErrRateLimited so the caller can fail the attempt as
	// retryable instead of blocking indefinitely.
	MaxWait time.Duration
}

// Limiter provides rate limiting for API requests.
// It uses a token bucket with optional backoff for 429 responses.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	maxWait time.Duration
}

// New creates a limiter from the given configuration.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	burst := cfg.BurstSize
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst <= 0 {
			burst = 1
		}
	}

	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		maxWait: cfg.MaxWait,
	}
}

// PerMinute creates a limiter from a requests-per-minute quota, the
// unit embedding providers publish their limits in.
func PerMinute(rpm int, maxWait time.Duration) *Limiter {
	cfg := Config{MaxWait: maxWait}
	if rpm > 0 {
		cfg.RequestsPerSecond = float64(rpm) / 60.0
		cfg.BurstSize = rpm / 10
		if cfg.BurstSize < 1 {
			cfg.BurstSize = 1
		}
	}
	return New(cfg)
}

// Wait blocks until a request can be made without exceeding the rate
// limit. It also respects any backoff period set by RecordRetryAfter.
// If the total wait would exceed MaxWait, it returns
// domain.ErrRateLimited without consuming a token.
func (l *Limiter) Wait(ctx context.Context) error {
	deadline := time.Time{}
	if l.maxWait > 0 {
		deadline = time.Now().Add(l.maxWait)
	}

	// First, honour backoff from previous rate limit errors.
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		if !deadline.IsZero() && retryAt.After(deadline) {
			return fmt.Errorf("%w: backoff exceeds wait bound", domain.ErrRateLimited)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	// Then wait for the token bucket, bounded by the deadline.
	waitCtx := ctx
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	if err := l.limiter.Wait(waitCtx); err != nil {
		// Distinguish our bound expiring from the caller cancelling.
		// rate.Wait fails up front when the token cannot arrive before
		// the deadline, so the bound case cannot be read off waitCtx.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !deadline.IsZero() {
			return fmt.Errorf("%w: no token within %s", domain.ErrRateLimited, l.maxWait)
		}
		return err
	}
	return nil
}

// RecordRetryAfter records a provider-imposed backoff period.
// Call this when receiving a 429 response.
func (l *Limiter) RecordRetryAfter(d time.Duration) {
	if d <= 0 {
		// Default backoff when the provider gives no Retry-After.
		d = 60 * time.Second
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.retryAt = time.Now().Add(d)
}

// Allow checks if a request can be made immediately without blocking.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return l.limiter.Allow()
}
