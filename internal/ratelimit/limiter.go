// Package ratelimit throttles outbound requests per host with token buckets.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration. RPS <= 0 disables limiting.
type Config struct {
	RPS   float64
	Burst int
}

// DelayObserver is told how long a request waited for a token.
type DelayObserver interface {
	ObserveRateLimitDelay(host string, d time.Duration)
}

// Limiter manages one token bucket per host.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	observer DelayObserver
}

// New creates a Limiter. observer may be nil.
func New(cfg Config, observer DelayObserver) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
		observer: observer,
	}
}

// Wait blocks until host has a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if host == "" {
		host = "unknown"
	}
	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if d := time.Since(start); d > time.Millisecond && l.observer != nil {
		l.observer.ObserveRateLimitDelay(host, d)
	}
	return nil
}

// HTTPDoer is the subset of *http.Client wrapped by Doer.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Doer waits on the limiter before delegating each request.
type Doer struct {
	next    HTTPDoer
	limiter *Limiter
}

// NewDoer wraps next with limiter.
func NewDoer(next HTTPDoer, limiter *Limiter) *Doer {
	return &Doer{next: next, limiter: limiter}
}

// Do implements HTTPDoer.
func (d *Doer) Do(req *http.Request) (*http.Response, error) {
	if err := d.limiter.Wait(req.Context(), req.URL.Hostname()); err != nil {
		return nil, err
	}
	return d.next.Do(req)
}
