// Package ratelimit paces outbound requests with a fixed inter-request delay.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a fixed pause between requests. Unlike a plain
// limiter it also delays the first request: the scanner throttles the
// search provider and target hosts uniformly from the first fetch.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a Pacer with the given inter-request delay. A
// non-positive delay disables pacing.
func New(delay time.Duration) *Pacer {
	if delay <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the delay has elapsed, respecting the context. A
// token that refilled during an idle gap is drained first, so the first
// fetch of a newly triggered job pauses the full delay even when the
// shared limiter has been idle.
func (p *Pacer) Wait(ctx context.Context) error {
	p.limiter.Allow()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
