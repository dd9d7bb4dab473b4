// Package policy implements the politeness throttle that spaces out
// consecutive fetches against the crawled site.
package policy

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/rag-site-crawler/internal/metrics"
)

// Throttle enforces a minimum delay between dispatched fetches. It is a
// cooperative single-stream limiter: the crawl loop calls Wait before
// every fetch regardless of how long the previous fetch took.
type Throttle struct {
	limiter *rate.Limiter
	domain  string
}

// NewThrottle builds a Throttle with the given minimum inter-request
// delay. A non-positive delay disables waiting. The site URL is only used
// to label metrics.
func NewThrottle(delay time.Duration, site string) *Throttle {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	domain := "unknown"
	if u, err := url.Parse(site); err == nil && u.Hostname() != "" {
		domain = u.Hostname()
	}
	return &Throttle{
		limiter: rate.NewLimiter(limit, 1),
		domain:  domain,
	}
}

// Wait blocks until the next fetch may be dispatched, respecting the
// context.
func (t *Throttle) Wait(ctx context.Context) error {
	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveThrottleWait(t.domain, waited)
	}
	return nil
}
