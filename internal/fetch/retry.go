package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

var retryBackoff = []time.Duration{
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

// retryTransport retries transient timeout failures a bounded number of
// times so that one flaky connection does not cost a page.
type retryTransport struct {
	base        http.RoundTripper
	maxAttempts int
}

func newRetryTransport(base http.RoundTripper, maxRetries int) *retryTransport {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if maxRetries > len(retryBackoff) {
		maxRetries = len(retryBackoff)
	}
	return &retryTransport{
		base:        base,
		maxAttempts: maxRetries + 1,
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("retry transport received nil request")
	}
	var lastErr error
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		resp, err := t.base.RoundTrip(cloneRequest(req))
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isTransient(err) || attempt == t.maxAttempts-1 {
			break
		}
		if err := sleepWithContext(req.Context(), retryBackoff[attempt]); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("roundtrip after %d attempt(s): %w", t.maxAttempts, lastErr)
}

func cloneRequest(req *http.Request) *http.Request {
	clone := req.Clone(req.Context())
	clone.Body = req.Body
	return clone
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry backoff sleep: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
