package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryPolicy controls how RetryTransport deals with transient failures.
type RetryPolicy struct {
	// Attempts is the total number of tries for one request, rate-limit waits excluded.
	Attempts int
	// Timeout bounds a single attempt, response body included.
	Timeout time.Duration
	// BaseBackoff is the delay after the first failed attempt; it doubles after each further one.
	BaseBackoff time.Duration
	// RateLimitMargin is added to the wait until X-RateLimit-Reset.
	RateLimitMargin time.Duration
	// MaxRateLimitWaits caps consecutive rate-limit sleeps for one request.
	MaxRateLimitWaits int
}

// DefaultRetryPolicy returns the policy used by the CLI.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:          3,
		Timeout:           30 * time.Second,
		BaseBackoff:       1 * time.Second,
		RateLimitMargin:   1 * time.Second,
		MaxRateLimitWaits: 3,
	}
}

// RetryTransport is an http.RoundTripper that retries 5xx responses and network failures with
// exponential backoff, and waits out primary rate limits without spending an attempt.
type RetryTransport struct {
	base   http.RoundTripper
	policy RetryPolicy
	logger logrus.FieldLogger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryTransport wraps base (http.DefaultTransport when nil).
func NewRetryTransport(base http.RoundTripper, policy RetryPolicy, logger logrus.FieldLogger) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{
		base:   base,
		policy: policy,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		defer req.Body.Close()
	}
	ctx := req.Context()

	var lastErr error
	rateLimitWaits := 0
	for attempt := 1; attempt <= t.policy.Attempts; {
		if attempt > 1 && !replayable(req) {
			return nil, fmt.Errorf("cannot retry request without GetBody: %w", lastErr)
		}

		resp, err := t.try(req)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
		case resp.StatusCode >= http.StatusInternalServerError:
			if attempt == t.policy.Attempts {
				// go-github turns the final response into an *ErrorResponse for the caller.
				return resp, nil
			}
			drain(resp)
			lastErr = fmt.Errorf("server error: %s", resp.Status)
		default:
			wait, limited := t.rateLimitWait(resp)
			if !limited || rateLimitWaits >= t.policy.MaxRateLimitWaits {
				return resp, nil
			}
			drain(resp)
			rateLimitWaits++
			t.logger.Warnf("Rate limited on %s %s. Sleeping %s...", req.Method, req.URL.Path, wait)
			if err := t.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		if attempt == t.policy.Attempts {
			break
		}
		backoff := t.policy.BaseBackoff << (attempt - 1)
		t.logger.Warnf("Transient error (%v); retry %d/%d in %s...", lastErr, attempt, t.policy.Attempts-1, backoff)
		if err := t.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		attempt++
	}
	return nil, fmt.Errorf("request to %s failed after %d attempts: %w", req.URL.Redacted(), t.policy.Attempts, lastErr)
}

// try performs one attempt under its own timeout. The timeout stays armed until the
// response body is closed.
func (t *RetryTransport) try(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), t.policy.Timeout)
	attemptReq := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		attemptReq.Body = body
	}

	resp, err := t.base.RoundTrip(attemptReq)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// rateLimitWait reports whether resp is a primary rate-limit rejection and how long to wait.
// Secondary rate limits are left to the outer go-github-ratelimit waiter.
func (t *RetryTransport) rateLimitWait(resp *http.Response) (time.Duration, bool) {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}
	reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return 0, false
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return 0, false
	}
	msg := strings.ToLower(string(body))
	if !strings.Contains(msg, "rate limit") || strings.Contains(msg, "secondary rate limit") {
		return 0, false
	}

	wait := time.Unix(reset, 0).Sub(t.now())
	if wait < 0 {
		wait = 0
	}
	return wait + t.policy.RateLimitMargin, true
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
