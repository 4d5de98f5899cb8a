package retrypolicy

import (
	"math/rand"
	"strings"
	"time"
)

// Policy holds the tunables that drive classification-by-substring and
// backoff computation. Grounded on the original's RetryStrategy defaults,
// adjusted to spec.md §6's knob names.
type Policy struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	JitterFactor    float64
	RetryableErrors []string
}

// DefaultPolicy matches config.DefaultSettings().Retry.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxRetries:   5,
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
		RetryableErrors: []string{
			"timeout",
			"connection reset",
			"dns resolution failed",
			"connection refused",
			"temporary failure",
			"broken pipe",
			"eof",
		},
	}
}

// ShouldRetry classifies err and decides whether its kind warrants another
// try under this policy, ignoring how many attempts have been made — that
// budget lives in Context.
func (p *Policy) ShouldRetry(err *Error) bool {
	switch err.Kind {
	case KindNetworkError, KindTimeout:
		return true
	case KindServerError:
		return retryableServerStatuses[err.StatusCode]
	case KindIoError, KindUnknown:
		return p.matchesRetryableSubstring(err)
	default:
		// InvalidUrl, FileExists, SizeMismatch, ChecksumMismatch,
		// ResumeFailed, PermissionError, InsufficientSpace: never retryable.
		return false
	}
}

func (p *Policy) matchesRetryableSubstring(err *Error) bool {
	msg := strings.ToLower(err.Error())
	for _, substr := range p.RetryableErrors {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// Delay computes the backoff for retry attempt n (0-based): base ×
// multiplier^n, jittered by ± delay × jitterFactor × rand[-0.5, 0.5],
// floored at 100ms, then clamped to MaxDelay. Jitter exists so concurrent
// chunks retrying the same transient failure don't all wake up at once.
func (p *Policy) Delay(n int) time.Duration {
	base := float64(p.BaseDelay) * pow(p.Multiplier, n)

	jitter := base * p.JitterFactor * (rand.Float64() - 0.5)
	delay := base + jitter

	const floor = float64(100 * time.Millisecond)
	if delay < floor {
		delay = floor
	}

	d := time.Duration(delay)
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func pow(base float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= base
	}
	return result
}

// Context tracks one independent retry budget — one per chunk attempt loop,
// one per single-connection task, or one task-wide budget for re-queuing
// failed chunks. Budgets are never shared (spec.md §9).
type Context struct {
	policy  *Policy
	retries int
}

// NewContext creates a fresh retry budget under policy.
func NewContext(policy *Policy) *Context {
	return &Context{policy: policy}
}

// ShouldRetry reports whether another attempt is allowed for err, given
// attempts already recorded via RecordRetry.
func (c *Context) ShouldRetry(err *Error) bool {
	if c.retries >= c.policy.MaxRetries {
		return false
	}
	return c.policy.ShouldRetry(err)
}

// RecordRetry increments the attempt counter and returns the delay to wait
// before the next attempt.
func (c *Context) RecordRetry() time.Duration {
	d := c.policy.Delay(c.retries)
	c.retries++
	return d
}

// Retries returns the number of retries recorded so far.
func (c *Context) Retries() int {
	return c.retries
}

// Reset clears the retry counter so the same Context can start a fresh
// attempt sequence.
func (c *Context) Reset() {
	c.retries = 0
}
