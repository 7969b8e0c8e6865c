package provider

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/kiosk404/screenpilot/pkg/logger"
)

const (
	defaultMaxAttempts = 3
	baseBackoff        = time.Second
	rateLimitBackoff   = 15 * time.Second
	rateLimitJitter    = 10 * time.Second
)

// rateLimitSignatures are substrings of provider error messages that
// indicate throttling rather than a transient failure.
var rateLimitSignatures = []string{
	"429",
	"rate limit",
	"rate_limit",
	"resource_exhausted",
	"resource has been exhausted",
	"quota",
	"overloaded",
}

// Client wraps an Adapter with the retry/backoff policy. The adapter
// stays policy-free; exhausting retries yields a typed *LLMError.
type Client struct {
	adapter     Adapter
	maxAttempts int
}

// NewClient creates a retrying client around adapter.
func NewClient(adapter Adapter) *Client {
	return &Client{adapter: adapter, maxAttempts: defaultMaxAttempts}
}

// Provider returns the underlying provider name.
func (c *Client) Provider() string {
	return c.adapter.Name()
}

// SetTools installs the catalog on the underlying adapter.
func (c *Client) SetTools(tools []ToolSpec) {
	c.adapter.SetTools(tools)
}

// GenerateDecision calls the adapter, retrying with exponential backoff
// on failure. Errors matching known rate-limit signatures use a longer
// backoff tier with added jitter.
func (c *Client) GenerateDecision(ctx context.Context, req *Request) (*Decision, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		decision, err := c.adapter.GenerateDecision(ctx, req)
		if err == nil {
			return decision, nil
		}
		lastErr = err

		if attempt == c.maxAttempts {
			break
		}

		delay := baseBackoff << (attempt - 1)
		if isRateLimited(err) {
			delay = rateLimitBackoff*time.Duration(attempt) +
				time.Duration(rand.Int63n(int64(rateLimitJitter)))
			logger.Warn("[LLM] %s rate limited (attempt %d/%d), backing off %s: %v",
				c.adapter.Name(), attempt, c.maxAttempts, delay, err)
		} else {
			logger.Warn("[LLM] %s attempt %d/%d failed, retrying in %s: %v",
				c.adapter.Name(), attempt, c.maxAttempts, delay, err)
		}

		select {
		case <-ctx.Done():
			return nil, &LLMError{Provider: c.adapter.Name(), Err: ctx.Err()}
		case <-time.After(delay):
		}
	}

	logger.Error("[LLM] %s failed after %d attempts: %v", c.adapter.Name(), c.maxAttempts, lastErr)
	return nil, &LLMError{Provider: c.adapter.Name(), Err: lastErr}
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, sig := range rateLimitSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
