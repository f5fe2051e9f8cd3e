// Package retry decorates an LLMProvider with the retry policy shared by
// every oracle call site: a small fixed retry budget, exponential backoff,
// and a strict split between conditions worth retrying (rate limiting,
// transient server errors, blank payloads) and those that are not (auth
// failures, malformed requests).
package retry

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"medintake-be/pkg/llm"
	"medintake-be/pkg/textutil"
)

// ErrBlankResponse marks a response that collapsed to pure whitespace.
// The model sometimes emits blank content under truncation, so this is
// retried like a transient failure rather than surfaced as a real answer.
var ErrBlankResponse = errors.New("llm returned blank response")

type Client struct {
	provider   llm.LLMProvider
	maxRetries int
	baseDelay  time.Duration
	logger     *log.Logger
}

var _ llm.LLMProvider = &Client{}

// New wraps provider with the standard retry policy. maxRetries counts
// retries, not attempts: 2 means up to 3 calls total.
func New(provider llm.LLMProvider, maxRetries int, baseDelay time.Duration, logger *log.Logger) *Client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &Client{
		provider:   provider,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

func (c *Client) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return c.do(ctx, func() (string, error) {
		return c.provider.Chat(ctx, history, opts...)
	})
}

func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return c.do(ctx, func() (string, error) {
		return c.provider.Generate(ctx, prompt, opts...)
	})
}

func (c *Client) do(ctx context.Context, call func() (string, error)) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// 1x, 2x, 4x... the base delay
			delay := c.baseDelay << (attempt - 1)
			if c.logger != nil {
				c.logger.Printf("[RETRY] attempt %d/%d after %v: %v", attempt, c.maxRetries, delay, lastErr)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		response, err := call()
		if err == nil {
			if textutil.IsBlank(response) {
				lastErr = ErrBlankResponse
				continue
			}
			return response, nil
		}

		if !IsRetryable(err) {
			return "", err
		}
		lastErr = err
	}

	return "", lastErr
}

// IsRetryable classifies provider errors. Rate limits, timeouts, and server
// errors get another chance; auth failures and request bugs fail immediately
// without consuming the retry budget.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrBlankResponse) {
		return true
	}

	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == http.StatusTooManyRequests:
			return true
		case statusErr.Code == http.StatusRequestTimeout:
			return true
		case statusErr.Code >= 500:
			return true
		default:
			// 401/403/400 and friends: retrying the same request cannot help
			return false
		}
	}

	// Anything else is transport-level (connection refused, reset, DNS) and
	// worth another attempt.
	return true
}
