package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"personaquiz/internal/metrics"
)

// Policy bounds the retry loop
type Policy struct {
	MaxRetries      int           // retries after the first attempt
	RateLimitBase   time.Duration // 429: delay = base * retry number
	BadRequestDelay time.Duration // 400
	UnexpectedDelay time.Duration // anything else retryable
	AttemptTimeout  time.Duration // per request, 0 disables
	MaxPromptLength int
}

// DefaultPolicy returns the production retry policy
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      5,
		RateLimitBase:   20 * time.Second,
		BadRequestDelay: 5 * time.Second,
		UnexpectedDelay: 5 * time.Second,
		AttemptTimeout:  45 * time.Second,
		MaxPromptLength: MaxPromptLength,
	}
}

// Client generates text for a prompt, retrying transient failures
type Client struct {
	transport Transport
	model     string
	policy    Policy
	limiter   *rate.Limiter
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithPolicy overrides the retry policy
func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithLimiter paces attempts through a token bucket
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client that sends prompts to model through t
func NewClient(t Transport, model string, opts ...Option) *Client {
	c := &Client{
		transport: t,
		model:     model,
		policy:    DefaultPolicy(),
		sleep:     sleepCtx,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns the generated text for prompt. Retries run sequentially
// and block for their backoff; ctx cancellation abandons the sequence and
// returns the context error. Exhausting the budget returns *ServiceError.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	current := prompt
	var last error

	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		text, err := c.try(ctx, current, attempt)
		if err == nil {
			metrics.InferenceAttempts.WithLabelValues("ok").Inc()
			metrics.InferenceDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.InferenceDuration.WithLabelValues("cancelled").Observe(time.Since(start).Seconds())
			return "", fmt.Errorf("generation abandoned on attempt %d: %w", attempt+1, ctxErr)
		}

		last = err
		class := classify(err)
		metrics.InferenceAttempts.WithLabelValues(class.String()).Inc()

		if class == classFatal {
			c.logger.Error("generation failed", zap.Int("attempt", attempt+1), zap.Error(err))
			metrics.InferenceDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
			return "", &ServiceError{Attempts: attempt + 1, Err: err}
		}
		if attempt == c.policy.MaxRetries {
			break
		}

		delay, next := c.backoff(class, attempt, current)
		c.logger.Warn("generation attempt failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Stringer("class", class),
			zap.Duration("delay", delay),
			zap.Bool("simplified", next != current),
			zap.Error(err))

		if err := c.sleep(ctx, delay); err != nil {
			metrics.InferenceDuration.WithLabelValues("cancelled").Observe(time.Since(start).Seconds())
			return "", fmt.Errorf("generation abandoned during backoff: %w", err)
		}
		current = next
	}

	c.logger.Error("generation retries exhausted", zap.Int("attempts", c.policy.MaxRetries+1), zap.Error(last))
	metrics.InferenceDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	return "", &ServiceError{Attempts: c.policy.MaxRetries + 1, Err: last}
}

// backoff returns the delay before retry number attempt+1 and the prompt to
// resubmit.
func (c *Client) backoff(class failureClass, attempt int, prompt string) (time.Duration, string) {
	switch class {
	case classRateLimited:
		return c.policy.RateLimitBase * time.Duration(attempt+1), prompt
	case classBadRequest:
		if attempt > 1 {
			return c.policy.BadRequestDelay, Simplify(prompt)
		}
		return c.policy.BadRequestDelay, prompt
	default:
		return c.policy.UnexpectedDelay, Simplify(prompt)
	}
}

func (c *Client) try(ctx context.Context, prompt string, attempt int) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	sent, cut := Truncate(prompt, c.policy.MaxPromptLength)
	if cut {
		metrics.PromptTruncations.Inc()
		c.logger.Warn("prompt truncated",
			zap.Int("length", len([]rune(prompt))),
			zap.Int("max", c.policy.MaxPromptLength))
	}

	if c.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.AttemptTimeout)
		defer cancel()
	}

	c.logger.Debug("sending generation request",
		zap.Int("attempt", attempt+1),
		zap.String("model", c.model),
		zap.Int("chars", len([]rune(sent))))

	text, err := c.transport.Generate(ctx, Request{Model: c.model, Prompt: sent, Config: Generation})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
