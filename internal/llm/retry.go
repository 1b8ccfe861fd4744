package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RetryConfig controls the retrying judge transport.
type RetryConfig struct {
	MaxRetries        int           // retries after the first attempt
	InitialBackoff    time.Duration // delay before the first retry
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	Timeout           time.Duration // per attempt, 0 = none
	RatePerSecond     float64       // 0 = unlimited
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Timeout:           60 * time.Second,
	}
}

// RetryClient retries failed Generate calls with exponential backoff and
// throttles attempts through a token bucket.
type RetryClient struct {
	next    LLMClient
	cfg     RetryConfig
	limiter *rate.Limiter
	logger  zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewRetryClient(next LLMClient, cfg RetryConfig, logger zerolog.Logger) *RetryClient {
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = 2.0
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &RetryClient{
		next:    next,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
		sleep:   sleepContext,
	}
}

func (c *RetryClient) Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error) {
	backoff := c.cfg.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("retrying judge call")
			if err := c.sleep(ctx, backoff); err != nil {
				return "", err
			}
			backoff = time.Duration(float64(backoff) * c.cfg.BackoffMultiplier)
			if c.cfg.MaxBackoff > 0 && backoff > c.cfg.MaxBackoff {
				backoff = c.cfg.MaxBackoff
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := c.attempt(ctx, prompt, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", lastErr
}

func (c *RetryClient) attempt(ctx context.Context, prompt string, opts []GenerateOption) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	resp, err := c.next.Generate(ctx, prompt, opts...)
	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn().Dur("timeout", c.cfg.Timeout).Msg("judge call timed out")
	}
	return resp, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
