package embedder

import (
	"context"
	"fmt"
	"math"
	"time"
)

// RetryConfig holds retry behavior configuration
type RetryConfig struct {
	MaxRetries        int
	InitialBackoffMs  int
	MaxBackoffMs      int
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        MaxRetries,
		InitialBackoffMs:  InitialBackoffMs,
		MaxBackoffMs:      MaxBackoffMs,
		BackoffMultiplier: BackoffMultiplier,
	}
}

// retryWithBackoff executes fn with exponential backoff retry logic
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoffMs := float64(config.InitialBackoffMs) * math.Pow(config.BackoffMultiplier, float64(attempt-1))
			if backoffMs > float64(config.MaxBackoffMs) {
				backoffMs = float64(config.MaxBackoffMs)
			}

			select {
			case <-ctx.Done():
				return result, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
			case <-time.After(time.Duration(backoffMs) * time.Millisecond):
			}
		}

		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if ctx.Err() != nil {
			return result, fmt.Errorf("context cancelled: %w", ctx.Err())
		}
	}

	return result, fmt.Errorf("max retries exceeded: %w", lastErr)
}
