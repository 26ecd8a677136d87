package external

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sirupsen/logrus"
)

// ResilientCompleter wraps a Completer with a circuit breaker and an optional
// Redis response cache. When the breaker is open, a cached answer for the
// same prompt pair is still served; otherwise the caller gets an error and
// degrades to deterministic matching.
type ResilientCompleter struct {
	logger    *logrus.Logger
	completer Completer
	cache     *CacheClient
	breaker   *gobreaker.CircuitBreaker
}

// NewResilientCompleter creates a resilient wrapper around a model client.
// The cache may be nil.
func NewResilientCompleter(logger *logrus.Logger, completer Completer, cache *CacheClient) *ResilientCompleter {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ModelAPI",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientCompleter{
		logger:    logger,
		completer: completer,
		cache:     cache,
		breaker:   breaker,
	}
}

// Complete serves the completion from cache when possible, otherwise calls
// the underlying completer through the circuit breaker and caches the answer.
func (r *ResilientCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if r.cache != nil {
		if content, found, err := r.cache.GetCompletion(ctx, systemPrompt, userPrompt); err == nil && found {
			return content, nil
		}
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.completer.Complete(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return "", fmt.Errorf("model API unavailable (circuit breaker open)")
		}
		return "", fmt.Errorf("model API call failed: %w", err)
	}

	content := result.(string)

	if r.cache != nil {
		if cacheErr := r.cache.SetCompletion(ctx, systemPrompt, userPrompt, content, 0); cacheErr != nil {
			r.logger.WithError(cacheErr).Debug("Failed to cache model completion")
		}
	}

	return content, nil
}

// BreakerCounts exposes circuit breaker statistics for the health endpoint.
func (r *ResilientCompleter) BreakerCounts() gobreaker.Counts {
	return r.breaker.Counts()
}

// BreakerState exposes the current circuit breaker state.
func (r *ResilientCompleter) BreakerState() gobreaker.State {
	return r.breaker.State()
}
