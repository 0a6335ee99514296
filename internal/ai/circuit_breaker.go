package ai

import (
	"github.com/sony/gobreaker/v2"

	"github.com/rajibrjb/AiResumeParserApi/internal/config"
	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
)

// CompletionBreaker wraps outbound completion calls with circuit breaker
// protection. The protected value is the provider's raw text reply.
type CompletionBreaker struct {
	cb *gobreaker.CircuitBreaker[string]
}

// NewCompletionBreaker creates a breaker for one provider. Returns nil when
// the breaker is disabled; a nil breaker executes calls directly.
func NewCompletionBreaker(providerName string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *CompletionBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        "AI-" + providerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.Info("Circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String())
			}
		},
	}

	return &CompletionBreaker{cb: gobreaker.NewCircuitBreaker[string](settings)}
}

// Execute runs fn with circuit breaker protection.
func (cb *CompletionBreaker) Execute(fn func() (string, error)) (string, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	return cb.cb.Execute(fn)
}

// Stats returns circuit breaker statistics for the stats endpoint.
func (cb *CompletionBreaker) Stats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    cb.cb.Name(),
		"state":   cb.cb.State().String(),
		"counts":  cb.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state.
func (cb *CompletionBreaker) IsHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() == gobreaker.StateClosed
}
