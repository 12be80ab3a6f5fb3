// Package breaker builds the circuit breakers that guard upstream registries.
package breaker

import (
	"log/slog"

	"github.com/sony/gobreaker/v2"

	"iinfinder/internal/platform/config"
	"iinfinder/internal/platform/metrics"
)

// New returns a breaker that opens after cfg.FailureThreshold consecutive
// failures. State changes are logged and counted.
func New[T any](name string, cfg config.BreakerConfig, logger *slog.Logger, m *metrics.Metrics) *gobreaker.CircuitBreaker[T] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			}
			m.RecordBreakerState(name, to.String())
		},
	})
}
