package llm

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/galley/internal/ports"
)

// ChainConfig selects the standard middleware. Zero values disable the
// matching layer.
type ChainConfig struct {
	Provider string

	// Timeout bounds each attempt.
	Timeout time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	RequestsPerSecond float64
	Burst             int

	CircuitFailures int
	CircuitCooldown time.Duration

	Metrics ports.MetricsCollector
	Tracing bool
}

// Chain builds the standard middleware, outermost first: tracing, metrics,
// retry, circuit breaker, rate limit, per-attempt timeout. Each retry
// attempt therefore waits for the limiter and gets its own deadline, and
// metrics count a retried request once.
func Chain(cfg ChainConfig) []Middleware {
	var chain []Middleware
	if cfg.Tracing {
		chain = append(chain, TracingMiddleware(cfg.Provider))
	}
	if cfg.Metrics != nil {
		chain = append(chain, MetricsMiddleware(cfg.Metrics, cfg.Provider))
	}
	if cfg.MaxRetries > 0 {
		base := cfg.RetryBaseDelay
		if base <= 0 {
			base = 500 * time.Millisecond
		}
		maxDelay := cfg.RetryMaxDelay
		if maxDelay <= 0 {
			maxDelay = 30 * time.Second
		}
		chain = append(chain, RetryMiddleware(cfg.MaxRetries, base, maxDelay))
	}
	if cfg.CircuitFailures > 0 {
		cooldown := cfg.CircuitCooldown
		if cooldown <= 0 {
			cooldown = 30 * time.Second
		}
		cb := NewCircuitBreaker(cfg.CircuitFailures, cooldown)
		if cfg.Metrics != nil {
			labels := map[string]string{"provider": cfg.Provider}
			cb.OnTransition(func(_, to CircuitBreakerState) {
				cfg.Metrics.RecordGauge("llm_circuit_state", float64(to), labels)
			})
		}
		chain = append(chain, CircuitBreakerMiddlewareWith(cb))
	}
	if cfg.RequestsPerSecond > 0 {
		chain = append(chain, RateLimitMiddleware(rate.Limit(cfg.RequestsPerSecond), cfg.Burst))
	}
	if cfg.Timeout > 0 {
		chain = append(chain, TimeoutMiddleware(cfg.Timeout))
	}
	return chain
}
