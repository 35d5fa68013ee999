package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/galley/internal/ports"
)

func TestRateLimitMiddlewarePaces(t *testing.T) {
	core := newFakeCore()
	llm := RateLimitMiddleware(20, 1)(core)

	for range 3 {
		_, _, _, err := llm.DoRequest(context.Background(), "p", nil)
		require.NoError(t, err)
	}
	require.Len(t, core.times, 3)
	// After the single burst token, requests are spaced by ~50ms.
	assert.GreaterOrEqual(t, core.times[2].Sub(core.times[0]), 80*time.Millisecond)
}

func TestRateLimitMiddlewareRespectsContext(t *testing.T) {
	core := newFakeCore()
	llm := RateLimitMiddleware(0.01, 1)(core)

	_, _, _, err := llm.DoRequest(context.Background(), "p", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, _, err = llm.DoRequest(ctx, "p", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
	assert.Equal(t, 1, core.callCount())
}

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("fast request passes", func(t *testing.T) {
		core := newFakeCore()
		resp, _, _, err := TimeoutMiddleware(time.Second)(core).DoRequest(context.Background(), "p", nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)

		_, hasDeadline := core.lastCtx.Deadline()
		assert.True(t, hasDeadline)
	})

	t.Run("slow request times out as transient", func(t *testing.T) {
		core := newFakeCore()
		core.delay = time.Second
		_, _, _, err := TimeoutMiddleware(10*time.Millisecond)(core).DoRequest(context.Background(), "p", nil)
		assert.ErrorIs(t, err, ports.ErrTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, IsRetryable(err))
	})

	t.Run("caller cancellation is not a timeout", func(t *testing.T) {
		core := newFakeCore()
		core.delay = time.Second
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(5 * time.Millisecond)
			cancel()
		}()
		_, _, _, err := TimeoutMiddleware(time.Minute)(core).DoRequest(ctx, "p", nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ports.ErrTimeout)
	})

	t.Run("disabled", func(t *testing.T) {
		core := newFakeCore()
		assert.Same(t, CoreLLM(core), TimeoutMiddleware(0)(core))
	})
}

func TestMetricsMiddleware(t *testing.T) {
	collector := newFakeCollector()
	core := newFakeCore()
	llm := MetricsMiddleware(collector, "openai")(core)

	_, _, _, err := llm.DoRequest(context.Background(), "p", map[string]any{"model": "gpt-4o"})
	require.NoError(t, err)

	core.errs = []error{rateLimited()}
	_, _, _, err = llm.DoRequest(context.Background(), "p", nil)
	require.Error(t, err)

	assert.Equal(t, 2.0, collector.counters[MetricRequests])
	assert.Equal(t, 10.0, collector.counters[MetricTokens+"/input"])
	assert.Equal(t, 20.0, collector.counters[MetricTokens+"/output"])
	assert.Equal(t, 2, collector.histograms[MetricLatency])

	first := collector.labels[0]
	assert.Equal(t, "openai", first["provider"])
	assert.Equal(t, "gpt-4o", first["model"])
	assert.Equal(t, "success", first["status"])
	_, leaked := first["token_type"]
	assert.False(t, leaked, "token labels do not leak into the request labels")

	last := collector.labels[len(collector.labels)-1]
	assert.Equal(t, "rate_limit", last["status"])
	assert.Equal(t, "fake-model", last["model"])
}

func TestMetricsMiddlewareNilCollector(t *testing.T) {
	core := newFakeCore()
	assert.Same(t, CoreLLM(core), MetricsMiddleware(nil, "openai")(core))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", outcome(nil))
	assert.Equal(t, "circuit_open", outcome(ErrCircuitOpen))
	assert.Equal(t, "timeout", outcome(context.DeadlineExceeded))
	assert.Equal(t, "server_error", outcome(transient()))
	assert.Equal(t, "error", outcome(assert.AnError))
}

func TestChain(t *testing.T) {
	assert.Empty(t, Chain(ChainConfig{}))

	collector := newFakeCollector()
	chain := Chain(ChainConfig{
		Provider:          "openai",
		Timeout:           time.Second,
		MaxRetries:        2,
		RetryBaseDelay:    time.Millisecond,
		RetryMaxDelay:     time.Millisecond,
		RequestsPerSecond: 1000,
		Burst:             10,
		CircuitFailures:   1,
		CircuitCooldown:   time.Hour,
		Metrics:           collector,
		Tracing:           true,
	})
	assert.Len(t, chain, 6)

	core := newFakeCore()
	core.errs = []error{transient()}
	c := newClient("openai", core, ClientConfig{Middleware: chain})

	_, err := c.Complete(context.Background(), "p", nil)
	assert.ErrorIs(t, err, ErrCircuitOpen, "the breaker opened on the first outage and the retry stopped")
	assert.Equal(t, 1, core.callCount())
	assert.Equal(t, float64(StateOpen), collector.gauges["llm_circuit_state"])
	assert.Equal(t, 1.0, collector.counters[MetricRequests], "a retried request is counted once")
}
