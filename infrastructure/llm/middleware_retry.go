package llm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryMiddleware retries transient failures (see IsRetryable) with
// exponential backoff and ±25% jitter, capped at maxDelay. An open circuit,
// a canceled context and non-transient errors end the loop at once.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &retryLLM{
			next:       next,
			maxRetries: max(maxRetries, 0),
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
			jitter:     rand.Float64,
		}
	}
}

type retryLLM struct {
	next       CoreLLM
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	jitter     func() float64
}

func (r *retryLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		attempts++
		response, tokensIn, tokensOut, err := r.next.DoRequest(ctx, prompt, opts)
		if err == nil {
			return response, tokensIn, tokensOut, nil
		}
		lastErr = err
		if !IsRetryable(err) || ctx.Err() != nil || attempt == r.maxRetries {
			break
		}

		timer := time.NewTimer(r.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", 0, 0, fmt.Errorf("retry canceled after %d attempts: %w", attempts, lastErr)
		case <-timer.C:
		}
	}
	if attempts == 1 {
		return "", 0, 0, lastErr
	}
	return "", 0, 0, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

func (r *retryLLM) delay(attempt int) time.Duration {
	d := r.baseDelay << min(attempt, 30)
	if d <= 0 || (r.maxDelay > 0 && d > r.maxDelay) {
		d = r.maxDelay
	}
	d = time.Duration(float64(d) * (0.75 + 0.5*r.jitter()))
	if r.maxDelay > 0 {
		d = min(d, r.maxDelay)
	}
	return d
}

func (r *retryLLM) GetModel() string  { return r.next.GetModel() }
func (r *retryLLM) SetModel(m string) { r.next.SetModel(m) }
