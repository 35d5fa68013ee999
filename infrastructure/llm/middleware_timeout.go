package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/galley/internal/ports"
)

// TimeoutMiddleware bounds each request to timeout. A request cut off by
// this deadline, rather than the caller's, fails with ports.ErrTimeout so
// that RetryMiddleware may try again. A non-positive timeout disables it.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		if timeout <= 0 {
			return next
		}
		return &timeoutLLM{next: next, timeout: timeout}
	}
}

type timeoutLLM struct {
	next    CoreLLM
	timeout time.Duration
}

func (t *timeoutLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	response, tokensIn, tokensOut, err := t.next.DoRequest(reqCtx, prompt, opts)
	if err != nil && ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return "", 0, 0, errors.Join(ports.ErrTimeout, err)
	}
	return response, tokensIn, tokensOut, err
}

func (t *timeoutLLM) GetModel() string  { return t.next.GetModel() }
func (t *timeoutLLM) SetModel(m string) { t.next.SetModel(m) }
