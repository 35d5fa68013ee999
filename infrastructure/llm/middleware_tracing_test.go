package llm

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// recordingTracer captures span names, attributes and status without an SDK.
type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []*recordingSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordingSpan{name: name, attrs: map[attribute.Key]attribute.Value{}}
	for _, kv := range cfg.Attributes() {
		s.attrs[kv.Key] = kv.Value
	}
	r.mu.Lock()
	r.spans = append(r.spans, s)
	r.mu.Unlock()
	return trace.ContextWithSpan(ctx, s), s
}

type recordingSpan struct {
	noop.Span
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}
func (s *recordingSpan) SetStatus(code codes.Code, _ string)            { s.status = code }
func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) { s.errs = append(s.errs, err) }
func (s *recordingSpan) End(...trace.SpanEndOption)                    { s.ended = true }

func TestTracingMiddlewareSuccess(t *testing.T) {
	tracer := &recordingTracer{}
	core := newFakeCore()
	llm := TracingMiddlewareWith(tracer, "anthropic")(core)

	_, _, _, err := llm.DoRequest(context.Background(), "héllo", map[string]any{"model": "claude-x"})
	require.NoError(t, err)

	require.Len(t, tracer.spans, 1)
	span := tracer.spans[0]
	assert.Equal(t, "llm.request", span.name)
	assert.True(t, span.ended)
	assert.Equal(t, codes.Ok, span.status)
	assert.Equal(t, "anthropic", span.attrs["llm.provider"].AsString())
	assert.Equal(t, "claude-x", span.attrs["llm.model"].AsString())
	assert.Equal(t, int64(5), span.attrs["llm.prompt.chars"].AsInt64())
	assert.Equal(t, int64(10), span.attrs["llm.tokens.input"].AsInt64())
	assert.Equal(t, int64(20), span.attrs["llm.tokens.output"].AsInt64())

	assert.Same(t, span, trace.SpanFromContext(core.lastCtx), "the span travels to the provider")
}

func TestTracingMiddlewareError(t *testing.T) {
	tracer := &recordingTracer{}
	core := newFakeCore()
	core.errs = []error{transient()}

	_, _, _, err := TracingMiddlewareWith(tracer, "google")(core).DoRequest(context.Background(), "p", nil)
	require.Error(t, err)

	span := tracer.spans[0]
	assert.Equal(t, codes.Error, span.status)
	require.Len(t, span.errs, 1)
	assert.ErrorIs(t, span.errs[0], err)
	_, hasTokens := span.attrs["llm.tokens.input"]
	assert.False(t, hasTokens)
}

func TestTracingMiddlewareGlobalProvider(t *testing.T) {
	core := newFakeCore()
	resp, _, _, err := TracingMiddleware("openai")(core).DoRequest(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}
