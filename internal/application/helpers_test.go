package application

import (
	"context"
	"sync"

	"github.com/ahrav/galley/internal/ports"
)

// stubProvider returns a fixed result and counts invocations.
type stubProvider struct {
	key    string
	result any
	err    error
	panics bool

	mu    sync.Mutex
	calls int
}

func (p *stubProvider) Key() string { return p.key }

func (p *stubProvider) Extract(_ context.Context, _ string) (any, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.panics {
		panic("provider exploded")
	}
	return p.result, p.err
}

func (p *stubProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// stubJudge returns a fixed outcome and records requests.
type stubJudge struct {
	outcome ports.JudgeOutcome
	err     error

	mu       sync.Mutex
	requests []ports.JudgeRequest
}

func (j *stubJudge) Judge(_ context.Context, req ports.JudgeRequest) (ports.JudgeOutcome, error) {
	j.mu.Lock()
	j.requests = append(j.requests, req)
	j.mu.Unlock()
	return j.outcome, j.err
}

// pageMetrics is a record result that exposes its fields by name.
type pageMetrics struct {
	LeftMarginCM float64
	SingleColumn bool
}

func (m pageMetrics) Field(name string) (any, bool) {
	switch name {
	case "left_margin_cm":
		return m.LeftMarginCM, true
	case "is_single_column":
		return m.SingleColumn, true
	default:
		return nil, false
	}
}

// brokenRecord is a record whose accessor panics.
type brokenRecord struct{}

func (brokenRecord) Field(string) (any, bool) { panic("accessor exploded") }

func mustRegistry(providers ...ports.MetricProvider) *ProviderRegistry {
	r, err := NewProviderRegistry(providers...)
	if err != nil {
		panic(err)
	}
	return r
}

func mustResolver(reg ports.ProviderRegistry) *Resolver {
	r, err := NewResolver(reg)
	if err != nil {
		panic(err)
	}
	return r
}
