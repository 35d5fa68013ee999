package llm

import (
	"context"
	"sync"
	"time"
)

// fakeCore is a scriptable CoreLLM. Errors in errs are returned in order,
// one per call; once exhausted, calls succeed.
type fakeCore struct {
	mu sync.Mutex

	response  string
	tokensIn  int
	tokensOut int
	model     string
	delay     time.Duration
	errs      []error

	calls    int
	lastOpts map[string]any
	lastCtx  context.Context
	times    []time.Time
}

func newFakeCore() *fakeCore {
	return &fakeCore{response: "ok", tokensIn: 10, tokensOut: 20, model: "fake-model"}
}

func (f *fakeCore) DoRequest(ctx context.Context, _ string, opts map[string]any) (string, int, int, error) {
	f.mu.Lock()
	f.calls++
	f.lastOpts = opts
	f.lastCtx = ctx
	f.times = append(f.times, time.Now())
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}
	if err != nil {
		return "", 0, 0, err
	}
	return f.response, f.tokensIn, f.tokensOut, nil
}

func (f *fakeCore) GetModel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.model
}

func (f *fakeCore) SetModel(m string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.model = m
}

func (f *fakeCore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCollector records metric calls.
type fakeCollector struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string]int
	gauges     map[string]float64
	labels     []map[string]string
}

func newFakeCollector() *fakeCollector {
	return &fakeCollector{
		counters:   map[string]float64{},
		histograms: map[string]int{},
		gauges:     map[string]float64{},
	}
}

func (c *fakeCollector) RecordLatency(string, time.Duration, map[string]string) {}

func (c *fakeCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := metric
	if tt, ok := labels["token_type"]; ok {
		key += "/" + tt
	}
	c.counters[key] += value
	c.labels = append(c.labels, labels)
}

func (c *fakeCollector) RecordGauge(metric string, value float64, _ map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[metric] = value
}

func (c *fakeCollector) RecordHistogram(metric string, _ float64, _ map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.histograms[metric]++
}
