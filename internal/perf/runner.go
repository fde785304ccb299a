package perf

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fnprobe/internal/invoke"
	"fnprobe/internal/target"
	"fnprobe/internal/template"
	"fnprobe/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// Mode describes what the measured latencies mean.
type Mode string

const (
	// ModeIsolated is sequential invocation: each sample is isolated latency.
	ModeIsolated Mode = "isolated"
	// ModeUnderLoad is concurrent invocation: samples are wall time under load.
	ModeUnderLoad Mode = "under-load"
)

// Invoker performs one invocation; *invoke.Engine satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, t *target.FunctionTarget, payload interface{}) invoke.Outcome
}

// Config drives a performance run.
type Config struct {
	Iterations             int
	Concurrency            int
	ExpectedResponseTimeMs int64
	Payload                map[string]interface{}
}

// Iteration is one sample. Index is 1-based.
type Iteration struct {
	Index      int              `json:"index"`
	DurationMs int64            `json:"durationMs"`
	ErrorKind  invoke.ErrorKind `json:"errorKind,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Metrics summarizes a performance run.
type Metrics struct {
	Iterations             int         `json:"iterations"`
	Concurrency            int         `json:"concurrency"`
	Mode                   Mode        `json:"mode"`
	AverageMs              float64     `json:"averageMs"`
	MinMs                  int64       `json:"minMs"`
	MaxMs                  int64       `json:"maxMs"`
	P95Ms                  int64       `json:"p95Ms"`
	ExpectedResponseTimeMs int64       `json:"expectedResponseTimeMs"`
	Passed                 bool        `json:"passed"`
	Reason                 string      `json:"reason,omitempty"`
	Failures               []Iteration `json:"failures,omitempty"`
}

// accumulator collects samples from concurrent workers.
type accumulator struct {
	mu      sync.Mutex
	samples []Iteration
}

func (a *accumulator) add(it Iteration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = append(a.samples, it)
}

func (a *accumulator) sorted() []Iteration {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Iteration, len(a.samples))
	copy(out, a.samples)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Runner repeats an invocation and aggregates latencies.
type Runner struct {
	invoker   Invoker
	templates *template.Engine
	target    *target.FunctionTarget
}

// NewRunner creates a performance runner.
func NewRunner(invoker Invoker, templates *template.Engine, t *target.FunctionTarget) *Runner {
	return &Runner{invoker: invoker, templates: templates, target: t}
}

// Run invokes the target cfg.Iterations times on a pool bounded by
// cfg.Concurrency. With a concurrency of 1 the samples are isolated
// latencies; above 1 they are latencies under load, and Metrics.Mode says so.
func (r *Runner) Run(ctx context.Context, cfg Config) Metrics {
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	mode := ModeIsolated
	if cfg.Concurrency > 1 {
		mode = ModeUnderLoad
	}
	logging.Info("Performance", "Running %d iterations against %s (concurrency %d, %s)", cfg.Iterations, r.target.Name, cfg.Concurrency, mode)

	acc := &accumulator{}
	var g errgroup.Group
	g.SetLimit(cfg.Concurrency)
	for i := 1; i <= cfg.Iterations; i++ {
		index := i
		g.Go(func() error {
			acc.add(r.iterate(ctx, index, cfg.Payload))
			return nil
		})
	}
	_ = g.Wait()

	m := summarize(acc.sorted(), cfg)
	m.Mode = mode
	logging.Info("Performance", "Average %.1fms (min %dms, max %dms, p95 %dms), expected <= %dms: passed=%t",
		m.AverageMs, m.MinMs, m.MaxMs, m.P95Ms, m.ExpectedResponseTimeMs, m.Passed)
	return m
}

func (r *Runner) iterate(ctx context.Context, index int, payload map[string]interface{}) Iteration {
	it := Iteration{Index: index}

	expanded, err := r.templates.NewScope().Expand(payload)
	if err != nil {
		it.ErrorKind = invoke.ErrorKindClient
		it.Error = fmt.Sprintf("Template error: %v", err)
		return it
	}

	outcome := r.invoker.Invoke(ctx, r.target, expanded)
	it.DurationMs = outcome.DurationMs
	if outcome.Failed() {
		it.ErrorKind = outcome.ErrorKind
		it.Error = fmt.Sprintf("%s: %s", outcome.ErrorKind, outcome.ErrorMessage)
	}
	return it
}

func summarize(samples []Iteration, cfg Config) Metrics {
	m := Metrics{
		Iterations:             len(samples),
		Concurrency:            cfg.Concurrency,
		ExpectedResponseTimeMs: cfg.ExpectedResponseTimeMs,
	}
	if len(samples) == 0 {
		m.Reason = "no iterations ran"
		return m
	}

	durations := make([]int64, 0, len(samples))
	var total int64
	for _, s := range samples {
		durations = append(durations, s.DurationMs)
		total += s.DurationMs
		if s.ErrorKind != invoke.ErrorKindNone {
			m.Failures = append(m.Failures, s)
		}
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	m.AverageMs = float64(total) / float64(len(durations))
	m.MinMs = durations[0]
	m.MaxMs = durations[len(durations)-1]
	m.P95Ms = percentile(durations, 95)

	switch {
	case len(m.Failures) > 0:
		first := m.Failures[0]
		m.Reason = fmt.Sprintf("iteration %d of %d failed: %s", first.Index, len(samples), first.Error)
	case cfg.ExpectedResponseTimeMs > 0 && m.AverageMs > float64(cfg.ExpectedResponseTimeMs):
		m.Reason = fmt.Sprintf("average %.1fms exceeds expected %dms", m.AverageMs, cfg.ExpectedResponseTimeMs)
	default:
		m.Passed = true
	}
	return m
}

// percentile uses nearest-rank on sorted values.
func percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
