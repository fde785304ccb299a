package perf

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fnprobe/internal/clock"
	"fnprobe/internal/invoke"
	"fnprobe/internal/target"
	"fnprobe/internal/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedInvoker struct {
	mu       sync.Mutex
	calls    int32
	inFlight int32
	peak     int32
	respond  func(call int) invoke.Outcome
}

func (s *scriptedInvoker) Invoke(context.Context, *target.FunctionTarget, interface{}) invoke.Outcome {
	call := int(atomic.AddInt32(&s.calls, 1))
	n := atomic.AddInt32(&s.inFlight, 1)
	s.mu.Lock()
	if n > s.peak {
		s.peak = n
	}
	s.mu.Unlock()
	time.Sleep(time.Millisecond)
	defer atomic.AddInt32(&s.inFlight, -1)
	return s.respond(call)
}

func newRunner(inv Invoker) *Runner {
	engine := template.New(clock.NewMockClock(time.Unix(1700000000, 0)), &template.SequenceGenerator{Prefix: "p"}, "run", "build")
	return NewRunner(inv, engine, &target.FunctionTarget{Name: "orders-api"})
}

func TestRun_FastTargetPasses(t *testing.T) {
	inv := &scriptedInvoker{respond: func(call int) invoke.Outcome {
		return invoke.Outcome{Success: true, StatusCode: 200, DurationMs: int64(60 + call*5)}
	}}

	m := newRunner(inv).Run(context.Background(), Config{
		Iterations:             5,
		Concurrency:            1,
		ExpectedResponseTimeMs: 1000,
		Payload:                map[string]interface{}{"test": "performance"},
	})

	assert.True(t, m.Passed)
	assert.Equal(t, ModeIsolated, m.Mode)
	assert.Equal(t, 5, m.Iterations)
	assert.Equal(t, int32(5), inv.calls)
	assert.Equal(t, int32(1), inv.peak, "concurrency 1 runs sequentially")
	assert.InDelta(t, 75.0, m.AverageMs, 0.001)
	assert.Equal(t, int64(65), m.MinMs)
	assert.Equal(t, int64(85), m.MaxMs)
	assert.LessOrEqual(t, m.AverageMs, float64(m.ExpectedResponseTimeMs))
	assert.Empty(t, m.Failures)
}

func TestRun_FifthCallTimesOut(t *testing.T) {
	inv := &scriptedInvoker{respond: func(call int) invoke.Outcome {
		if call == 5 {
			return invoke.Outcome{ErrorKind: invoke.ErrorKindTimeout, ErrorMessage: "Task timed out after 3.00 seconds", DurationMs: 3000}
		}
		return invoke.Outcome{Success: true, StatusCode: 200, DurationMs: 50}
	}}

	m := newRunner(inv).Run(context.Background(), Config{Iterations: 5, Concurrency: 1, ExpectedResponseTimeMs: 5000})

	assert.False(t, m.Passed)
	require.Len(t, m.Failures, 1)
	assert.Equal(t, 5, m.Failures[0].Index)
	assert.Equal(t, invoke.ErrorKindTimeout, m.Failures[0].ErrorKind)
	assert.Contains(t, m.Reason, "iteration 5 of 5")
}

func TestRun_SlowAverageFails(t *testing.T) {
	inv := &scriptedInvoker{respond: func(int) invoke.Outcome {
		return invoke.Outcome{Success: true, DurationMs: 1500}
	}}

	m := newRunner(inv).Run(context.Background(), Config{Iterations: 3, Concurrency: 1, ExpectedResponseTimeMs: 1000})
	assert.False(t, m.Passed)
	assert.Contains(t, m.Reason, "exceeds expected 1000ms")
}

func TestRun_UnderLoad(t *testing.T) {
	inv := &scriptedInvoker{respond: func(int) invoke.Outcome {
		return invoke.Outcome{Success: true, DurationMs: 10}
	}}

	m := newRunner(inv).Run(context.Background(), Config{Iterations: 20, Concurrency: 4, ExpectedResponseTimeMs: 100})
	assert.True(t, m.Passed)
	assert.Equal(t, ModeUnderLoad, m.Mode)
	assert.Equal(t, 20, m.Iterations)
	assert.LessOrEqual(t, inv.peak, int32(4))
}

func TestRun_TemplateErrorCountsAsFailure(t *testing.T) {
	inv := &scriptedInvoker{respond: func(int) invoke.Outcome { return invoke.Outcome{Success: true} }}
	m := newRunner(inv).Run(context.Background(), Config{Iterations: 2, Payload: map[string]interface{}{"x": "${bogus}"}})
	assert.False(t, m.Passed)
	assert.Len(t, m.Failures, 2)
	assert.Equal(t, int32(0), inv.calls)
}

func TestPercentile(t *testing.T) {
	values := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, int64(10), percentile(values, 95))
	assert.Equal(t, int64(5), percentile(values, 50))
	assert.Equal(t, int64(0), percentile(nil, 95))
}
