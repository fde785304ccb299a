package workflow

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"fnprobe/internal/clock"
	"fnprobe/internal/invoke"
	"fnprobe/internal/scenario"
	"fnprobe/internal/target"
	"fnprobe/internal/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockInvoker records payloads and answers from a scripted list
type mockInvoker struct {
	calls    []map[string]interface{}
	respond  func(call int, payload map[string]interface{}) invoke.Outcome
	duration time.Duration
	clock    *clock.MockClock
}

func (m *mockInvoker) Invoke(_ context.Context, _ *target.FunctionTarget, payload interface{}) invoke.Outcome {
	p, _ := payload.(map[string]interface{})
	m.calls = append(m.calls, p)
	if m.clock != nil {
		m.clock.Advance(m.duration)
	}
	if m.respond != nil {
		return m.respond(len(m.calls), p)
	}
	return invoke.Outcome{Success: true, StatusCode: 200, RawBody: `{}`}
}

func newTestOrchestrator(inv *mockInvoker, opts ...Option) (*Orchestrator, *clock.MockClock) {
	clk := clock.NewMockClock(time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC))
	inv.clock = clk
	engine := template.New(clk, &template.SequenceGenerator{Prefix: "rec"}, "42-abc1234", "42")
	n := 0
	opts = append([]Option{WithExecutionIDs(func() string {
		n++
		return fmt.Sprintf("exec-%d", n)
	})}, opts...)
	return NewOrchestrator(inv, engine, clk, &target.FunctionTarget{Name: "orders-api"}, opts...), clk
}

func submitAndRetrieve() scenario.Workflow {
	return scenario.Workflow{
		Name: "submit-retrieve",
		Steps: []scenario.Step{
			{
				Name:    "submit",
				Type:    scenario.StepInvoke,
				Payload: map[string]interface{}{"action": "submit", "id": "${uuid}"},
				Expect:  &scenario.Expectation{StatusCode: scenario.IntPtr(200)},
			},
			{Name: "settle", Type: scenario.StepWait, Seconds: 5},
			{
				Name:    "retrieve",
				Type:    scenario.StepInvoke,
				Payload: map[string]interface{}{"action": "get", "id": "${uuid}"},
				Expect:  &scenario.Expectation{StatusCode: scenario.IntPtr(200), BodyContains: []string{"rec-1"}},
			},
		},
	}
}

func TestOrchestrator_Run_Completed(t *testing.T) {
	inv := &mockInvoker{
		duration: 30 * time.Millisecond,
		respond: func(_ int, p map[string]interface{}) invoke.Outcome {
			return invoke.Outcome{Success: true, StatusCode: 200, RawBody: fmt.Sprintf(`{"id":%q}`, p["id"])}
		},
	}
	orch, clk := newTestOrchestrator(inv)

	exec := orch.Run(context.Background(), submitAndRetrieve())

	assert.Equal(t, StateCompleted, exec.State)
	assert.True(t, exec.Passed())
	assert.Equal(t, "exec-1", exec.ExecutionID)
	require.Len(t, exec.Steps, 3)
	require.Len(t, inv.calls, 2)

	// one scope per workflow: both steps see the same id
	assert.Equal(t, "rec-1", inv.calls[0]["id"])
	assert.Equal(t, inv.calls[0]["id"], inv.calls[1]["id"])

	assert.Equal(t, []time.Duration{5 * time.Second}, clk.Slept())
	assert.Equal(t, int64(5000), exec.Steps[1].DurationMs)
	assert.Equal(t, int64(30), exec.Steps[0].DurationMs)
	assert.Equal(t, int64(5060), exec.DurationMs)
	require.NotNil(t, exec.Steps[0].Outcome.Analysis)
}

func TestOrchestrator_Run_ContinuesAfterFailure(t *testing.T) {
	inv := &mockInvoker{
		respond: func(call int, _ map[string]interface{}) invoke.Outcome {
			if call == 1 {
				return invoke.Outcome{StatusCode: 200, ErrorKind: invoke.ErrorKindInvocation, ErrorMessage: "db unavailable"}
			}
			return invoke.Outcome{Success: true, StatusCode: 200, RawBody: `{"message":"not found"}`}
		},
	}
	orch, _ := newTestOrchestrator(inv)

	exec := orch.Run(context.Background(), submitAndRetrieve())

	assert.Equal(t, StateFailed, exec.State)
	assert.False(t, exec.Passed())
	require.Len(t, inv.calls, 2, "step 2 is still attempted")
	require.Len(t, exec.Steps, 3)

	assert.False(t, exec.Steps[0].Passed)
	assert.Equal(t, "InvocationError: db unavailable", exec.Steps[0].Reason)
	assert.True(t, exec.Steps[1].Passed)
	assert.False(t, exec.Steps[2].Passed)
	assert.Contains(t, exec.Steps[2].Reason, "does not contain")

	assert.Len(t, exec.FailedSteps(), 2)
	assert.True(t, strings.HasPrefix(exec.Reason(), "submit: "))
}

func TestOrchestrator_Run_TemplateError(t *testing.T) {
	inv := &mockInvoker{}
	orch, _ := newTestOrchestrator(inv)

	exec := orch.Run(context.Background(), scenario.Workflow{
		Name: "bad-token",
		Steps: []scenario.Step{
			{Name: "call", Type: scenario.StepInvoke, Payload: map[string]interface{}{"x": "${nope}"}},
		},
	})

	assert.Equal(t, StateFailed, exec.State)
	assert.Empty(t, inv.calls)
	assert.Contains(t, exec.Steps[0].Reason, "Template error")

	// the step still carries exactly one outcome
	out := exec.Steps[0].Outcome
	require.NotNil(t, out)
	assert.Equal(t, invoke.ErrorKindClient, out.ErrorKind)
	assert.Equal(t, TemplateErrorType, out.ErrorType)
	assert.Contains(t, out.ErrorMessage, "nope")
}

func TestOrchestrator_Run_WaitInterrupted(t *testing.T) {
	orch, _ := newTestOrchestrator(&mockInvoker{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := orch.Run(ctx, scenario.Workflow{
		Name:  "pause",
		Steps: []scenario.Step{{Name: "wait", Type: scenario.StepWait, Seconds: 1}},
	})
	assert.Equal(t, StateFailed, exec.State)
	assert.Contains(t, exec.Steps[0].Reason, "Wait interrupted")
}

func TestOrchestrator_Resources(t *testing.T) {
	inv := &mockInvoker{}
	orch, _ := newTestOrchestrator(inv, WithResources(map[string]string{"input": "fnprobe-42-input"}))

	exec := orch.Run(context.Background(), scenario.Workflow{
		Name: "uses-bucket",
		Steps: []scenario.Step{
			{Name: "call", Type: scenario.StepInvoke, Payload: map[string]interface{}{"bucket": "${resource:input}"}},
		},
	})
	require.True(t, exec.Passed())
	assert.Equal(t, "fnprobe-42-input", inv.calls[0]["bucket"])
}

func TestOrchestrator_RunAllAndObserver(t *testing.T) {
	var observed []string
	inv := &mockInvoker{
		respond: func(call int, _ map[string]interface{}) invoke.Outcome {
			if call == 1 {
				return invoke.Outcome{Success: true, StatusCode: 500}
			}
			return invoke.Outcome{Success: true, StatusCode: 200}
		},
	}
	orch, _ := newTestOrchestrator(inv, WithObserver(func(wf string, step StepResult) {
		observed = append(observed, wf+"/"+step.Name)
	}))

	wf := func(name string) scenario.Workflow {
		return scenario.Workflow{
			Name: name,
			Steps: []scenario.Step{
				{Name: "call", Type: scenario.StepInvoke, Expect: &scenario.Expectation{StatusCode: scenario.IntPtr(200)}},
			},
		}
	}

	execs := orch.RunAll(context.Background(), []scenario.Workflow{wf("first"), wf("second")})
	require.Len(t, execs, 2)
	assert.Equal(t, StateFailed, execs[0].State)
	assert.Equal(t, StateCompleted, execs[1].State, "a failed workflow does not affect the next")
	assert.Equal(t, []string{"first/call", "second/call"}, observed)
	assert.Equal(t, "exec-2", execs[1].ExecutionID)
}

func TestOrchestrator_Abort(t *testing.T) {
	orch, _ := newTestOrchestrator(&mockInvoker{})
	exec := orch.Abort(submitAndRetrieve(), "ProvisionError: bucket create denied")
	assert.Equal(t, StateFailed, exec.State)
	assert.Empty(t, exec.Steps)
	assert.Equal(t, "ProvisionError: bucket create denied", exec.Reason())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatePending, StateRunning))
	assert.True(t, CanTransition(StateRunning, StateFailed))
	assert.False(t, CanTransition(StateCompleted, StateRunning))
	assert.False(t, CanTransition(StatePending, StateCompleted))
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateRunning.Terminal())
}
