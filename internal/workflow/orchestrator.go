package workflow

import (
	"context"
	"fmt"
	"time"

	"fnprobe/internal/clock"
	"fnprobe/internal/invoke"
	"fnprobe/internal/scenario"
	"fnprobe/internal/target"
	"fnprobe/internal/template"
	"fnprobe/internal/validate"
	"fnprobe/pkg/logging"

	"github.com/google/uuid"
)

// Invoker performs one invocation; *invoke.Engine satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, t *target.FunctionTarget, payload interface{}) invoke.Outcome
}

// StepObserver is notified after every step, for progress output.
type StepObserver func(workflow string, step StepResult)

// Orchestrator runs workflows step by step against one target.
type Orchestrator struct {
	invoker   Invoker
	templates *template.Engine
	clock     clock.Clock
	target    *target.FunctionTarget
	resources map[string]string
	newID     func() string
	observer  StepObserver
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithResources binds provisioned resource ids by logical name, for
// ${resource:<name>} placeholders.
func WithResources(resources map[string]string) Option {
	return func(o *Orchestrator) {
		o.resources = resources
	}
}

// WithExecutionIDs replaces the uuid execution id generator.
func WithExecutionIDs(newID func() string) Option {
	return func(o *Orchestrator) {
		o.newID = newID
	}
}

// WithObserver registers a callback invoked after each step.
func WithObserver(observer StepObserver) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// NewOrchestrator creates an orchestrator. A nil clock means the system clock.
func NewOrchestrator(invoker Invoker, templates *template.Engine, clk clock.Clock, t *target.FunctionTarget, opts ...Option) *Orchestrator {
	if clk == nil {
		clk = clock.RealClock{}
	}
	o := &Orchestrator{
		invoker:   invoker,
		templates: templates,
		clock:     clk,
		target:    t,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunAll executes workflows sequentially. A failed workflow does not stop
// the others.
func (o *Orchestrator) RunAll(ctx context.Context, workflows []scenario.Workflow) []Execution {
	executions := make([]Execution, 0, len(workflows))
	for _, wf := range workflows {
		executions = append(executions, o.Run(ctx, wf))
	}
	return executions
}

// Run executes every step of wf in order. Steps after a failed step still
// run, since later calls often add diagnostic signal, but the workflow ends
// Failed once any step fails. All steps share one placeholder scope, so an
// id generated for step 1 is the same id step 2 sees.
func (o *Orchestrator) Run(ctx context.Context, wf scenario.Workflow) Execution {
	exec := Execution{
		ExecutionID: o.newID(),
		Workflow:    wf.Name,
		Description: wf.Description,
		State:       StatePending,
		Steps:       make([]StepResult, 0, len(wf.Steps)),
	}

	o.transition(&exec, StateRunning)
	exec.StartedAt = o.clock.Now()
	logging.Info("Workflow", "Starting workflow %s (execution: %s, %d steps)", wf.Name, exec.ExecutionID, len(wf.Steps))

	scope := o.templates.NewScope()
	for name, id := range o.resources {
		scope.BindResource(name, id)
	}

	failed := false
	for _, step := range wf.Steps {
		result := o.runStep(ctx, scope, step)
		if !result.Passed {
			failed = true
			logging.Warn("Workflow", "Step %s of %s failed: %s", step.Name, wf.Name, result.Reason)
		}
		exec.Steps = append(exec.Steps, result)
		if o.observer != nil {
			o.observer(wf.Name, result)
		}
	}

	exec.CompletedAt = o.clock.Now()
	exec.DurationMs = exec.CompletedAt.Sub(exec.StartedAt).Milliseconds()
	if failed {
		o.transition(&exec, StateFailed)
	} else {
		o.transition(&exec, StateCompleted)
	}

	logging.Info("Workflow", "Workflow %s finished %s in %dms", wf.Name, exec.State, exec.DurationMs)
	return exec
}

// Abort records a workflow that never started, for instance because the
// resources it depends on could not be provisioned.
func (o *Orchestrator) Abort(wf scenario.Workflow, reason string) Execution {
	at := o.clock.Now()
	logging.Warn("Workflow", "Workflow %s aborted: %s", wf.Name, reason)
	return Execution{
		ExecutionID: o.newID(),
		Workflow:    wf.Name,
		Description: wf.Description,
		State:       StateFailed,
		StartedAt:   at,
		CompletedAt: at,
		Steps:       []StepResult{},
		Error:       reason,
	}
}

func (o *Orchestrator) runStep(ctx context.Context, scope *template.Scope, step scenario.Step) StepResult {
	result := StepResult{
		Name:      step.Name,
		Type:      step.Type,
		StartedAt: o.clock.Now(),
	}

	switch step.Type {
	case scenario.StepWait:
		d := time.Duration(step.Seconds) * time.Second
		logging.Debug("Workflow", "Step %s: waiting %s", step.Name, d)
		if err := o.clock.Sleep(ctx, d); err != nil {
			result.Reason = fmt.Sprintf("Wait interrupted: %v", err)
		} else {
			result.Passed = true
		}

	case scenario.StepInvoke:
		payload, err := scope.Expand(step.Payload)
		if err != nil {
			// the function is never called; the outcome records why
			result.Outcome = &invoke.Outcome{
				StartedAt:    result.StartedAt,
				ErrorKind:    invoke.ErrorKindClient,
				ErrorType:    TemplateErrorType,
				ErrorMessage: err.Error(),
			}
			result.Reason = fmt.Sprintf("Template error: %v", err)
			break
		}
		result.Payload = payload

		outcome := o.invoker.Invoke(ctx, o.target, payload)
		analysis := validate.Analyze(outcome)
		outcome.Analysis = &analysis
		result.Outcome = &outcome

		verdict := validate.Check(outcome, step.Expect)
		result.Passed = verdict.Passed
		result.Reason = verdict.Reason
		result.Notes = verdict.Notes

	default:
		result.Reason = fmt.Sprintf("Unknown step type %q", step.Type)
	}

	result.DurationMs = o.clock.Now().Sub(result.StartedAt).Milliseconds()
	return result
}

func (o *Orchestrator) transition(exec *Execution, to State) {
	if !CanTransition(exec.State, to) {
		logging.Error("Workflow", nil, "Illegal state change %s -> %s for %s", exec.State, to, exec.Workflow)
		return
	}
	logging.Debug("Workflow", "Execution %s: %s -> %s", exec.ExecutionID, exec.State, to)
	exec.State = to
}
