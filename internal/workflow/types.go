package workflow

import (
	"time"

	"fnprobe/internal/invoke"
	"fnprobe/internal/scenario"
)

// State is the lifecycle state of one workflow execution.
type State string

const (
	StatePending   State = "Pending"
	StateRunning   State = "Running"
	StateCompleted State = "Completed"
	StateFailed    State = "Failed"
)

// TemplateErrorType is the error type of the outcome synthesized for a step
// whose payload could not be expanded.
const TemplateErrorType = "TemplateError"

// transitions lists the legal state changes.
var transitions = map[State][]State{
	StatePending: {StateRunning, StateFailed},
	StateRunning: {StateCompleted, StateFailed},
}

// CanTransition reports whether from -> to is a legal state change.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// StepResult records the outcome of one step.
type StepResult struct {
	Name       string            `json:"name"`
	Type       scenario.StepType `json:"type"`
	Passed     bool              `json:"passed"`
	Reason     string            `json:"reason,omitempty"`
	Notes      []string          `json:"notes,omitempty"`
	StartedAt  time.Time         `json:"startedAt"`
	DurationMs int64             `json:"durationMs"`
	// Payload is the expanded payload actually sent.
	Payload map[string]interface{} `json:"payload,omitempty"`
	Outcome *invoke.Outcome        `json:"outcome,omitempty"`
}

// Execution is the record of one workflow run.
type Execution struct {
	ExecutionID string       `json:"executionId"`
	Workflow    string       `json:"workflow"`
	Description string       `json:"description,omitempty"`
	State       State        `json:"state"`
	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt time.Time    `json:"completedAt"`
	DurationMs  int64        `json:"durationMs"`
	Steps       []StepResult `json:"steps"`
	// Error is set when the workflow could not start, e.g. a provisioning failure.
	Error string `json:"error,omitempty"`
}

// Passed reports whether the workflow completed with every step passing.
func (e Execution) Passed() bool {
	return e.State == StateCompleted
}

// FailedSteps returns the steps that did not pass.
func (e Execution) FailedSteps() []StepResult {
	var failed []StepResult
	for _, s := range e.Steps {
		if !s.Passed {
			failed = append(failed, s)
		}
	}
	return failed
}

// Reason summarizes why the workflow failed.
func (e Execution) Reason() string {
	if e.Error != "" {
		return e.Error
	}
	for _, s := range e.Steps {
		if !s.Passed {
			return s.Name + ": " + s.Reason
		}
	}
	return ""
}
