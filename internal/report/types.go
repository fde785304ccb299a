package report

import (
	"time"

	"fnprobe/internal/logs"
	"fnprobe/internal/perf"
	"fnprobe/internal/resources"
)

// FailureValidation is the failure type of an outcome that succeeded on the
// wire but did not meet its expectation. Transport failures use the
// invocation error kind instead.
const FailureValidation = "ValidationFailure"

// FailureProvision is the failure type of a workflow aborted because its
// resources could not be provisioned.
const FailureProvision = "ProvisionError"

// Entry kinds.
const (
	KindScenario    = "scenario"
	KindWorkflow    = "workflow"
	KindPerformance = "performance"
)

// Totals counts the entries of a phase.
type Totals struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// StepEntry is one step of a workflow entry.
type StepEntry struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Passed     bool   `json:"passed"`
	Reason     string `json:"reason,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// TestEntry is one scenario, workflow, or the performance run.
type TestEntry struct {
	Name        string                 `json:"name"`
	Kind        string                 `json:"kind"`
	Passed      bool                   `json:"passed"`
	Reason      string                 `json:"reason,omitempty"`
	FailureType string                 `json:"failureType,omitempty"`
	DurationMs  int64                  `json:"durationMs"`
	StatusCode  int                    `json:"statusCode,omitempty"`
	Confidence  string                 `json:"confidence,omitempty"`
	Notes       []string               `json:"notes,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Steps       []StepEntry            `json:"steps,omitempty"`
	ExecutionID string                 `json:"executionId,omitempty"`
	Artifact    string                 `json:"artifact,omitempty"`
}

// PhaseReport aggregates the results of one phase. It is built once from
// the phase's results and never mutated afterwards.
type PhaseReport struct {
	Phase    string `json:"phase"`
	RunID    string `json:"runId"`
	BuildID  string `json:"buildId,omitempty"`
	Commit   string `json:"commit,omitempty"`
	Region   string `json:"region,omitempty"`
	Function string `json:"function,omitempty"`
	// Timestamp is the only field allowed to differ between two reports of
	// the same results.
	Timestamp time.Time `json:"timestamp"`

	Totals              Totals             `json:"totals"`
	Tests               []TestEntry        `json:"tests"`
	Performance         *perf.Metrics      `json:"performance,omitempty"`
	Logs                *logs.Summary      `json:"logs,omitempty"`
	LogExtractionFailed string             `json:"logExtractionFailed,omitempty"`
	Orphans             []resources.Orphan `json:"orphanedResources,omitempty"`
}

// Passed reports whether every entry passed.
func (r *PhaseReport) Passed() bool {
	return r.Totals.Failed == 0
}

// Failures returns the failing entries in order.
func (r *PhaseReport) Failures() []TestEntry {
	var failed []TestEntry
	for _, t := range r.Tests {
		if !t.Passed {
			failed = append(failed, t)
		}
	}
	return failed
}
