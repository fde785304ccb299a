package report

import (
	"time"

	"fnprobe/internal/invoke"
	"fnprobe/internal/logs"
	"fnprobe/internal/perf"
	"fnprobe/internal/resources"
	"fnprobe/internal/session"
	"fnprobe/internal/validate"
	"fnprobe/internal/workflow"
)

// Builder accumulates the results of one phase. Each phase owns its builder;
// the finished report is handed to the writers explicitly.
type Builder struct {
	report PhaseReport
}

// NewBuilder starts a report for phase.
func NewBuilder(s *session.Session, phase, function string) *Builder {
	return &Builder{report: PhaseReport{
		Phase:    phase,
		RunID:    s.RunID,
		BuildID:  s.BuildID,
		Commit:   s.Commit,
		Region:   s.Region,
		Function: function,
		Tests:    []TestEntry{},
	}}
}

// AddScenario records a unit scenario. artifact is the path of its outcome
// file, if one was written.
func (b *Builder) AddScenario(name string, payload map[string]interface{}, outcome invoke.Outcome, verdict validate.Verdict, artifact string) {
	entry := TestEntry{
		Name:       name,
		Kind:       KindScenario,
		Passed:     verdict.Passed,
		Reason:     verdict.Reason,
		DurationMs: outcome.DurationMs,
		StatusCode: outcome.StatusCode,
		Notes:      verdict.Notes,
		Payload:    payload,
		Artifact:   artifact,
	}
	if outcome.Analysis != nil {
		entry.Confidence = string(outcome.Analysis.Confidence)
	}
	if !verdict.Passed {
		entry.FailureType = failureType(outcome)
	}
	b.report.Tests = append(b.report.Tests, entry)
}

// AddFailure records a scenario that could not be attempted.
func (b *Builder) AddFailure(name, kind, failureType, reason string) {
	b.report.Tests = append(b.report.Tests, TestEntry{
		Name:        name,
		Kind:        kind,
		Reason:      reason,
		FailureType: failureType,
	})
}

// AddWorkflow records a workflow execution.
func (b *Builder) AddWorkflow(exec workflow.Execution) {
	entry := TestEntry{
		Name:        exec.Workflow,
		Kind:        KindWorkflow,
		Passed:      exec.Passed(),
		Reason:      exec.Reason(),
		DurationMs:  exec.DurationMs,
		ExecutionID: exec.ExecutionID,
		Steps:       make([]StepEntry, 0, len(exec.Steps)),
	}
	for _, s := range exec.Steps {
		entry.Steps = append(entry.Steps, StepEntry{
			Name:       s.Name,
			Type:       string(s.Type),
			Passed:     s.Passed,
			Reason:     s.Reason,
			DurationMs: s.DurationMs,
		})
		entry.Notes = append(entry.Notes, s.Notes...)
	}
	if !entry.Passed {
		entry.FailureType = workflowFailureType(exec)
	}
	b.report.Tests = append(b.report.Tests, entry)
}

// SetPerformance records the performance run as its own entry.
func (b *Builder) SetPerformance(m perf.Metrics) {
	b.report.Performance = &m
	entry := TestEntry{
		Name:       "performance",
		Kind:       KindPerformance,
		Passed:     m.Passed,
		Reason:     m.Reason,
		DurationMs: int64(m.AverageMs),
	}
	if !m.Passed {
		entry.FailureType = FailureValidation
		if len(m.Failures) > 0 {
			entry.FailureType = string(m.Failures[0].ErrorKind)
		}
	}
	b.report.Tests = append(b.report.Tests, entry)
}

// SetLogs records the log summary.
func (b *Builder) SetLogs(summary logs.Summary) {
	b.report.Logs = &summary
}

// SetLogExtractionFailed annotates the report; it never changes the verdict.
func (b *Builder) SetLogExtractionFailed(err error) {
	b.report.LogExtractionFailed = err.Error()
}

// SetOrphans records resources that teardown could not delete.
func (b *Builder) SetOrphans(orphans []resources.Orphan) {
	b.report.Orphans = orphans
}

// Build computes totals and stamps the report.
func (b *Builder) Build(now time.Time) *PhaseReport {
	r := b.report
	r.Timestamp = now.UTC()
	r.Totals = Totals{Total: len(r.Tests)}
	for _, t := range r.Tests {
		if t.Passed {
			r.Totals.Passed++
		} else {
			r.Totals.Failed++
		}
	}
	return &r
}

func failureType(outcome invoke.Outcome) string {
	if outcome.Failed() {
		return string(outcome.ErrorKind)
	}
	return FailureValidation
}

func workflowFailureType(exec workflow.Execution) string {
	if exec.Error != "" {
		return FailureProvision
	}
	for _, s := range exec.Steps {
		if !s.Passed {
			if s.Outcome != nil && s.Outcome.Failed() {
				return string(s.Outcome.ErrorKind)
			}
			return FailureValidation
		}
	}
	return FailureValidation
}
