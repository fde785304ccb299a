package harness

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"fnprobe/internal/invoke"
	"fnprobe/internal/perf"
	"fnprobe/internal/report"
	"fnprobe/internal/scenario"
	"fnprobe/internal/session"
	"fnprobe/internal/target"
	"fnprobe/internal/validate"
	"fnprobe/internal/workflow"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Reporter receives progress events while phases run.
type Reporter interface {
	ReportStart(s *session.Session, t *target.FunctionTarget, phases []string)
	ReportPhaseStart(phase string, tests int)
	ReportScenarioResult(sc scenario.Scenario, outcome invoke.Outcome, verdict validate.Verdict)
	ReportWorkflowStep(workflow string, step workflow.StepResult)
	ReportWorkflowResult(exec workflow.Execution)
	ReportPerformance(m perf.Metrics)
	ReportPhaseResult(r *report.PhaseReport, dir string)
	// Progress shows msg until the returned func is called.
	Progress(msg string) func()
}

// consoleReporter prints progress for humans.
type consoleReporter struct {
	out     io.Writer
	verbose bool
	spin    bool
}

// NewConsoleReporter creates a reporter writing to out. The spinner is only
// shown when spin is set, which callers do for interactive terminals.
func NewConsoleReporter(out io.Writer, verbose, spin bool) Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &consoleReporter{out: out, verbose: verbose, spin: spin}
}

func (r *consoleReporter) ReportStart(s *session.Session, t *target.FunctionTarget, phases []string) {
	fmt.Fprintf(r.out, "🧪 fnprobe run %s\n", s.RunID)
	fmt.Fprintf(r.out, "🎯 Target: %s", t.Name)
	if t.Version != "" {
		fmt.Fprintf(r.out, " (%s)", t.Version)
	}
	fmt.Fprintf(r.out, " in %s\n", s.Region)

	if r.verbose {
		fmt.Fprintf(r.out, "\n⚙️  Configuration:\n")
		fmt.Fprintf(r.out, "   • Phases: %s\n", strings.Join(phases, ", "))
		fmt.Fprintf(r.out, "   • Runtime: %s\n", stringOrDefault(t.Runtime, "unknown"))
		fmt.Fprintf(r.out, "   • Memory: %dMB, timeout %ds\n", t.MemoryMB, t.TimeoutSeconds)
		fmt.Fprintf(r.out, "   • Results: %s\n", s.ResultsDir)
	}
	fmt.Fprintln(r.out)
}

func (r *consoleReporter) ReportPhaseStart(phase string, tests int) {
	fmt.Fprintf(r.out, "▶️  %s phase (%d tests)\n", phase, tests)
}

func (r *consoleReporter) ReportScenarioResult(sc scenario.Scenario, outcome invoke.Outcome, verdict validate.Verdict) {
	fmt.Fprintf(r.out, "   %s %s (%dms)\n", symbol(verdict.Passed), sc.Name, outcome.DurationMs)
	if !verdict.Passed {
		fmt.Fprintf(r.out, "      %s %s\n", text.FgRed.Sprint("Reason:"), verdict.Reason)
	}
	if r.verbose {
		if sc.Description != "" {
			fmt.Fprintf(r.out, "      📝 %s\n", sc.Description)
		}
		if outcome.StatusCode != 0 {
			fmt.Fprintf(r.out, "      📤 Status: %d\n", outcome.StatusCode)
		}
		for _, note := range verdict.Notes {
			fmt.Fprintf(r.out, "      ℹ️  %s\n", note)
		}
	}
}

func (r *consoleReporter) ReportWorkflowStep(wf string, step workflow.StepResult) {
	if !r.verbose {
		return
	}
	fmt.Fprintf(r.out, "      %s %s/%s [%s] (%dms)\n", symbol(step.Passed), wf, step.Name, step.Type, step.DurationMs)
	if !step.Passed {
		fmt.Fprintf(r.out, "         ❌ %s\n", step.Reason)
	}
}

func (r *consoleReporter) ReportWorkflowResult(exec workflow.Execution) {
	fmt.Fprintf(r.out, "   %s %s (%dms, %d steps)\n", symbol(exec.Passed()), exec.Workflow, exec.DurationMs, len(exec.Steps))
	if !exec.Passed() {
		fmt.Fprintf(r.out, "      %s %s\n", text.FgRed.Sprint("Reason:"), exec.Reason())
	}
}

func (r *consoleReporter) ReportPerformance(m perf.Metrics) {
	fmt.Fprintf(r.out, "   %s performance: avg %.1fms, min %dms, p95 %dms, max %dms over %d iterations (%s)\n",
		symbol(m.Passed), m.AverageMs, m.MinMs, m.P95Ms, m.MaxMs, m.Iterations, m.Mode)
	if !m.Passed {
		fmt.Fprintf(r.out, "      %s %s\n", text.FgRed.Sprint("Reason:"), m.Reason)
	}
}

func (r *consoleReporter) ReportPhaseResult(rep *report.PhaseReport, dir string) {
	fmt.Fprintln(r.out)
	report.RenderTable(r.out, rep)
	fmt.Fprintf(r.out, "📊 %s: %d passed, %d failed, %d total\n", rep.Phase, rep.Totals.Passed, rep.Totals.Failed, rep.Totals.Total)
	if rep.Passed() {
		fmt.Fprintf(r.out, "🎉 All %s tests passed!\n", rep.Phase)
	} else {
		fmt.Fprintf(r.out, "💔 Some %s tests failed\n", rep.Phase)
	}
	fmt.Fprintf(r.out, "📄 Reports saved to: %s\n\n", dir)
}

func (r *consoleReporter) Progress(msg string) func() {
	if !r.spin {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}

// NewQuietReporter creates a reporter that prints nothing.
func NewQuietReporter() Reporter {
	return quietReporter{}
}

type quietReporter struct{}

func (quietReporter) ReportStart(*session.Session, *target.FunctionTarget, []string)           {}
func (quietReporter) ReportPhaseStart(string, int)                                             {}
func (quietReporter) ReportScenarioResult(scenario.Scenario, invoke.Outcome, validate.Verdict) {}
func (quietReporter) ReportWorkflowStep(string, workflow.StepResult)                           {}
func (quietReporter) ReportWorkflowResult(workflow.Execution)                                  {}
func (quietReporter) ReportPerformance(perf.Metrics)                                           {}
func (quietReporter) ReportPhaseResult(*report.PhaseReport, string)                            {}
func (quietReporter) Progress(string) func()                                                   { return func() {} }

func symbol(passed bool) string {
	if passed {
		return "✅"
	}
	return "❌"
}

func stringOrDefault(s, defaultValue string) string {
	if s == "" {
		return defaultValue
	}
	return s
}
