package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fnprobe/internal/clock"
	"fnprobe/internal/config"
	"fnprobe/internal/invoke"
	"fnprobe/internal/logs"
	"fnprobe/internal/perf"
	"fnprobe/internal/report"
	"fnprobe/internal/resources"
	"fnprobe/internal/scenario"
	"fnprobe/internal/session"
	"fnprobe/internal/target"
	"fnprobe/internal/template"
	"fnprobe/internal/validate"
	"fnprobe/internal/workflow"
	"fnprobe/pkg/logging"
)

// Invoker performs one invocation; *invoke.Engine satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, t *target.FunctionTarget, payload interface{}) invoke.Outcome
}

// LogSource queries the log backend; *logs.Extractor satisfies it.
type LogSource interface {
	QueryWindow(ctx context.Context, t *target.FunctionTarget, start, end time.Time) (*logs.Bundle, error)
}

// ResourceProvider scopes ephemeral resources around a function call;
// *resources.Manager satisfies it.
type ResourceProvider interface {
	WithResources(ctx context.Context, specs []resources.Spec, fn func(ids map[string]string) error) ([]resources.Orphan, error)
}

// Recorder stores finished phase reports; *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, r *report.PhaseReport) error
}

// Runner drives the unit and integration phases of one session. Each phase
// builds its own report and hands it back; nothing is shared between phases
// except the session identity.
type Runner struct {
	session   *session.Session
	target    *target.FunctionTarget
	invoker   Invoker
	templates *template.Engine
	clock     clock.Clock
	reporter  Reporter

	scenarios []scenario.Scenario
	workflows []scenario.Workflow

	perf     *perf.Config
	logs     LogSource
	lookback time.Duration
	inline   bool

	resources ResourceProvider
	specs     []resources.Spec
	recorder  Recorder
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock replaces the system clock.
func WithClock(clk clock.Clock) Option {
	return func(r *Runner) { r.clock = clk }
}

// WithReporter sets the progress reporter.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) { r.reporter = rep }
}

// WithScenarios sets the unit scenarios.
func WithScenarios(scenarios []scenario.Scenario) Option {
	return func(r *Runner) { r.scenarios = scenarios }
}

// WithWorkflows sets the integration workflows.
func WithWorkflows(workflows []scenario.Workflow) Option {
	return func(r *Runner) { r.workflows = workflows }
}

// WithPerformance enables the performance run of the unit phase.
func WithPerformance(cfg perf.Config) Option {
	return func(r *Runner) { r.perf = &cfg }
}

// WithLogs enables log extraction over the last lookback after each phase.
// A nil source falls back to the log tails returned inline with invocations.
func WithLogs(src LogSource, lookback time.Duration) Option {
	return func(r *Runner) {
		r.logs = src
		r.lookback = lookback
		r.inline = src == nil
	}
}

// WithResources provisions specs around the integration workflows.
func WithResources(p ResourceProvider, specs []resources.Spec) Option {
	return func(r *Runner) {
		r.resources = p
		r.specs = specs
	}
}

// WithRecorder records every finished report.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// NewRunner creates a runner for one resolved target.
func NewRunner(s *session.Session, t *target.FunctionTarget, invoker Invoker, templates *template.Engine, opts ...Option) *Runner {
	r := &Runner{
		session:   s,
		target:    t,
		invoker:   invoker,
		templates: templates,
		clock:     clock.RealClock{},
		reporter:  NewQuietReporter(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes phases in order and returns their reports. Test failures are
// recorded in the reports, not returned. An error means artifacts could not
// be written or the session ran out of time.
func (r *Runner) Run(ctx context.Context, phases []string) ([]*report.PhaseReport, error) {
	r.reporter.ReportStart(r.session, r.target, phases)

	var reports []*report.PhaseReport
	for _, phase := range phases {
		var (
			rep *report.PhaseReport
			err error
		)
		switch phase {
		case session.PhaseUnit:
			rep, err = r.RunUnit(ctx)
		case session.PhaseIntegration:
			rep, err = r.RunIntegration(ctx)
		default:
			return reports, fmt.Errorf("unknown phase %q", phase)
		}
		if rep != nil {
			reports = append(reports, rep)
		}
		if err != nil {
			return reports, err
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return reports, fmt.Errorf("session exceeded its timeout after the %s phase: %w", phase, ctx.Err())
		}
	}
	return reports, nil
}

// RunUnit invokes every scenario once, then the optional performance run.
func (r *Runner) RunUnit(ctx context.Context) (*report.PhaseReport, error) {
	phase := session.PhaseUnit
	dir, err := r.session.PhaseDir(phase)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s results directory: %w", phase, err)
	}

	tests := len(r.scenarios)
	if r.perf != nil {
		tests++
	}
	r.reporter.ReportPhaseStart(phase, tests)

	b := report.NewBuilder(r.session, phase, r.target.Name)
	var tails []string
	for _, sc := range r.scenarios {
		if tail := r.runScenario(ctx, dir, b, sc); tail != "" {
			tails = append(tails, tail)
		}
	}

	if r.perf != nil {
		stop := r.reporter.Progress(fmt.Sprintf("Running %d performance iterations...", r.perf.Iterations))
		m := perf.NewRunner(r.invoker, r.templates, r.target).Run(ctx, *r.perf)
		stop()
		b.SetPerformance(m)
		r.reporter.ReportPerformance(m)
	}

	r.collectLogs(ctx, dir, b, tails)
	return r.finish(ctx, dir, b)
}

func (r *Runner) runScenario(ctx context.Context, dir string, b *report.Builder, sc scenario.Scenario) string {
	logging.Debug("Harness", "Running scenario %s", sc.Name)

	scope := r.templates.NewScope()
	payload, err := scope.Expand(sc.Event)
	if err != nil {
		reason := "Template error: " + err.Error()
		b.AddFailure(sc.Name, report.KindScenario, report.FailureValidation, reason)
		r.reporter.ReportScenarioResult(sc, invoke.Outcome{}, validate.Verdict{Reason: reason})
		return ""
	}

	stop := r.reporter.Progress(fmt.Sprintf("Invoking %s...", sc.Name))
	outcome := r.invoker.Invoke(ctx, r.target, payload)
	stop()

	analysis := validate.Analyze(outcome)
	outcome.Analysis = &analysis
	verdict := validate.Check(outcome, sc.Expected)

	artifact, err := report.WriteOutcomeArtifact(dir, sc.Name, r.session.RunID, payload, outcome)
	if err != nil {
		logging.Warn("Harness", "Could not write outcome artifact for %s: %v", sc.Name, err)
		artifact = ""
	}
	b.AddScenario(sc.Name, payload, outcome, verdict, artifact)
	r.reporter.ReportScenarioResult(sc, outcome, verdict)

	return logs.CaptureImmediate(outcome)
}

// RunIntegration runs every workflow, inside the ephemeral resource scope
// when resources are configured. A provisioning failure aborts all
// workflows of the phase; teardown still runs.
func (r *Runner) RunIntegration(ctx context.Context) (*report.PhaseReport, error) {
	phase := session.PhaseIntegration
	dir, err := r.session.PhaseDir(phase)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s results directory: %w", phase, err)
	}
	r.reporter.ReportPhaseStart(phase, len(r.workflows))

	b := report.NewBuilder(r.session, phase, r.target.Name)
	orchestrator := func(ids map[string]string) *workflow.Orchestrator {
		return workflow.NewOrchestrator(r.invoker, r.templates, r.clock, r.target,
			workflow.WithResources(ids),
			workflow.WithObserver(r.reporter.ReportWorkflowStep),
		)
	}
	record := func(exec workflow.Execution) {
		b.AddWorkflow(exec)
		r.reporter.ReportWorkflowResult(exec)
	}
	runAll := func(ids map[string]string) error {
		o := orchestrator(ids)
		for _, wf := range r.workflows {
			record(o.Run(ctx, wf))
		}
		return nil
	}

	if r.resources != nil && len(r.specs) > 0 {
		stop := r.reporter.Progress(fmt.Sprintf("Provisioning %d resources...", len(r.specs)))
		var provisioned bool
		orphans, err := r.resources.WithResources(ctx, r.specs, func(ids map[string]string) error {
			provisioned = true
			stop()
			return runAll(ids)
		})
		if !provisioned {
			stop()
		}
		if err != nil {
			logging.Error("Harness", err, "Aborting %d workflows", len(r.workflows))
			o := orchestrator(nil)
			for _, wf := range r.workflows {
				record(o.Abort(wf, err.Error()))
			}
		}
		if len(orphans) > 0 {
			logging.Warn("Harness", "%d resources left for sweep of session %s", len(orphans), r.session.RunID)
			b.SetOrphans(orphans)
		}
	} else {
		_ = runAll(nil)
	}

	r.collectLogs(ctx, dir, b, nil)
	return r.finish(ctx, dir, b)
}

// collectLogs queries the log window or, without a backend, assembles the
// inline tails. Failure only annotates the report.
func (r *Runner) collectLogs(ctx context.Context, dir string, b *report.Builder, tails []string) {
	var bundle *logs.Bundle
	switch {
	case r.logs != nil:
		start, end := logs.DefaultWindow(r.clock.Now(), r.lookback)
		stop := r.reporter.Progress("Collecting logs...")
		got, err := r.logs.QueryWindow(ctx, r.target, start, end)
		stop()
		if err != nil {
			logging.Warn("Harness", "Log extraction failed: %v", err)
			b.SetLogExtractionFailed(err)
			return
		}
		bundle = got
	case r.inline && len(tails) > 0:
		bundle = logs.BundleFromText(r.target.LogGroup(), strings.Join(tails, "\n"))
	default:
		return
	}

	if _, _, err := logs.WriteBundle(dir, bundle); err != nil {
		logging.Warn("Harness", "Could not write log bundle: %v", err)
	}
	b.SetLogs(bundle.Summary())
}

func (r *Runner) finish(ctx context.Context, dir string, b *report.Builder) (*report.PhaseReport, error) {
	rep := b.Build(r.clock.Now())

	writers := []func(string, *report.PhaseReport) (string, error){
		report.WriteMachineReport,
		report.WriteCIReport,
		report.WriteHumanReport,
	}
	for _, write := range writers {
		if _, err := write(dir, rep); err != nil {
			return rep, err
		}
	}

	if r.recorder != nil {
		if err := r.recorder.Record(context.WithoutCancel(ctx), rep); err != nil {
			logging.Warn("Harness", "Could not record %s phase in history: %v", rep.Phase, err)
		}
	}

	r.reporter.ReportPhaseResult(rep, dir)
	return rep, nil
}

// ResourceSpecs converts configured resource declarations.
func ResourceSpecs(specs []config.ResourceSpecConfig) []resources.Spec {
	out := make([]resources.Spec, 0, len(specs))
	for _, s := range specs {
		out = append(out, resources.Spec{
			Name:    s.Name,
			Kind:    resources.Kind(s.Kind),
			Bucket:  s.Bucket,
			Key:     s.Key,
			Content: s.Content,
		})
	}
	return out
}

// PerformanceConfig converts the configured performance run.
func PerformanceConfig(cfg config.PerformanceConfig) perf.Config {
	return perf.Config{
		Iterations:             cfg.Iterations,
		Concurrency:            cfg.Concurrency,
		ExpectedResponseTimeMs: cfg.ExpectedResponseTimeMs,
		Payload:                cfg.Payload,
	}
}
