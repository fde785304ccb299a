package cmd

import (
	"context"
	"fmt"
	"io"

	"fnprobe/internal/config"
	"fnprobe/internal/harness"
	"fnprobe/internal/logs"
	"fnprobe/internal/report"
	"fnprobe/internal/resources"
	"fnprobe/internal/scenario"
	"fnprobe/internal/session"

	"github.com/spf13/cobra"
)

type runOptions struct {
	scenario string
	tag      string
	verbose  bool
	quiet    bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <unit|integration|all>",
		Short: "Run a test phase against the deployed function",
		Long: `Runs the unit phase (single-invocation scenarios plus the optional
performance run), the integration phase (multi-step workflows with
ephemeral resources), or both in that order.

Reports for each phase are written to <results-dir>/<phase>/:
  junit-results.xml   for the CI system
  summary.json        machine readable summary
  report.md           human readable report

The command exits with 0 when every test passed, 1 when a test failed,
2 on configuration errors and 3 when the function cannot be resolved.`,
		Example: `  fnprobe run unit
  fnprobe run all --function my-service-prod
  fnprobe run unit --tag smoke --verbose`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{session.PhaseUnit, session.PhaseIntegration, session.PhaseAll},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhases(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "Run only the named scenario")
	cmd.Flags().StringVar(&opts.tag, "tag", "", "Run only scenarios carrying this tag")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print every step and scenario result")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only print the final summary")
	return cmd
}

func runPhases(cmd *cobra.Command, arg string, opts *runOptions) error {
	phases, ok := session.Phases(arg)
	if !ok {
		return config.NewConfigError("", fmt.Sprintf("unknown phase %q (expected unit, integration or all)", arg), nil)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Definitions are checked before anything touches AWS.
	var (
		scenarios []scenario.Scenario
		workflows []scenario.Workflow
	)
	for _, p := range phases {
		switch p {
		case session.PhaseUnit:
			if scenarios, err = scenario.LoadScenarios(cfg.ScenariosPath); err != nil {
				return err
			}
			scenarios = scenario.FilterScenarios(scenarios, opts.scenario, opts.tag)
		case session.PhaseIntegration:
			if workflows, err = scenario.LoadWorkflows(cfg.WorkflowsPath); err != nil {
				return err
			}
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	env, err := prepare(ctx, cfg)
	if err != nil {
		return err
	}

	runner, closeFn := buildRunner(cmd.OutOrStdout(), env, scenarios, workflows, opts)
	defer closeFn()

	return executeRun(ctx, cmd, runner, phases)
}

// phaseRunner is satisfied by *harness.Runner.
type phaseRunner interface {
	Run(ctx context.Context, phases []string) ([]*report.PhaseReport, error)
}

// executeRun runs the phases and summarizes whatever reports came back. A
// session error (such as the timeout) still lists the failures of the
// phases that finished, then wins over them.
func executeRun(ctx context.Context, cmd *cobra.Command, runner phaseRunner, phases []string) error {
	reports, err := runner.Run(ctx, phases)
	if err != nil {
		if len(reports) > 0 {
			_ = summarize(cmd, reports)
		}
		return err
	}
	return summarize(cmd, reports)
}

// buildRunner wires the harness to the live AWS clients.
func buildRunner(out io.Writer, env *environment, scenarios []scenario.Scenario, workflows []scenario.Workflow, opts *runOptions) (*harness.Runner, func()) {
	cfg := env.cfg

	var reporter harness.Reporter
	if opts.quiet {
		reporter = harness.NewQuietReporter()
	} else {
		reporter = harness.NewConsoleReporter(out, opts.verbose, isTerminal())
	}

	options := []harness.Option{
		harness.WithClock(env.clock),
		harness.WithReporter(reporter),
		harness.WithScenarios(scenarios),
		harness.WithWorkflows(workflows),
	}

	if cfg.Performance.Enabled {
		options = append(options, harness.WithPerformance(harness.PerformanceConfig(cfg.Performance)))
	}

	if cfg.Logs.Enabled {
		options = append(options, harness.WithLogs(logs.NewExtractor(env.clients.Logs, cfg.Logs.LogGroup), lookback(cfg)))
	} else {
		options = append(options, harness.WithLogs(nil, 0))
	}

	if cfg.Resources.Enabled && len(cfg.Resources.Specs) > 0 {
		manager := resources.NewManager(env.clients.S3, env.session.RunID, cfg.Resources.BucketPrefix, env.clients.Region, env.clock)
		options = append(options, harness.WithResources(manager, harness.ResourceSpecs(cfg.Resources.Specs)))
	}

	closeFn := func() {}
	if store := openHistory(cfg); store != nil {
		options = append(options, harness.WithRecorder(store))
		closeFn = func() { _ = store.Close() }
	}

	return harness.NewRunner(env.session, env.target, env.engine, env.templates, options...), closeFn
}

// summarize prints the failing tests and turns them into the exit status.
func summarize(cmd *cobra.Command, reports []*report.PhaseReport) error {
	var failed []string
	for _, rep := range reports {
		for _, t := range rep.Failures() {
			failed = append(failed, rep.Phase+"/"+t.Name)
		}
		if len(rep.Orphans) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %d resource(s) could not be removed; run 'fnprobe sweep --session %s'\n", len(rep.Orphans), rep.RunID)
		}
	}
	if len(failed) == 0 {
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Failed tests:")
	for _, rep := range reports {
		for _, t := range rep.Failures() {
			fmt.Fprintf(out, "  ❌ %s/%s: %s\n", rep.Phase, t.Name, t.Reason)
		}
	}
	return &TestsFailedError{Failed: failed}
}
