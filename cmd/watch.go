package cmd

import (
	"errors"
	"fmt"

	"fnprobe/internal/config"
	"fnprobe/internal/session"
	"fnprobe/internal/watch"
	"fnprobe/pkg/logging"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "watch <unit|integration|all>",
		Short: "Re-run a phase whenever the definition files change",
		Long: `Runs the phase once, then watches the scenarios and workflows files and
runs it again after each change. Stop with Ctrl-C.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{session.PhaseUnit, session.PhaseIntegration, session.PhaseAll},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := session.Phases(args[0]); !ok {
				return config.NewConfigError("", fmt.Sprintf("unknown phase %q (expected unit, integration or all)", args[0]), nil)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			w := watch.New([]string{configPath, cfg.ScenariosPath, cfg.WorkflowsPath}, 0)
			changes := make(chan watch.Change, 16)
			if err := w.Start(ctx, changes); err != nil {
				return err
			}
			defer w.Stop()

			out := cmd.OutOrStdout()
			rerun := func() error {
				err := runPhases(cmd, args[0], opts)
				var failed *TestsFailedError
				switch {
				case err == nil:
				case errors.As(err, &failed):
				case getExitCode(err) == ExitCodeConfigError:
					fmt.Fprintf(out, "❌ %s\n", describeError(err))
				default:
					return err
				}
				fmt.Fprintln(out, "👀 Watching for changes...")
				return nil
			}

			if err := rerun(); err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case change := <-changes:
					logging.Info("Watch", "%s %s", change.Path, change.Operation)
					fmt.Fprintf(out, "\n🔄 %s changed, re-running %s\n", change.Path, args[0])
					if err := rerun(); err != nil {
						return err
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "Run only the named scenario")
	cmd.Flags().StringVar(&opts.tag, "tag", "", "Run only scenarios carrying this tag")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print every step and scenario result")
	return cmd
}
