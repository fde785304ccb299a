package cmd

import (
	"fmt"
	"os"

	"fnprobe/internal/config"
	"fnprobe/internal/formatting"
	"fnprobe/internal/history"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		runID  string
		phase  string
		output string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previous runs recorded in the results directory",
		Long: `Lists the phase runs recorded in the history database, newest first.
With --run and --phase the individual test entries of one run are shown.`,
		Example: `  fnprobe history --limit 5
  fnprobe history --run 1234-abcdef0 --phase unit --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, ok := formatting.ParseFormat(output)
			if !ok {
				return config.NewConfigError("", fmt.Sprintf("unsupported output format %q", output), nil)
			}
			if (runID == "") != (phase == "") {
				return config.NewConfigError("", "--run and --phase must be used together", nil)
			}

			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			path := historyPath(cfg)
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("no history at %s: %w", path, err)
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			formatter := formatting.NewFactory().CreateFormatter(formatting.Options{Format: format})
			out := cmd.OutOrStdout()
			if runID != "" {
				tests, err := store.Tests(cmd.Context(), runID, phase)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, formatter.FormatTests(tests))
				return nil
			}

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatter.FormatHistory(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the tests of this run id")
	cmd.Flags().StringVar(&phase, "phase", "", "Phase of the run to show")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: console, json, yaml, table")
	return cmd
}
