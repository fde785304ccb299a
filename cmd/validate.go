package cmd

import (
	"fmt"

	"fnprobe/internal/scenario"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the harness configuration and test definitions",
		Long: `Loads the harness file, the scenarios file and the workflows file and
checks them against their schemas without contacting AWS. Missing
definition files are created with a default health check.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			scenarios, err := scenario.LoadScenarios(cfg.ScenariosPath)
			if err != nil {
				return err
			}
			workflows, err := scenario.LoadWorkflows(cfg.WorkflowsPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ %s: %d scenario(s)\n", cfg.ScenariosPath, len(scenarios))
			fmt.Fprintf(out, "✅ %s: %d workflow(s)\n", cfg.WorkflowsPath, len(workflows))
			return nil
		},
	}
}
