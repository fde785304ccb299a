package cmd

import (
	"fnprobe/internal/scenario"
	"fnprobe/internal/shell"

	"github.com/spf13/cobra"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive prompt for invoking the function",
		Long: `Starts an interactive session against the resolved function.

Type a JSON object to send it as an event, or one of:
  run <scenario>   invoke a scenario from the scenarios file and validate it
  list             list the available scenarios
  format <f>       switch output between console, json, yaml and table
  exit             leave the shell`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			scenarios, err := scenario.LoadScenarios(cfg.ScenariosPath)
			if err != nil {
				return err
			}

			env, err := prepare(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return shell.New(env.engine, env.target, env.templates, scenarios, cmd.OutOrStdout()).Run(cmd.Context())
		},
	}
}
