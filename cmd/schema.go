package cmd

import (
	"fmt"

	"fnprobe/internal/config"
	"fnprobe/internal/scenario"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema <scenarios|workflows>",
		Short:     "Print the JSON Schema of a definition file",
		Long:      `Prints the JSON Schema that scenario or workflow documents are validated against. Point an editor at it for completion.`,
		Example:   `  fnprobe schema scenarios > tests/scenarios.schema.json`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"scenarios", "workflows"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			switch args[0] {
			case "scenarios":
				data, err = scenario.GenerateScenarioSchema()
			case "workflows":
				data, err = scenario.GenerateWorkflowSchema()
			default:
				return config.NewConfigError("", fmt.Sprintf("unknown schema %q (expected scenarios or workflows)", args[0]), nil)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
