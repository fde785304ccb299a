package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"fnprobe/internal/config"
	"fnprobe/internal/formatting"

	"github.com/spf13/cobra"
)

func newInvokeCmd() *cobra.Command {
	var (
		payload string
		file    string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Send a single event to the function and print the outcome",
		Long: `Invokes the resolved function once with the given event. Placeholders
such as ${run_id}, ${uuid} and ${timestamp} are expanded first.

The event is read from --payload, from --file, or defaults to {}.`,
		Example: `  fnprobe invoke --payload '{"action":"ping"}'
  fnprobe invoke --file event.json --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, ok := formatting.ParseFormat(output)
			if !ok {
				return config.NewConfigError("", fmt.Sprintf("unsupported output format %q", output), nil)
			}
			event, err := readEvent(payload, file)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			env, err := prepare(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			expanded, err := env.templates.NewScope().Expand(event)
			if err != nil {
				return config.NewConfigError(file, "template error", err)
			}
			outcome := env.engine.Invoke(cmd.Context(), env.target, expanded)

			formatter := formatting.NewFactory().CreateFormatter(formatting.Options{Format: format})
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatOutcome(outcome))
			if outcome.Failed() {
				return &TestsFailedError{Failed: []string{"invoke"}}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&payload, "payload", "p", "", "Event as inline JSON")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the event from a JSON file")
	cmd.Flags().StringVarP(&output, "output", "o", "console", "Output format: console, json, yaml, table")
	cmd.MarkFlagsMutuallyExclusive("payload", "file")
	return cmd
}

// readEvent decodes the event from an inline string or a file.
func readEvent(inline, file string) (map[string]interface{}, error) {
	data := []byte(inline)
	source := "--payload"
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, config.NewConfigError(file, "failed to read event", err)
		}
		data = b
		source = file
	}
	if len(data) == 0 {
		return map[string]interface{}{}, nil
	}

	var event map[string]interface{}
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, config.NewConfigError(source, "event must be a JSON object", err)
	}
	return event, nil
}
