package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"fnprobe/internal/config"
	"fnprobe/internal/report"
	"fnprobe/internal/session"

	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var (
		width int
		raw   bool
	)
	cmd := &cobra.Command{
		Use:       "report <unit|integration>",
		Short:     "Render the last human readable report of a phase",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{session.PhaseUnit, session.PhaseIntegration},
		RunE: func(cmd *cobra.Command, args []string) error {
			phase := args[0]
			if phase != session.PhaseUnit && phase != session.PhaseIntegration {
				return config.NewConfigError("", fmt.Sprintf("unknown phase %q (expected unit or integration)", phase), nil)
			}
			cfg, err := loadSettings()
			if err != nil {
				return err
			}

			path := filepath.Join(cfg.ResultsDir, phase, report.HumanFileName)
			if raw {
				return printFile(cmd, path)
			}
			rendered, err := report.RenderMarkdown(path, width)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 100, "Wrap the rendered report at this width")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the Markdown source")
	return cmd
}

func printFile(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
