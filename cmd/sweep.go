package cmd

import (
	"fmt"

	"fnprobe/internal/awsclient"
	"fnprobe/internal/clock"
	"fnprobe/internal/resources"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete resources left behind by a session",
		Long: `Deletes every bucket tagged with the given session's run id. Use it
after a run reported orphaned resources.`,
		Example: `  fnprobe sweep --session 1234-abcdef0`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			clients, err := awsclient.Load(cmd.Context(), cfg.Region)
			if err != nil {
				return err
			}

			manager := resources.NewManager(clients.S3, sessionID, cfg.Resources.BucketPrefix, clients.Region, clock.RealClock{})
			deleted, orphans, err := manager.Sweep(cmd.Context(), sessionID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range deleted {
				fmt.Fprintf(out, "🗑️  %s\n", name)
			}
			for _, o := range orphans {
				fmt.Fprintf(out, "❌ %s: %s\n", o.ID, o.Error)
			}
			if len(orphans) > 0 {
				return fmt.Errorf("%d resource(s) could not be deleted", len(orphans))
			}
			fmt.Fprintf(out, "✅ Swept %d resource(s) of session %s\n", len(deleted), sessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Run id of the session to clean up")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
