package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rommsync/rommsync/internal/lock"
)

// NewUnlockCommand creates the unlock command
func NewUnlockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Remove the sync lock left by a crashed run",
		Long: `Remove the lock file that keeps two syncs from running at once.
Only use this when the process holding the lock is known to be gone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			fileLock, err := lock.NewFileLock(cfg.ResolvedDataDir())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if holder, err := fileLock.GetHolder(); err == nil {
				fmt.Fprintf(out, "Removing lock held by PID %d on %s since %s (%s)\n",
					holder.PID, holder.Hostname, holder.StartTime.Format(time.RFC3339), holder.Operation)
			}

			if err := fileLock.ForceRelease(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Lock released: %s\n", fileLock.Path())
			return nil
		},
	}

	return cmd
}
