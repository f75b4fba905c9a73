package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rommsync/rommsync/internal/domain"
	"github.com/rommsync/rommsync/internal/lock"
	"github.com/rommsync/rommsync/internal/logger"
	"github.com/rommsync/rommsync/internal/progress"
	"github.com/rommsync/rommsync/internal/state"
)

// NewSyncCommand creates the sync command
func NewSyncCommand() *cobra.Command {
	var (
		flags  requestFlags
		dryRun bool
		wait   bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize saves with the RomM server",
		Long: `Upload local saves that are newer than the server copy, download server
saves that are newer than the local copy, and trim old server saves
to the configured history limits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			req, err := buildRequest(cmd, cfg, &flags)
			if err != nil {
				return err
			}
			req.DryRun = dryRun

			ctx := cmd.Context()
			dataDir := cfg.ResolvedDataDir()

			fileLock, err := lock.NewFileLock(dataDir)
			if err != nil {
				return err
			}
			if wait {
				err = fileLock.Wait(ctx, "sync", lock.DefaultPollInterval)
			} else {
				err = fileLock.Acquire("sync")
			}
			if err != nil {
				return err
			}
			defer func() {
				if err := fileLock.Release(); err != nil {
					logger.Get().Warn("failed to release lock", "error", err)
				}
			}()

			svc, err := newService(ctx, cfg)
			if err != nil {
				return err
			}

			history, err := state.NewManager(dataDir)
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer history.Close()
			svc.SetHistory(history)

			bar := newProgressBar(cmd.ErrOrStderr(), globalFlags.Quiet)
			result := svc.ExecuteSync(ctx, req, cfg.Settings(), bar.Update)
			bar.Wait()

			printResult(cmd.OutOrStdout(), result, dryRun)

			if !result.Success {
				return fmt.Errorf("sync %s with %d error(s)", result.Status(), result.ErrorCount())
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan the sync without transferring anything")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for a running sync to finish instead of failing")

	return cmd
}

func printResult(w io.Writer, result domain.SyncResult, dryRun bool) {
	if dryRun {
		fmt.Fprintln(w, "Dry run: nothing was transferred")
	}

	fmt.Fprintf(w, "Run %s: %s in %s\n", result.RunID, result.Status(), progress.FormatDuration(result.Duration))
	fmt.Fprintf(w, "  Uploaded:   %d\n", result.Uploaded)
	fmt.Fprintf(w, "  Downloaded: %d\n", result.Downloaded)
	fmt.Fprintf(w, "  Skipped:    %d\n", result.Skipped)

	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "  Errors:     %d\n", len(result.Errors))
		for _, msg := range result.Errors {
			fmt.Fprintf(w, "    - %s\n", msg)
		}
	}
}
