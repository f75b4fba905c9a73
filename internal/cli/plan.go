package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rommsync/rommsync/internal/domain"
	"github.com/rommsync/rommsync/internal/progress"
)

// NewPlanCommand creates the plan command
func NewPlanCommand() *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a sync would transfer",
		Long: `Scan the save directories and the RomM server and print the action
planned for every save, without changing anything on either side.`,
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

			svc, err := newService(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			plan := svc.CreatePlan(cmd.Context(), req, cfg.Settings())
			printPlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func printPlan(w io.Writer, plan *domain.SyncPlan) {
	for _, cmp := range plan.Comparisons {
		fmt.Fprintf(w, "%-15s %-11s %s", cmp.Action, cmp.Type(), cmp.Identifier())
		if cmp.Reason != "" {
			fmt.Fprintf(w, " (%s)", cmp.Reason)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\nDirection: %s\n", plan.Direction)
	fmt.Fprintf(w, "  Uploads:   %d (%s)\n", plan.UploadCount, progress.FormatBytes(plan.UploadBytes))
	fmt.Fprintf(w, "  Downloads: %d (%s)\n", plan.DownloadCount, progress.FormatBytes(plan.DownloadBytes))
	fmt.Fprintf(w, "  Skipped:   %d\n", plan.SkipCount)
}
