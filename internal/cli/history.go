package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rommsync/rommsync/internal/domain"
	"github.com/rommsync/rommsync/internal/state"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	var (
		limit     int
		direction string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			history, err := state.NewManager(cfg.ResolvedDataDir())
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer history.Close()

			var records []state.RunRecord
			if direction != "" {
				d, err := domain.ParseSyncDirection(direction)
				if err != nil {
					return err
				}
				records, err = history.GetHistoryByDirection(d, limit)
				if err != nil {
					return err
				}
			} else {
				records, err = history.GetHistory(limit)
				if err != nil {
					return err
				}
			}

			printHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVarP(&direction, "direction", "d", "", "only show runs in this direction")

	return cmd
}

func printHistory(w io.Writer, records []state.RunRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No sync runs recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tDIRECTION\tSTATUS\tUP\tDOWN\tSKIPPED\tERRORS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.StartTime.Local().Format(time.DateTime),
			r.Direction,
			r.Status,
			r.Uploaded,
			r.Downloaded,
			r.Skipped,
			len(r.Errors),
		)
	}
	tw.Flush()
}
