package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the rommsync command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rommsync",
		Short: "Sync emulator saves with a RomM server",
		Long: `rommsync keeps the save files and save states on this device in sync
with a RomM server, uploading newer local saves and downloading newer
server saves.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(NewPlanCommand())
	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewHistoryCommand())
	rootCmd.AddCommand(NewUnlockCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
