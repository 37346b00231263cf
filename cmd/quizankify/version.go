package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kpauljoseph/quizankify/pkg/updater"
	"github.com/kpauljoseph/quizankify/pkg/version"
)

var checkUpdates bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of quizankify",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprint(out, version.GetDetailedVersionInfo())
		if !checkUpdates {
			return nil
		}

		info, err := updater.NewChecker(log).CheckForUpdates(cmd.Context())
		if err != nil {
			return fmt.Errorf("update check failed: %w", err)
		}
		if !info.IsAvailable {
			fmt.Fprintln(out, "You are running the latest version.")
			return nil
		}
		fmt.Fprintf(out, "Version %s is available: %s\n", info.LatestVersion, info.DownloadURL)
		if info.UpdateMessage != "" {
			fmt.Fprintln(out, info.UpdateMessage)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&checkUpdates, "check", false, "check for a newer release")
}
