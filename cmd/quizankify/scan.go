package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kpauljoseph/quizankify/internal/app"
)

var scanCmd = &cobra.Command{
	Use:   "scan <dir|glob>",
	Short: "Convert every saved set page matching a pattern",
	Long: `Convert saved set pages in bulk. The argument is a directory (searched
recursively), a single file or a glob such as "saved/**/*.html". Pages that
fail are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := app.New(cfg, log).ConvertPages(cmd.Context(), args[0])
		if report != nil {
			report.Print(log)
		}
		if err != nil {
			return err
		}
		if n := len(report.Failures); n > 0 {
			return fmt.Errorf("%d of %d pages failed", n, report.ProcessedPages)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
