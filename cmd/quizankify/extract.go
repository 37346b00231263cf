package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kpauljoseph/quizankify/internal/app"
)

var extractJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract <Quizlet-Url|page.html>",
	Short: "Print the terms found on a set page",
	Long:  `Extract the title and term pairs of a set page without writing a package. Prints tab separated pairs by default, or a JSON object with --json.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := app.New(cfg, log).Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if extractJSON {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(set)
		}

		fmt.Fprintf(out, "# %s (%d terms)\n", set.Title, set.Len())
		for _, pair := range set.Pairs {
			fmt.Fprintf(out, "%s\t%s\n", pair.Term, pair.Definition)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "Output in JSON format")
}
