package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kpauljoseph/quizankify/pkg/apkg"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.apkg>",
	Short: "Show the decks and notes inside a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contents, err := apkg.Read(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if inspectJSON {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(contents)
		}

		for _, deck := range contents.Decks {
			fmt.Fprintf(out, "Deck %d: %s\n", deck.ID, deck.Name)
			if deck.Description != "" {
				fmt.Fprintf(out, "  %s\n", deck.Description)
			}
		}
		fmt.Fprintf(out, "%d notes, %d cards\n", len(contents.Notes), len(contents.Cards))
		for _, note := range contents.Notes {
			fmt.Fprintf(out, "%s\t[%s]\n", strings.Join(note.Fields, "\t"), strings.Join(note.Tags, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output in JSON format")
}
