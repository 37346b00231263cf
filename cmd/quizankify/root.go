package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kpauljoseph/quizankify/internal/app"
	"github.com/kpauljoseph/quizankify/internal/config"
	"github.com/kpauljoseph/quizankify/pkg/logger"
	"github.com/kpauljoseph/quizankify/pkg/version"
)

var (
	configPath     string
	verbose        bool
	debug          bool
	jsonLogs       bool
	outputDir      string
	rootDeck       string
	ankiConnectURL string
	writePDF       bool

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quizankify <Quizlet-Url|page.html> [Output-File.apkg]",
	Short: "Convert a Quizlet set page into an Anki deck",
	Long: `Quizankify downloads a Quizlet set page (or reads a saved copy), extracts
its terms and definitions and writes them as an Anki package. Every term
becomes a note with a forward and a reverse card.`,
	Version:       version.Version,
	Args:          cobra.RangeArgs(1, 2),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var output string
		if len(args) == 2 {
			output = args[1]
		}

		result, err := app.New(cfg, log).Convert(cmd.Context(), args[0], output)
		if err != nil {
			return err
		}

		if result.OutputPath != "" {
			fmt.Fprintln(cmd.OutOrStdout(), result.OutputPath)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// setup loads the configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Log.Verbose = verbose
	}
	if flags.Changed("debug") {
		cfg.Log.Debug = debug
	}
	if flags.Changed("json-logs") {
		cfg.Log.JSON = jsonLogs
	}
	if flags.Changed("output-dir") {
		cfg.Output.Dir = outputDir
	}
	if flags.Changed("root-deck") {
		cfg.Deck.RootDeck = rootDeck
	}
	if flags.Changed("anki-connect") {
		cfg.AnkiConnect.URL = ankiConnectURL
	}
	if flags.Changed("pdf") {
		cfg.Output.PDF = writePDF
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: validate: %w", err)
	}

	opts := []logger.Option{logger.WithComponent("quizankify")}
	if cfg.Log.JSON {
		opts = append(opts, logger.WithJSON())
	}
	log = logger.New(opts...)
	log.SetVerbose(cfg.Log.Verbose)
	if cfg.Log.Debug {
		log.SetLevel(logger.LevelTrace)
	}

	log.Debug("Verbose logging enabled")
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to config file (default $"+config.PathEnv+")")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	pf.BoolVar(&debug, "debug", false, "enable debug mode with trace logging")
	pf.BoolVar(&jsonLogs, "json-logs", false, "log one JSON object per line")
	pf.StringVar(&outputDir, "output-dir", ".", "directory for packages named after the set title")
	pf.StringVar(&rootDeck, "root-deck", "", "parent deck to nest decks under (optional)")
	pf.StringVar(&ankiConnectURL, "anki-connect", "", "push notes to a running Anki via AnkiConnect at this URL instead of writing a file")
	pf.BoolVar(&writePDF, "pdf", false, "also write a printable study sheet next to each package")
}
