// Package app wires the conversion pipeline: fetch or read a set page,
// extract its pairs, assemble a deck and write it out.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/kpauljoseph/quizankify/internal/anki"
	"github.com/kpauljoseph/quizankify/internal/config"
	"github.com/kpauljoseph/quizankify/internal/extract"
	"github.com/kpauljoseph/quizankify/internal/fetch"
	"github.com/kpauljoseph/quizankify/internal/pdf"
	"github.com/kpauljoseph/quizankify/internal/scanner"
	"github.com/kpauljoseph/quizankify/pkg/logger"
	"github.com/kpauljoseph/quizankify/pkg/models"
)

type Stage string

const (
	StageFetch    Stage = "fetch"
	StageRead     Stage = "read"
	StageExtract  Stage = "extract"
	StageAssemble Stage = "assemble"
	StageWrite    Stage = "write"
	StageSheet    Stage = "pdf"
	StagePush     Stage = "anki-connect"
	StageScan     Stage = "scan"
)

// StageError names the pipeline stage a conversion failed in.
type StageError struct {
	Stage  Stage
	Source string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Source, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result describes one finished conversion.
type Result struct {
	Set models.FlashcardSet
	// OutputPath is the written package, empty when pushed to AnkiConnect.
	OutputPath string
	SheetPath  string
	DeckName   string
	Cards      int
	// Added counts notes AnkiConnect accepted.
	Added int
}

type App struct {
	cfg       *config.Config
	logger    *logger.Logger
	fetcher   *fetch.Client
	assembler *anki.Assembler
	scanner   *scanner.DirectoryScanner
	sheets    pdf.Exporter
	connect   *anki.ConnectClient
}

type Option func(*App)

func WithFetchClient(c *fetch.Client) Option {
	return func(a *App) {
		a.fetcher = c
	}
}

func WithSheetExporter(e pdf.Exporter) Option {
	return func(a *App) {
		a.sheets = e
	}
}

func WithAssembler(asm *anki.Assembler) Option {
	return func(a *App) {
		a.assembler = asm
	}
}

func New(cfg *config.Config, log *logger.Logger, opts ...Option) *App {
	a := &App{
		cfg:     cfg,
		logger:  log,
		fetcher: fetch.NewClient(cfg.HTTPHeaders(), cfg.Fetch.Timeout),
		assembler: anki.NewAssembler(log,
			anki.WithDescription(cfg.Deck.Description),
			anki.WithRootDeck(cfg.Deck.RootDeck),
			anki.WithTitleSuffix(cfg.Deck.TitleSuffix),
		),
		scanner: scanner.New(log),
	}
	if cfg.Output.PDF {
		a.sheets = pdf.NewSheetExporter(log)
	}
	if cfg.AnkiConnect.URL != "" {
		a.connect = anki.NewConnectClient(cfg.AnkiConnect.URL, log)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Extract loads source, a URL or a saved page, and returns its flashcard set.
func (a *App) Extract(ctx context.Context, source string) (models.FlashcardSet, error) {
	var (
		body  []byte
		err   error
		stage = StageRead
	)
	if fetch.LooksLikeURL(source) {
		stage = StageFetch
		a.logger.Info("Fetching %s", source)
		body, err = a.fetcher.Get(ctx, source)
	} else {
		a.logger.Debug("Reading %s", source)
		body, err = readPage(source)
	}
	if err != nil {
		return models.FlashcardSet{}, &StageError{Stage: stage, Source: source, Err: err}
	}

	page, err := extract.FromHTML(body)
	if err != nil {
		return models.FlashcardSet{}, &StageError{Stage: StageExtract, Source: source, Err: err}
	}

	a.logger.Debug("Extracted %d pairs titled %q", len(page.Pairs), page.Title)
	return models.FlashcardSet{
		Title:  page.Title,
		Source: source,
		Pairs:  page.Pairs,
	}, nil
}

// Convert dispatches on whether source is a URL or a local file.
func (a *App) Convert(ctx context.Context, source, output string) (*Result, error) {
	if fetch.LooksLikeURL(source) {
		return a.ConvertURL(ctx, source, output)
	}
	return a.ConvertFile(ctx, source, output)
}

// ConvertURL fetches a set page and converts it. output overrides the
// package path; empty derives it from the page title.
func (a *App) ConvertURL(ctx context.Context, rawURL, output string) (*Result, error) {
	if !fetch.LooksLikeURL(rawURL) {
		return nil, &StageError{Stage: StageFetch, Source: rawURL, Err: fetch.ErrUnsupportedScheme}
	}
	set, err := a.Extract(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return a.ConvertSet(ctx, set, output)
}

// ConvertFile converts a saved set page.
func (a *App) ConvertFile(ctx context.Context, path, output string) (*Result, error) {
	set, err := a.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	return a.ConvertSet(ctx, set, output)
}

// ConvertSet assembles set and writes the package, the optional study sheet,
// or pushes to AnkiConnect. A failing stage leaves no output behind.
func (a *App) ConvertSet(ctx context.Context, set models.FlashcardSet, output string) (*Result, error) {
	path := a.outputPath(set.Title, output)
	name := filepath.Base(path)

	if len(set.Pairs) == 0 {
		a.logger.Info("No flashcards found in %s, the deck will be empty", set.Source)
	}

	deck, err := a.assembler.BuildDeck(set, name)
	if err != nil {
		return nil, &StageError{Stage: StageAssemble, Source: set.Source, Err: err}
	}
	result := &Result{Set: set, DeckName: deck.Name, Cards: len(deck.Notes)}

	if a.connect != nil {
		added, err := a.push(ctx, deck.Name, set.Pairs)
		if err != nil {
			return nil, &StageError{Stage: StagePush, Source: set.Source, Err: err}
		}
		result.Added = added
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, &StageError{Stage: StageWrite, Source: set.Source, Err: err}
		}
		pkg := a.assembler.Package(deck)
		if err := pkg.WriteFile(path); err != nil {
			return nil, &StageError{Stage: StageWrite, Source: set.Source, Err: err}
		}
		result.OutputPath = path
		a.logger.Info("Wrote %d cards to %s", result.Cards, path)
	}

	if a.sheets != nil {
		sheetPath := strings.TrimSuffix(path, anki.PackageExtension) + ".pdf"
		if _, err := a.sheets.Export(ctx, set, sheetPath); err != nil {
			if result.OutputPath != "" {
				os.Remove(result.OutputPath)
			}
			return nil, &StageError{Stage: StageSheet, Source: set.Source, Err: err}
		}
		result.SheetPath = sheetPath
		a.logger.Info("Wrote study sheet %s", sheetPath)
	}

	return result, nil
}

// ConvertPages converts every saved page matched by pattern. A failed page
// is recorded in the report and the batch carries on.
func (a *App) ConvertPages(ctx context.Context, pattern string) (*anki.ProcessingReport, error) {
	pages, err := a.scanner.FindPages(ctx, pattern)
	if err != nil {
		return nil, &StageError{Stage: StageScan, Source: pattern, Err: err}
	}
	a.logger.Info("Found %d pages to convert", len(pages))

	report := anki.NewProcessingReport()
	used := make(map[string]int)

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			report.Finish()
			return report, err
		}

		set, err := a.Extract(ctx, page.AbsolutePath)
		if err != nil {
			a.logger.Error(err, "Skipping %s", page.RelativePath)
			report.RecordFailure(page.RelativePath, err)
			continue
		}

		output := a.uniqueOutput(set.Title, used)
		result, err := a.ConvertSet(ctx, set, output)
		if err != nil {
			a.logger.Error(err, "Skipping %s", page.RelativePath)
			report.RecordFailure(page.RelativePath, err)
			continue
		}

		written := result.OutputPath
		if written == "" {
			written = result.DeckName
		}
		report.RecordSuccess(written, result.Cards)
	}

	report.Finish()
	return report, nil
}

func (a *App) push(ctx context.Context, deckName string, pairs []models.TermPair) (int, error) {
	if err := a.connect.CheckConnection(ctx); err != nil {
		return 0, err
	}
	if err := a.connect.CreateDeck(ctx, deckName); err != nil {
		return 0, fmt.Errorf("failed to create deck %s: %w", deckName, err)
	}
	added, err := a.connect.AddNotes(ctx, deckName, pairs)
	if err != nil {
		return 0, err
	}
	a.logger.Info("Added %d of %d notes to %s", added, len(pairs), deckName)
	return added, nil
}

// outputPath resolves the package path. An explicit output is used as given
// (with .apkg appended); otherwise the stripped title names a file in the
// configured output directory.
func (a *App) outputPath(title, output string) string {
	if output != "" {
		return anki.OutputFileName(title, output, a.cfg.Deck.TitleSuffix)
	}
	return filepath.Join(a.cfg.Output.Dir, anki.OutputFileName(title, "", a.cfg.Deck.TitleSuffix))
}

// uniqueOutput keeps batch conversions of equally titled pages from
// overwriting each other.
func (a *App) uniqueOutput(title string, used map[string]int) string {
	path := a.outputPath(title, "")
	used[path]++
	if n := used[path]; n > 1 {
		base := strings.TrimSuffix(path, anki.PackageExtension)
		return fmt.Sprintf("%s (%d)%s", base, n, anki.PackageExtension)
	}
	return path
}

// readPage loads a saved page, decoding it to UTF-8 using its meta charset.
func readPage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := charset.NewReader(f, "text/html")
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return io.ReadAll(r)
}
