package anki

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kpauljoseph/quizankify/pkg/apkg"
	"github.com/kpauljoseph/quizankify/pkg/logger"
	"github.com/kpauljoseph/quizankify/pkg/models"
)

const (
	QuizankifyTag = "quizankify"

	DefaultDescription = "Exported from quizlet '{output}'"
)

var ErrInvalidCard = errors.New("invalid card")

type Assembler struct {
	ids         *IDGenerator
	model       *apkg.Model
	description string
	rootDeck    string
	titleSuffix string
	logger      *logger.Logger
}

type AssemblerOption func(*Assembler)

// WithDescription sets the deck description template. "{output}" is replaced
// by the package file name and "{source}" by the page the set came from.
func WithDescription(template string) AssemblerOption {
	return func(a *Assembler) {
		if template != "" {
			a.description = template
		}
	}
}

func WithRootDeck(root string) AssemblerOption {
	return func(a *Assembler) {
		a.rootDeck = root
	}
}

// WithTitleSuffix sets the site suffix removed from titles when deriving tags.
func WithTitleSuffix(suffix string) AssemblerOption {
	return func(a *Assembler) {
		a.titleSuffix = suffix
	}
}

func WithIDGenerator(ids *IDGenerator) AssemblerOption {
	return func(a *Assembler) {
		a.ids = ids
	}
}

func NewAssembler(logger *logger.Logger, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		ids:         NewIDGenerator(nil),
		model:       apkg.BasicAndReversedModel(),
		description: DefaultDescription,
		titleSuffix: DefaultTitleSuffix,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildDeck maps every pair, in order, to a reversible two-field note.
func (a *Assembler) BuildDeck(set models.FlashcardSet, outputName string) (*apkg.Deck, error) {
	deckName := GetDeckName(a.rootDeck, set.Title)
	deck := apkg.NewDeck(a.ids.Next(), deckName, a.describe(set, outputName))
	tag := getDeckNameUnderscoreSeparatedForTag(StripTitleSuffix(set.Title, a.titleSuffix))

	a.logger.Debug("Building deck %q (id %d) with %d pairs", deckName, deck.ID, len(set.Pairs))

	for i, pair := range set.Pairs {
		note, err := apkg.NewNote(a.model, pair.Term, pair.Definition)
		if err != nil {
			return nil, fmt.Errorf("%w: pair %d: %w", ErrInvalidCard, i, err)
		}
		note.WithTags(QuizankifyTag, tag)
		deck.AddNote(note)
		a.logger.Trace("Note %d: %q -> %q", i, pair.Term, pair.Definition)
	}

	return deck, nil
}

// Build returns a package holding the single deck for set.
func (a *Assembler) Build(set models.FlashcardSet, outputName string) (*apkg.Package, error) {
	deck, err := a.BuildDeck(set, outputName)
	if err != nil {
		return nil, err
	}
	return a.Package(deck), nil
}

// Package wraps a deck built by BuildDeck into a writable package.
func (a *Assembler) Package(deck *apkg.Deck) *apkg.Package {
	return apkg.NewPackage([]*apkg.Deck{deck})
}

func (a *Assembler) describe(set models.FlashcardSet, outputName string) string {
	return strings.NewReplacer(
		"{output}", outputName,
		"{source}", set.Source,
	).Replace(a.description)
}
