package anki

import (
	"strings"

	"github.com/kpauljoseph/quizankify/pkg/utils"
)

const (
	ANKI_CONNECT_VERSION = 6

	DefaultTitleSuffix = " Flashcards | Quizlet"
	PackageExtension   = ".apkg"
)

// StripTitleSuffix trims title and removes suffix from its end when present.
func StripTitleSuffix(title, suffix string) string {
	title = strings.TrimSpace(title)
	if suffix == "" {
		return title
	}
	if stripped, ok := strings.CutSuffix(title, suffix); ok {
		return stripped
	}
	return title
}

// OutputFileName picks the package file name: override when given, otherwise
// the page title without its site suffix. The result always ends in .apkg.
func OutputFileName(title, override, suffix string) string {
	name := override
	if name == "" {
		name = utils.SanitizeFilename(StripTitleSuffix(title, suffix))
		if name == "" {
			name = "deck"
		}
	}
	return utils.EnsureExtension(name, PackageExtension)
}

// GetDeckName nests the deck under rootPrefix using Anki's "::" separator.
func GetDeckName(rootPrefix string, title string) string {
	var parts []string

	// Add root prefix if provided
	if rootPrefix = strings.TrimSpace(rootPrefix); rootPrefix != "" {
		parts = append(parts, rootPrefix)
	}

	parts = append(parts, strings.TrimSpace(title))

	// Join with Anki's separator
	return strings.Join(parts, "::")
}

func getDeckNameUnderscoreSeparatedForTag(deckName string) string {
	return strings.ReplaceAll(strings.TrimSpace(deckName), " ", "_")
}
