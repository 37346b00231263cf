package pdf

import (
	"context"

	"github.com/kpauljoseph/quizankify/pkg/models"
)

// ExportStats describes a written study sheet.
type ExportStats struct {
	Path   string
	Pairs  int
	Pages  int
	Width  float64
	Height float64
}

type Exporter interface {
	Export(ctx context.Context, set models.FlashcardSet, path string) (ExportStats, error)
}
