package pdf

import (
	"context"
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/kpauljoseph/quizankify/pkg/logger"
	"github.com/kpauljoseph/quizankify/pkg/models"
)

const (
	FontFamily = "Helvetica"

	margin     = 15.0
	lineHeight = 5.5
	cellPad    = 1.5
)

// SheetExporter renders a set as a printable two column term/definition table.
type SheetExporter struct {
	logger *logger.Logger
}

func NewSheetExporter(logger *logger.Logger) *SheetExporter {
	// pdfcpu otherwise creates a config directory under the user's home.
	api.DisableConfigDir()
	return &SheetExporter{logger: logger}
}

// Export writes set to path as an A4 PDF and validates the result. On any
// failure nothing is left at path.
func (e *SheetExporter) Export(ctx context.Context, set models.FlashcardSet, path string) (ExportStats, error) {
	e.logger.Debug("Rendering study sheet for %q to %s", set.Title, path)

	doc := gofpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle(set.Title, true)
	doc.SetCreator("quizankify", false)
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(false, margin)
	doc.SetFooterFunc(func() {
		doc.SetY(-margin)
		doc.SetFont(FontFamily, "I", 8)
		doc.CellFormat(0, 10, fmt.Sprintf("%d", doc.PageNo()), "", 0, "C", false, 0, "")
	})

	pageWidth, pageHeight := doc.GetPageSize()
	colWidth := (pageWidth - 2*margin) / 2

	header := func() {
		doc.SetFont(FontFamily, "B", 10)
		doc.SetFillColor(230, 230, 230)
		doc.CellFormat(colWidth, 7, "Term", "1", 0, "L", true, 0, "")
		doc.CellFormat(colWidth, 7, "Definition", "1", 1, "L", true, 0, "")
		doc.SetFont(FontFamily, "", 10)
	}

	doc.AddPage()
	doc.SetFont(FontFamily, "B", 14)
	doc.MultiCell(0, 8, tr(set.Title), "", "L", false)
	doc.Ln(3)
	header()

	for i, pair := range set.Pairs {
		select {
		case <-ctx.Done():
			return ExportStats{}, ctx.Err()
		default:
		}

		term := tr(pair.Term)
		definition := tr(pair.Definition)
		lines := max(
			len(doc.SplitLines([]byte(term), colWidth-2*cellPad)),
			len(doc.SplitLines([]byte(definition), colWidth-2*cellPad)),
			1,
		)
		rowHeight := float64(lines)*lineHeight + 2*cellPad

		if doc.GetY()+rowHeight > pageHeight-2*margin {
			doc.AddPage()
			header()
		}

		x, y := doc.GetXY()
		doc.Rect(x, y, colWidth, rowHeight, "D")
		doc.Rect(x+colWidth, y, colWidth, rowHeight, "D")

		doc.SetXY(x+cellPad, y+cellPad)
		doc.MultiCell(colWidth-2*cellPad, lineHeight, term, "", "L", false)
		doc.SetXY(x+colWidth+cellPad, y+cellPad)
		doc.MultiCell(colWidth-2*cellPad, lineHeight, definition, "", "L", false)

		doc.SetXY(x, y+rowHeight)
		e.logger.Trace("Row %d at y=%.1f height %.1f", i, y, rowHeight)
	}

	if err := doc.OutputFileAndClose(path); err != nil {
		os.Remove(path)
		return ExportStats{}, fmt.Errorf("failed to write PDF: %w", err)
	}

	stats, err := inspect(path)
	if err != nil {
		os.Remove(path)
		return ExportStats{}, err
	}
	stats.Pairs = len(set.Pairs)

	e.logger.Debug("Wrote %d pages (%.0fx%.0f pt) to %s", stats.Pages, stats.Width, stats.Height, path)
	return stats, nil
}

func inspect(path string) (ExportStats, error) {
	if err := api.ValidateFile(path, nil); err != nil {
		return ExportStats{}, fmt.Errorf("generated PDF is invalid: %w", err)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return ExportStats{}, fmt.Errorf("failed to count pages: %w", err)
	}

	dims, err := api.PageDimsFile(path)
	if err != nil {
		return ExportStats{}, fmt.Errorf("failed to get page dimensions: %w", err)
	}

	stats := ExportStats{Path: path, Pages: pages}
	if len(dims) > 0 {
		stats.Width = dims[0].Width
		stats.Height = dims[0].Height
	}
	return stats, nil
}
