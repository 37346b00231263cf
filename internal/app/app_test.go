package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/quizankify/internal/app"
	"github.com/kpauljoseph/quizankify/internal/config"
	"github.com/kpauljoseph/quizankify/internal/extract"
	"github.com/kpauljoseph/quizankify/internal/fetch"
	"github.com/kpauljoseph/quizankify/internal/pdf"
	"github.com/kpauljoseph/quizankify/pkg/apkg"
	"github.com/kpauljoseph/quizankify/pkg/logger"
	"github.com/kpauljoseph/quizankify/pkg/models"
)

const frenchTitle = "French Basics Flashcards | Quizlet"

func appTestLogger() *logger.Logger {
	return logger.New(logger.WithOutput(GinkgoWriter), logger.WithComponent("app-test"))
}

func setPage(title string, pairs [][2]string, hidden ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body>", title)
	b.WriteString(`<section class="SetPageTerms-termsList">`)
	for _, p := range pairs {
		fmt.Fprintf(&b, `<div aria-label="Term"><div class="SetPageTerm-smallSide"><span>%s</span></div><div class="SetPageTerm-largeSide"><span>%s</span></div></div>`, p[0], p[1])
	}
	b.WriteString(`</section>`)
	if len(hidden) > 0 {
		b.WriteString(`<div class="SetPage-terms"><div style="display:none">`)
		for _, h := range hidden {
			fmt.Fprintf(&b, "<span>%s</span>", h)
		}
		b.WriteString(`</div></div>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func writePage(dir, name, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
	return path
}

func listFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	Expect(err).NotTo(HaveOccurred())
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type failingExporter struct{}

func (failingExporter) Export(context.Context, models.FlashcardSet, string) (pdf.ExportStats, error) {
	return pdf.ExportStats{}, errors.New("disk full")
}

var _ = Describe("App", func() {
	var (
		ctx       context.Context
		cfg       *config.Config
		outputDir string
		pagesDir  string
	)

	BeforeEach(func() {
		ctx = context.Background()
		outputDir = GinkgoT().TempDir()
		pagesDir = GinkgoT().TempDir()
		cfg = config.Default()
		cfg.Output.Dir = outputDir
	})

	Context("converting a URL", func() {
		var (
			server    *httptest.Server
			body      string
			status    int
			userAgent string
		)

		BeforeEach(func() {
			status = http.StatusOK
			body = setPage(frenchTitle, [][2]string{{"Bonjour", "Hello"}, {"Merci", "Thanks"}})
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				userAgent = r.Header.Get("User-Agent")
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(body))
			}))
		})

		AfterEach(func() {
			server.Close()
		})

		It("should write a package named after the stripped title", func() {
			result, err := app.New(cfg, appTestLogger()).ConvertURL(ctx, server.URL, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(userAgent).To(Equal(fetch.DefaultUserAgent))
			Expect(result.OutputPath).To(Equal(filepath.Join(outputDir, "French Basics.apkg")))
			Expect(result.Cards).To(Equal(2))

			contents, err := apkg.Read(result.OutputPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(contents.Decks).To(HaveLen(1))
			Expect(contents.Decks[0].Name).To(Equal(frenchTitle))
			Expect(contents.Decks[0].Description).To(Equal("Exported from quizlet 'French Basics.apkg'"))
			Expect(contents.Notes).To(HaveLen(2))
			Expect(contents.Notes[0].Fields).To(Equal([]string{"Bonjour", "Hello"}))
			Expect(contents.Notes[1].Fields).To(Equal([]string{"Merci", "Thanks"}))
			Expect(contents.Cards).To(HaveLen(4))
		})

		It("should send the configured user agent", func() {
			cfg.Fetch.UserAgent = "study-bot"

			_, err := app.New(cfg, appTestLogger()).ConvertURL(ctx, server.URL, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(userAgent).To(Equal("study-bot"))
		})

		It("should fail in the fetch stage on an error status and write nothing", func() {
			status = http.StatusNotFound

			_, err := app.New(cfg, appTestLogger()).ConvertURL(ctx, server.URL, "")

			var stageErr *app.StageError
			Expect(errors.As(err, &stageErr)).To(BeTrue())
			Expect(stageErr.Stage).To(Equal(app.StageFetch))
			var statusErr *fetch.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(listFiles(outputDir)).To(BeEmpty())
		})

		It("should reject a path passed as a URL", func() {
			_, err := app.New(cfg, appTestLogger()).ConvertURL(ctx, "saved/page.html", "")
			Expect(err).To(MatchError(fetch.ErrUnsupportedScheme))
		})
	})

	Context("converting a saved page", func() {
		It("should read pairs from the hidden block when the list is empty", func() {
			path := writePage(pagesDir, "set.html", setPage("Verbs", nil, "aller", "to go", "venir", "to come"))

			result, err := app.New(cfg, appTestLogger()).ConvertFile(ctx, path, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Set.Source).To(Equal(path))
			Expect(result.Set.Pairs).To(Equal([]models.TermPair{
				{Term: "aller", Definition: "to go"},
				{Term: "venir", Definition: "to come"},
			}))
			Expect(result.OutputPath).To(Equal(filepath.Join(outputDir, "Verbs.apkg")))
		})

		It("should honor an explicit output name", func() {
			path := writePage(pagesDir, "set.html", setPage(frenchTitle, [][2]string{{"Bonjour", "Hello"}}))
			output := filepath.Join(outputDir, "custom")

			result, err := app.New(cfg, appTestLogger()).ConvertFile(ctx, path, output)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.OutputPath).To(Equal(output + ".apkg"))

			contents, err := apkg.Read(result.OutputPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(contents.Decks[0].Description).To(Equal("Exported from quizlet 'custom.apkg'"))
		})

		It("should write an empty deck for a page without pairs", func() {
			path := writePage(pagesDir, "set.html", setPage("Empty Set", nil))

			result, err := app.New(cfg, appTestLogger()).ConvertFile(ctx, path, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Cards).To(BeZero())
			Expect(result.OutputPath).To(BeARegularFile())
		})

		It("should decode a page using its meta charset", func() {
			page := "<html><head><meta charset=\"iso-8859-1\"><title>Caf\xe9</title></head><body>" +
				`<section class="SetPageTerms-termsList"></section></body></html>`
			path := writePage(pagesDir, "latin1.html", page)

			set, err := app.New(cfg, appTestLogger()).Extract(ctx, path)

			Expect(err).NotTo(HaveOccurred())
			Expect(set.Title).To(Equal("Café"))
		})

		It("should fail in the extract stage without the term list and write nothing", func() {
			path := writePage(pagesDir, "broken.html", "<html><head><title>x</title></head><body></body></html>")

			_, err := app.New(cfg, appTestLogger()).ConvertFile(ctx, path, "")

			Expect(err).To(MatchError(extract.ErrMissingSection))
			var stageErr *app.StageError
			Expect(errors.As(err, &stageErr)).To(BeTrue())
			Expect(stageErr.Stage).To(Equal(app.StageExtract))
			Expect(err.Error()).To(HavePrefix("extract "))
			Expect(listFiles(outputDir)).To(BeEmpty())
		})

		It("should fail in the read stage for a missing file", func() {
			_, err := app.New(cfg, appTestLogger()).ConvertFile(ctx, filepath.Join(pagesDir, "nope.html"), "")

			Expect(err).To(MatchError(os.ErrNotExist))
			var stageErr *app.StageError
			Expect(errors.As(err, &stageErr)).To(BeTrue())
			Expect(stageErr.Stage).To(Equal(app.StageRead))
		})
	})

	Context("with the study sheet enabled", func() {
		var path string

		BeforeEach(func() {
			path = writePage(pagesDir, "set.html", setPage(frenchTitle, [][2]string{{"Bonjour", "Hello"}}))
			cfg.Output.PDF = true
		})

		It("should write the sheet next to the package", func() {
			result, err := app.New(cfg, appTestLogger()).ConvertFile(ctx, path, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.SheetPath).To(Equal(filepath.Join(outputDir, "French Basics.pdf")))
			Expect(listFiles(outputDir)).To(ConsistOf("French Basics.apkg", "French Basics.pdf"))
		})

		It("should remove the package when the sheet fails", func() {
			_, err := app.New(cfg, appTestLogger(), app.WithSheetExporter(failingExporter{})).ConvertFile(ctx, path, "")

			var stageErr *app.StageError
			Expect(errors.As(err, &stageErr)).To(BeTrue())
			Expect(stageErr.Stage).To(Equal(app.StageSheet))
			Expect(listFiles(outputDir)).To(BeEmpty())
		})
	})

	Context("with AnkiConnect configured", func() {
		var (
			ankiServer *httptest.Server
			actions    []string
		)

		BeforeEach(func() {
			actions = nil
			ankiServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Action string `json:"action"`
				}
				_ = json.NewDecoder(r.Body).Decode(&req)
				actions = append(actions, req.Action)
				switch req.Action {
				case "addNotes":
					_, _ = w.Write([]byte(`{"result": [1, 2], "error": null}`))
				default:
					_, _ = w.Write([]byte(`{"result": 6, "error": null}`))
				}
			}))
			cfg.AnkiConnect.URL = ankiServer.URL
			cfg.Deck.RootDeck = "Languages"
		})

		AfterEach(func() {
			ankiServer.Close()
		})

		It("should push the notes instead of writing a file", func() {
			path := writePage(pagesDir, "set.html", setPage(frenchTitle, [][2]string{{"Bonjour", "Hello"}, {"Merci", "Thanks"}}))

			result, err := app.New(cfg, appTestLogger()).ConvertFile(ctx, path, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(actions).To(Equal([]string{"version", "createDeck", "addNotes"}))
			Expect(result.DeckName).To(Equal("Languages::" + frenchTitle))
			Expect(result.Added).To(Equal(2))
			Expect(result.OutputPath).To(BeEmpty())
			Expect(listFiles(outputDir)).To(BeEmpty())
		})
	})

	Context("converting a batch of saved pages", func() {
		It("should convert every page, keep going past failures and not overwrite duplicates", func() {
			writePage(pagesDir, "a.html", setPage(frenchTitle, [][2]string{{"Bonjour", "Hello"}}))
			writePage(pagesDir, "b.html", setPage(frenchTitle, [][2]string{{"Merci", "Thanks"}, {"Oui", "Yes"}}))
			writePage(pagesDir, filepath.Join("nested", "broken.html"), "<html><head><title>x</title></head></html>")
			writePage(pagesDir, "notes.txt", "ignored")

			report, err := app.New(cfg, appTestLogger()).ConvertPages(ctx, pagesDir)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.ProcessedPages).To(Equal(3))
			Expect(report.TotalCards).To(Equal(3))
			Expect(report.Failures).To(HaveLen(1))
			Expect(report.Failures).To(HaveKey(filepath.Join("nested", "broken.html")))
			Expect(listFiles(outputDir)).To(ConsistOf("French Basics.apkg", "French Basics (2).apkg"))
		})

		It("should fail when nothing matches", func() {
			_, err := app.New(cfg, appTestLogger()).ConvertPages(ctx, filepath.Join(pagesDir, "*.html"))

			var stageErr *app.StageError
			Expect(errors.As(err, &stageErr)).To(BeTrue())
			Expect(stageErr.Stage).To(Equal(app.StageScan))
		})
	})
})
