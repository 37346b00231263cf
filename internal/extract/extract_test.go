package extract_test

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/quizankify/internal/extract"
	"github.com/kpauljoseph/quizankify/pkg/models"
)

func termEntry(term, definition string) string {
	return fmt.Sprintf(`
      <div aria-label="Term" class="SetPageTerm">
        <div class="SetPageTerm-content">
          <div class="SetPageTerm-smallSide"><span class="TermText">%s</span></div>
          <div class="SetPageTerm-largeSide"><span class="TermText">%s</span></div>
        </div>
      </div>`, term, definition)
}

func hiddenBlock(texts ...string) string {
	var b strings.Builder
	b.WriteString(`<div class="SetPage-terms"><div style="display:none">`)
	for _, t := range texts {
		fmt.Fprintf(&b, "<span>%s</span>", t)
	}
	b.WriteString(`</div></div>`)
	return b.String()
}

func setPage(title string, entries []string, extra string) []byte {
	var head string
	if title != "" {
		head = "<title>" + title + "</title>"
	}
	return []byte(fmt.Sprintf(`<!doctype html>
<html>
  <head>%s</head>
  <body>
    <section class="SetPageTerms-termsList">%s
    </section>
    %s
  </body>
</html>`, head, strings.Join(entries, ""), extra))
}

var _ = Describe("Extractor", func() {
	Context("with only the visible term list", func() {
		It("should return pairs in source order with the page title", func() {
			page, err := extract.FromHTML(setPage(
				"French Basics Flashcards | Quizlet",
				[]string{termEntry("Bonjour", "Hello"), termEntry("Merci", "Thanks")},
				"",
			))

			Expect(err).NotTo(HaveOccurred())
			Expect(page.Title).To(Equal("French Basics Flashcards | Quizlet"))
			Expect(page.Pairs).To(Equal([]models.TermPair{
				{Term: "Bonjour", Definition: "Hello"},
				{Term: "Merci", Definition: "Thanks"},
			}))
		})

		It("should skip whitespace-only text nodes and trim the text", func() {
			entry := `<div aria-label="Term">
			  <div class="SetPageTerm-smallSide">
			    <span>  chat  </span>
			  </div>
			  <div class="SetPageTerm-largeSide">cat<br>feline</div>
			</div>`
			page, err := extract.FromHTML(setPage("Animals", []string{entry}, ""))

			Expect(err).NotTo(HaveOccurred())
			Expect(page.Pairs).To(Equal([]models.TermPair{{Term: "chat", Definition: "cat"}}))
		})

		It("should decode entities in the text", func() {
			page, err := extract.FromHTML(setPage("Ops", []string{termEntry("a &lt; b", "less &amp; than")}, ""))

			Expect(err).NotTo(HaveOccurred())
			Expect(page.Pairs[0]).To(Equal(models.TermPair{Term: "a < b", Definition: "less & than"}))
		})

		It("should ignore term entries outside the term list", func() {
			outside := `<div class="Other">` + termEntry("Stray", "Entry") + `</div>`
			page, err := extract.FromHTML(setPage("Set", []string{termEntry("A", "1")}, outside))

			Expect(err).NotTo(HaveOccurred())
			Expect(page.Pairs).To(HaveLen(1))
		})
	})

	Context("with only the hidden data block", func() {
		It("should pair consecutive spans", func() {
			page, err := extract.FromHTML(setPage("Letters", nil, hiddenBlock("A", "1", "B", "2")))

			Expect(err).NotTo(HaveOccurred())
			Expect(page.Pairs).To(Equal([]models.TermPair{
				{Term: "A", Definition: "1"},
				{Term: "B", Definition: "2"},
			}))
		})

		It("should drop an odd trailing span", func() {
			odd, err := extract.FromHTML(setPage("Letters", nil, hiddenBlock("A", "1", "B", "2", "C")))
			Expect(err).NotTo(HaveOccurred())

			even, err := extract.FromHTML(setPage("Letters", nil, hiddenBlock("A", "1", "B", "2")))
			Expect(err).NotTo(HaveOccurred())

			Expect(odd.Pairs).To(Equal(even.Pairs))
			Expect(odd.Pairs).To(HaveLen(2))
		})

		It("should fail when a paired span has no text", func() {
			_, err := extract.FromHTML(setPage("Letters", nil, hiddenBlock("A", "", "B", "2")))
			Expect(err).To(MatchError(extract.ErrEmptyFieldText))
		})

		It("should only read spans from a hidden block directly under the terms container", func() {
			visible := `<div class="SetPage-terms"><div style="display:block"><span>X</span><span>Y</span></div></div>`
			page, err := extract.FromHTML(setPage("Letters", nil, visible))

			Expect(err).NotTo(HaveOccurred())
			Expect(page.Pairs).To(BeEmpty())
		})
	})

	Context("with both layouts", func() {
		DescribeTable("should return primary pairs followed by fallback pairs",
			func(primaryCount, spanCount int) {
				var entries []string
				var want []models.TermPair
				for i := 0; i < primaryCount; i++ {
					entries = append(entries, termEntry(fmt.Sprintf("p%d", i), fmt.Sprintf("pd%d", i)))
					want = append(want, models.TermPair{Term: fmt.Sprintf("p%d", i), Definition: fmt.Sprintf("pd%d", i)})
				}
				var spans []string
				for i := 0; i < spanCount; i++ {
					spans = append(spans, fmt.Sprintf("h%d", i))
				}
				for i := 0; i+1 < spanCount; i += 2 {
					want = append(want, models.TermPair{Term: spans[i], Definition: spans[i+1]})
				}

				page, err := extract.FromHTML(setPage("Mixed", entries, hiddenBlock(spans...)))

				Expect(err).NotTo(HaveOccurred())
				Expect(page.Pairs).To(HaveLen(primaryCount + spanCount/2))
				if len(want) > 0 {
					Expect(page.Pairs).To(Equal(want))
				}
			},
			Entry("nothing anywhere", 0, 0),
			Entry("primary only", 3, 0),
			Entry("fallback only", 0, 4),
			Entry("both, even fallback", 2, 6),
			Entry("both, odd fallback", 2, 7),
			Entry("single unpaired span", 1, 1),
		)

		It("should place primary pairs first even when the hidden block precedes the list", func() {
			html := []byte(`<html><head><title>T</title></head><body>` +
				hiddenBlock("H", "h") +
				`<section class="SetPageTerms-termsList">` + termEntry("P", "p") + `</section></body></html>`)

			page, err := extract.FromHTML(html)

			Expect(err).NotTo(HaveOccurred())
			Expect(page.Pairs).To(Equal([]models.TermPair{
				{Term: "P", Definition: "p"},
				{Term: "H", Definition: "h"},
			}))
		})
	})

	Context("with malformed documents", func() {
		It("should fail without the term list even when hidden data exists", func() {
			html := []byte(`<html><head><title>T</title></head><body>` + hiddenBlock("A", "1") + `</body></html>`)

			page, err := extract.FromHTML(html)

			Expect(err).To(MatchError(extract.ErrMissingSection))
			Expect(page).To(BeNil())
		})

		It("should fail when an entry has no large side", func() {
			entry := `<div aria-label="Term"><div class="SetPageTerm-smallSide">Bonjour</div></div>`

			page, err := extract.FromHTML(setPage("French", []string{termEntry("Merci", "Thanks"), entry}, ""))

			Expect(err).To(MatchError(extract.ErrMissingDefinitionField))
			Expect(err.Error()).To(ContainSubstring("term 1"))
			Expect(page).To(BeNil())
		})

		It("should fail when an entry has no small side", func() {
			entry := `<div aria-label="Term"><div class="SetPageTerm-largeSide">Hello</div></div>`

			_, err := extract.FromHTML(setPage("French", []string{entry}, ""))
			Expect(err).To(MatchError(extract.ErrMissingTermField))
		})

		It("should fail when a side has no text", func() {
			entry := `<div aria-label="Term">
			  <div class="SetPageTerm-smallSide"><img src="x.png"></div>
			  <div class="SetPageTerm-largeSide">Hello</div>
			</div>`

			_, err := extract.FromHTML(setPage("French", []string{entry}, ""))
			Expect(err).To(MatchError(extract.ErrEmptyFieldText))
		})

		It("should fail without a title", func() {
			_, err := extract.FromHTML(setPage("", []string{termEntry("A", "1")}, ""))
			Expect(err).To(MatchError(extract.ErrMissingTitle))
		})

		It("should treat a blank title as missing", func() {
			_, err := extract.FromHTML(setPage("   ", []string{termEntry("A", "1")}, ""))
			Expect(err).To(MatchError(extract.ErrMissingTitle))
		})
	})
})
