// Package extract pulls term/definition pairs out of a flashcard set page.
//
// A set page carries its terms in one of two shapes: the visible term list,
// where every entry holds a small side (the term) and a large side (the
// definition), and a hidden block of flat spans consumed two at a time. Both
// shapes are read independently and concatenated, visible entries first.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/kpauljoseph/quizankify/pkg/models"
)

const (
	TermListSelector   = "section.SetPageTerms-termsList"
	TermSelector       = `div[aria-label="Term"]`
	SmallSideSelector  = "div.SetPageTerm-smallSide"
	LargeSideSelector  = "div.SetPageTerm-largeSide"
	HiddenDataSelector = `div.SetPage-terms > div[style="display:none"]`
	HiddenTextSelector = "span"
	TitleSelector      = "title"
)

var (
	ErrMissingSection         = errors.New("term list section not found")
	ErrMissingTermField       = errors.New("term entry has no small side")
	ErrMissingDefinitionField = errors.New("term entry has no large side")
	ErrEmptyFieldText         = errors.New("field contains no text")
	ErrMissingTitle           = errors.New("document has no title")
)

// Page is the result of a successful extraction.
type Page struct {
	Title string
	Pairs []models.TermPair
}

// FromHTML parses input and returns the page title and every term pair in
// document order. A page without any pairs is not an error.
func FromHTML(input []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	primary, err := extractPrimary(doc)
	if err != nil {
		return nil, err
	}

	fallback, err := extractFallback(doc)
	if err != nil {
		return nil, err
	}

	title, err := extractTitle(doc)
	if err != nil {
		return nil, err
	}

	pairs := make([]models.TermPair, 0, len(primary)+len(fallback))
	pairs = append(pairs, primary...)
	pairs = append(pairs, fallback...)

	return &Page{Title: title, Pairs: pairs}, nil
}

// extractPrimary reads the visible term list. The first malformed entry
// aborts the pass.
func extractPrimary(doc *goquery.Document) ([]models.TermPair, error) {
	section := doc.Find(TermListSelector).First()
	if section.Length() == 0 {
		return nil, ErrMissingSection
	}

	entries := section.Find(TermSelector)
	pairs := make([]models.TermPair, 0, entries.Length())

	var err error
	entries.EachWithBreak(func(i int, entry *goquery.Selection) bool {
		var pair models.TermPair
		pair, err = readEntry(entry)
		if err != nil {
			err = fmt.Errorf("term %d: %w", i, err)
			return false
		}
		pairs = append(pairs, pair)
		return true
	})
	if err != nil {
		return nil, err
	}

	return pairs, nil
}

func readEntry(entry *goquery.Selection) (models.TermPair, error) {
	small := entry.Find(SmallSideSelector).First()
	if small.Length() == 0 {
		return models.TermPair{}, ErrMissingTermField
	}
	large := entry.Find(LargeSideSelector).First()
	if large.Length() == 0 {
		return models.TermPair{}, ErrMissingDefinitionField
	}

	term, ok := firstText(small.Nodes[0])
	if !ok {
		return models.TermPair{}, fmt.Errorf("small side: %w", ErrEmptyFieldText)
	}
	definition, ok := firstText(large.Nodes[0])
	if !ok {
		return models.TermPair{}, fmt.Errorf("large side: %w", ErrEmptyFieldText)
	}

	return models.TermPair{Term: term, Definition: definition}, nil
}

// extractFallback reads the hidden data block, pairing consecutive spans.
// A page without the block contributes nothing; an odd trailing span is
// dropped.
func extractFallback(doc *goquery.Document) ([]models.TermPair, error) {
	block := doc.Find(HiddenDataSelector).First()
	if block.Length() == 0 {
		return nil, nil
	}

	spans := block.Find(HiddenTextSelector).Nodes
	pairs := make([]models.TermPair, 0, len(spans)/2)
	for i := 0; i+1 < len(spans); i += 2 {
		term, ok := firstText(spans[i])
		if !ok {
			return nil, fmt.Errorf("hidden span %d: %w", i, ErrEmptyFieldText)
		}
		definition, ok := firstText(spans[i+1])
		if !ok {
			return nil, fmt.Errorf("hidden span %d: %w", i+1, ErrEmptyFieldText)
		}
		pairs = append(pairs, models.TermPair{Term: term, Definition: definition})
	}

	return pairs, nil
}

func extractTitle(doc *goquery.Document) (string, error) {
	title := doc.Find(TitleSelector).First()
	if title.Length() == 0 {
		return "", ErrMissingTitle
	}
	text := strings.TrimSpace(title.Text())
	if text == "" {
		return "", ErrMissingTitle
	}
	return text, nil
}

// firstText returns the first descendant text node of n that is not pure
// whitespace, trimmed.
func firstText(n *html.Node) (string, bool) {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			return s, true
		}
		return "", false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if s, ok := firstText(c); ok {
			return s, true
		}
	}
	return "", false
}
