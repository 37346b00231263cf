package models

import "strings"

// TermPair is one term/definition entry of a flashcard set.
type TermPair struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Valid reports whether both sides carry text.
func (p TermPair) Valid() bool {
	return strings.TrimSpace(p.Term) != "" && strings.TrimSpace(p.Definition) != ""
}

// FlashcardSet is the extracted content of one set page.
type FlashcardSet struct {
	Title  string     `json:"title"`
	Source string     `json:"source"`
	Pairs  []TermPair `json:"pairs"`
}

func (s FlashcardSet) Len() int {
	return len(s.Pairs)
}
