// Package apkg writes and reads Anki deck packages (.apkg).
//
// A package is a zip archive holding a legacy Anki 2.1 collection database
// (collection.anki2, schema version 11) and a media manifest. Only what a
// text-only deck needs is written: one or more decks, their note models,
// notes and the cards generated from them.
package apkg

import (
	"strconv"
	"strings"
)

const (
	BasicAndReversedModelID = 1485830179

	defaultCSS = `.card {
 font-family: arial;
 font-size: 20px;
 text-align: center;
 color: black;
 background-color: white;
}
`
)

type Field struct {
	Name   string   `json:"name"`
	Ord    int      `json:"ord"`
	Font   string   `json:"font"`
	Size   int      `json:"size"`
	Media  []string `json:"media"`
	RTL    bool     `json:"rtl"`
	Sticky bool     `json:"sticky"`
}

type Template struct {
	Name  string `json:"name"`
	Ord   int    `json:"ord"`
	QFmt  string `json:"qfmt"`
	AFmt  string `json:"afmt"`
	BQFmt string `json:"bqfmt"`
	BAFmt string `json:"bafmt"`
	DID   *int64 `json:"did"`
}

// Model is an Anki note type: the fields a note carries and the card
// templates generated from them.
type Model struct {
	ID        int64
	Name      string
	Fields    []Field
	Templates []Template
	CSS       string
	SortField int
}

func NewModel(id int64, name string, fields []string, templates []Template) *Model {
	m := &Model{
		ID:   id,
		Name: name,
		CSS:  defaultCSS,
	}
	for i, name := range fields {
		m.Fields = append(m.Fields, Field{
			Name:  name,
			Ord:   i,
			Font:  "Arial",
			Size:  20,
			Media: []string{},
		})
	}
	for i := range templates {
		templates[i].Ord = i
		m.Templates = append(m.Templates, templates[i])
	}
	return m
}

// BasicAndReversedModel is the two-field Front/Back note type that produces a
// forward and a reverse card for every note.
func BasicAndReversedModel() *Model {
	return NewModel(
		BasicAndReversedModelID,
		"Basic (and reversed card) (quizankify)",
		[]string{"Front", "Back"},
		[]Template{
			{
				Name: "Card 1",
				QFmt: "{{Front}}",
				AFmt: "{{FrontSide}}\n\n<hr id=answer>\n\n{{Back}}",
			},
			{
				Name: "Card 2",
				QFmt: "{{Back}}",
				AFmt: "{{FrontSide}}\n\n<hr id=answer>\n\n{{Front}}",
			},
		},
	)
}

// requiredFields returns, per template, the ords of the fields referenced on
// its question side. A card is only generated when all of them are non-empty.
func (m *Model) requiredFields() [][]int {
	req := make([][]int, len(m.Templates))
	for i, tmpl := range m.Templates {
		for _, f := range m.Fields {
			if strings.Contains(tmpl.QFmt, "{{"+f.Name+"}}") {
				req[i] = append(req[i], f.Ord)
			}
		}
	}
	return req
}

func (m *Model) toJSON(deckID int64, mod int64) map[string]interface{} {
	var req []interface{}
	for ord, fields := range m.requiredFields() {
		req = append(req, []interface{}{ord, "all", fields})
	}

	return map[string]interface{}{
		"css":       m.CSS,
		"did":       deckID,
		"flds":      m.Fields,
		"id":        strconv.FormatInt(m.ID, 10),
		"latexPost": "\\end{document}",
		"latexPre": "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n" +
			"\\usepackage[utf8]{inputenc}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n" +
			"\\setlength{\\parindent}{0in}\n\\begin{document}\n",
		"latexsvg": false,
		"mod":      mod,
		"name":     m.Name,
		"req":      req,
		"sortf":    m.SortField,
		"tags":     []string{},
		"tmpls":    m.Templates,
		"type":     0,
		"usn":      -1,
		"vers":     []interface{}{},
	}
}
