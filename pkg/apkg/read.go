package apkg

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

type DeckInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"desc"`
}

type NoteInfo struct {
	ID      int64    `json:"id"`
	GUID    string   `json:"guid"`
	ModelID int64    `json:"model_id"`
	Fields  []string `json:"fields"`
	Tags    []string `json:"tags"`
}

type CardInfo struct {
	ID     int64 `json:"id"`
	NoteID int64 `json:"note_id"`
	DeckID int64 `json:"deck_id"`
	Ord    int   `json:"ord"`
}

// Contents is what Read found in a package. The collection's built-in
// Default deck is left out of Decks.
type Contents struct {
	Decks []DeckInfo `json:"decks"`
	Notes []NoteInfo `json:"notes"`
	Cards []CardInfo `json:"cards"`
}

// Read opens the .apkg at path and loads its decks, notes and cards.
func Read(path string) (*Contents, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open package: %w", err)
	}
	defer zr.Close()

	var collection *zip.File
	for _, f := range zr.File {
		if f.Name == CollectionFile {
			collection = f
			break
		}
	}
	if collection == nil {
		return nil, fmt.Errorf("package has no %s", CollectionFile)
	}

	tmpDir, err := os.MkdirTemp("", "apkg-read-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, CollectionFile)
	if err := extractFile(collection, dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}
	defer db.Close()

	decks, err := readDecks(db)
	if err != nil {
		return nil, err
	}
	notes, err := readNotes(db)
	if err != nil {
		return nil, err
	}
	cards, err := readCards(db)
	if err != nil {
		return nil, err
	}

	return &Contents{Decks: decks, Notes: notes, Cards: cards}, nil
}

func readDecks(db *sql.DB) ([]DeckInfo, error) {
	var raw string
	if err := sq.Select("decks").From("col").Limit(1).RunWith(db).QueryRow().Scan(&raw); err != nil {
		return nil, fmt.Errorf("failed to read decks: %w", err)
	}

	var byID map[string]DeckInfo
	if err := json.Unmarshal([]byte(raw), &byID); err != nil {
		return nil, fmt.Errorf("failed to decode decks: %w", err)
	}

	decks := make([]DeckInfo, 0, len(byID))
	for _, d := range byID {
		if d.ID == defaultDeckID {
			continue
		}
		decks = append(decks, d)
	}
	sort.Slice(decks, func(i, j int) bool { return decks[i].ID < decks[j].ID })
	return decks, nil
}

func readNotes(db *sql.DB) ([]NoteInfo, error) {
	rows, err := sq.Select("id", "guid", "mid", "flds", "tags").
		From("notes").
		OrderBy("id").
		RunWith(db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []NoteInfo
	for rows.Next() {
		var n NoteInfo
		var flds, tags string
		if err := rows.Scan(&n.ID, &n.GUID, &n.ModelID, &flds, &tags); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		n.Fields = strings.Split(flds, fieldSeparator)
		n.Tags = strings.Fields(tags)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func readCards(db *sql.DB) ([]CardInfo, error) {
	rows, err := sq.Select("id", "nid", "did", "ord").
		From("cards").
		OrderBy("id").
		RunWith(db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []CardInfo
	for rows.Next() {
		var c CardInfo
		if err := rows.Scan(&c.ID, &c.NoteID, &c.DeckID, &c.Ord); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return out.Close()
}
