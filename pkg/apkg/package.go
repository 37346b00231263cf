package apkg

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const (
	CollectionFile = "collection.anki2"
	MediaFile      = "media"
)

var ErrNoDecks = errors.New("package has no decks")

type Package struct {
	Decks []*Deck
	now   func() time.Time
}

type PackageOption func(*Package)

// WithClock fixes the timestamps written into the collection.
func WithClock(now func() time.Time) PackageOption {
	return func(p *Package) {
		p.now = now
	}
}

func NewPackage(decks []*Deck, opts ...PackageOption) *Package {
	p := &Package{
		Decks: decks,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WriteTo serializes the package as an .apkg archive into w.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	if len(p.Decks) == 0 {
		return 0, ErrNoDecks
	}

	tmpDir, err := os.MkdirTemp("", "apkg-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, CollectionFile)
	if err := p.buildCollection(context.Background(), dbPath); err != nil {
		return 0, err
	}

	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	if err := addFile(zw, CollectionFile, dbPath); err != nil {
		return cw.n, err
	}
	media, err := zw.Create(MediaFile)
	if err != nil {
		return cw.n, fmt.Errorf("failed to add media manifest: %w", err)
	}
	if _, err := io.WriteString(media, "{}"); err != nil {
		return cw.n, fmt.Errorf("failed to write media manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finish archive: %w", err)
	}

	return cw.n, nil
}

// WriteFile writes the package to path. The archive is assembled next to the
// destination and renamed into place, so a failure never leaves a partial file.
func (p *Package) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".apkg-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := p.WriteTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move package into place: %w", err)
	}
	return nil
}

func (p *Package) buildCollection(ctx context.Context, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}
	defer db.Close()

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := p.now()
	if err := p.insertCollection(tx, now); err != nil {
		return err
	}

	ids := &idSequence{next: now.UnixMilli()}
	for _, deck := range p.Decks {
		for i, note := range deck.Notes {
			if err := insertNote(tx, ids, deck, note, i, now); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collection: %w", err)
	}
	return nil
}

func (p *Package) insertCollection(tx *sql.Tx, now time.Time) error {
	decks := map[string]interface{}{
		strconv.Itoa(defaultDeckID): defaultDeckJSON(),
	}
	models := map[string]interface{}{}
	for _, deck := range p.Decks {
		decks[strconv.FormatInt(deck.ID, 10)] = deck.toJSON(now.Unix())
		for _, m := range deck.models() {
			models[strconv.FormatInt(m.ID, 10)] = m.toJSON(deck.ID, now.Unix())
		}
	}

	conf, err := marshalString(collectionConf())
	if err != nil {
		return err
	}
	modelsJSON, err := marshalString(models)
	if err != nil {
		return err
	}
	decksJSON, err := marshalString(decks)
	if err != nil {
		return err
	}
	dconf, err := marshalString(deckConfJSON())
	if err != nil {
		return err
	}

	_, err = sq.Insert("col").
		Columns("id", "crt", "mod", "scm", "ver", "dty", "usn", "ls",
			"conf", "models", "decks", "dconf", "tags").
		Values(1, now.Unix(), now.UnixMilli(), now.UnixMilli(), schemaVersion, 0, 0, 0,
			conf, modelsJSON, decksJSON, dconf, "{}").
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert collection row: %w", err)
	}
	return nil
}

func insertNote(tx *sql.Tx, ids *idSequence, deck *Deck, note *Note, due int, now time.Time) error {
	noteID := ids.take()
	_, err := sq.Insert("notes").
		Columns("id", "guid", "mid", "mod", "usn", "tags", "flds", "sfld", "csum", "flags", "data").
		Values(noteID, note.GUID, note.Model.ID, now.Unix(), -1, note.formattedTags(),
			note.joinedFields(), note.sortField(), note.checksum(), 0, "").
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert note %s: %w", note.GUID, err)
	}

	for _, ord := range note.cardOrds() {
		_, err := sq.Insert("cards").
			Columns("id", "nid", "did", "ord", "mod", "usn", "type", "queue", "due",
				"ivl", "factor", "reps", "lapses", "left", "odue", "odid", "flags", "data").
			Values(ids.take(), noteID, deck.ID, ord, now.Unix(), -1, 0, 0, due,
				0, 0, 0, 0, 0, 0, 0, 0, "").
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to insert card %d of note %s: %w", ord, note.GUID, err)
		}
	}
	return nil
}

func addFile(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func marshalString(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode collection json: %w", err)
	}
	return string(b), nil
}

// idSequence hands out row ids for notes and cards, starting at the
// collection's creation time in milliseconds like Anki does.
type idSequence struct {
	next int64
}

func (s *idSequence) take() int64 {
	id := s.next
	s.next++
	return id
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
