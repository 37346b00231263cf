package apkg

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const fieldSeparator = "\x1f"

var (
	ErrFieldCount = errors.New("field count does not match model")
	ErrEmptyField = errors.New("note field is empty")
)

// noteNamespace scopes note GUIDs so identical content always maps to the
// same note, letting Anki update instead of duplicate on re-import.
var noteNamespace = uuid.MustParse("5c3a3f0e-8d1b-4b8e-9a43-2f4c6d0e7a11")

var htmlTag = regexp.MustCompile(`<[^>]*>`)

type Note struct {
	Model  *Model
	Fields []string
	Tags   []string
	GUID   string
}

// NewNote builds a note for model. Every field must carry non-blank text.
func NewNote(model *Model, fields ...string) (*Note, error) {
	if len(fields) != len(model.Fields) {
		return nil, fmt.Errorf("%w: model %q has %d fields, got %d",
			ErrFieldCount, model.Name, len(model.Fields), len(fields))
	}
	for i, f := range fields {
		if strings.TrimSpace(f) == "" {
			return nil, fmt.Errorf("%w: %s", ErrEmptyField, model.Fields[i].Name)
		}
	}

	copied := append([]string(nil), fields...)
	return &Note{
		Model:  model,
		Fields: copied,
		GUID:   uuid.NewSHA1(noteNamespace, []byte(strings.Join(copied, fieldSeparator))).String(),
	}, nil
}

// WithTags returns the note with tags set. Tags may not contain spaces; they
// are replaced by underscores.
func (n *Note) WithTags(tags ...string) *Note {
	n.Tags = n.Tags[:0]
	for _, t := range tags {
		t = strings.ReplaceAll(strings.TrimSpace(t), " ", "_")
		if t != "" {
			n.Tags = append(n.Tags, t)
		}
	}
	return n
}

// cardOrds lists the template ords this note generates cards for.
func (n *Note) cardOrds() []int {
	var ords []int
	for ord, required := range n.Model.requiredFields() {
		ok := len(required) > 0
		for _, f := range required {
			if strings.TrimSpace(n.Fields[f]) == "" {
				ok = false
				break
			}
		}
		if ok {
			ords = append(ords, ord)
		}
	}
	return ords
}

func (n *Note) joinedFields() string {
	return strings.Join(n.Fields, fieldSeparator)
}

func (n *Note) sortField() string {
	return n.Fields[n.Model.SortField]
}

func (n *Note) formattedTags() string {
	if len(n.Tags) == 0 {
		return ""
	}
	return " " + strings.Join(n.Tags, " ") + " "
}

// checksum is Anki's duplicate-detection hash: the first 8 hex digits of the
// SHA-1 of the sort field with markup stripped.
func (n *Note) checksum() int64 {
	sum := sha1.Sum([]byte(htmlTag.ReplaceAllString(n.sortField(), "")))
	v, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:8], 16, 64)
	return v
}
