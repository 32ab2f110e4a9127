package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// MaxID is the largest id a string file may use. The game reads ids as 32-bit integers.
const MaxID = math.MaxInt32

var (
	// ErrNegativeID is returned when constructing an entry with a negative id
	ErrNegativeID = errors.New("entry id cannot be negative")
	// ErrIDTooLarge is returned when constructing an entry with an id above MaxID
	ErrIDTooLarge = errors.New("entry id too large")
)

// Entry represents one stored string of a trigger-string file
type Entry struct {
	ID      int
	Content string

	comment string
}

// NewEntry creates an entry. The comment is fixed for the lifetime of the entry.
func NewEntry(id int, content, comment string) (*Entry, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeID, id)
	}
	if id > MaxID {
		return nil, fmt.Errorf("%w: got %d", ErrIDTooLarge, id)
	}
	return &Entry{ID: id, Content: content, comment: comment}, nil
}

// Comment returns the raw comment lines, including their "// " prefixes and terminators
func (e *Entry) Comment() string {
	return e.comment
}

// Less orders entries by id
func (e *Entry) Less(other *Entry) bool {
	return e.ID < other.ID
}

func (e *Entry) String() string {
	comment := strings.TrimSpace(strings.TrimPrefix(e.comment, "// "))
	return fmt.Sprintf("Entry(id=%d, comment=%q, content=%q)",
		e.ID, Truncate(comment, 40), Truncate(strings.TrimSpace(e.Content), 40))
}

type entryJSON struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Comment string `json:"comment,omitempty"`
}

// MarshalJSON exposes the comment, which is otherwise read-only
func (e *Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{ID: e.ID, Content: e.Content, Comment: e.comment})
}

// SortByID sorts entries in place by ascending id
func SortByID(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Less(entries[j])
	})
}

// Truncate shortens s to max runes, marking the cut with "..."
func Truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
