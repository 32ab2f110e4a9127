package classifier

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pbaille/wts/internal/domain"
)

var (
	// ErrNoComment is returned for entries without a comment. It is not a failure.
	ErrNoComment = errors.New("no comment")

	// ErrMalformed is returned when a comment does not follow the editor layout
	ErrMalformed = errors.New("malformed comment")

	// ErrUnknownCategory is returned for a category literal outside the known set
	ErrUnknownCategory = errors.New("unknown category")

	// ErrUnknownField is returned for a field literal outside the known set
	ErrUnknownField = errors.New("unknown field")
)

// Error describes a comment that could not be classified
type Error struct {
	Comment string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("classify %q: %v", strings.TrimSpace(e.Comment), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify derives the key of an editor comment such as
//
//	// Units: H000 (Paladin), Hotkey (Hotkey)
//
// The layout is positional: category up to the first colon, a four character
// entity code after it, then the field name between the last ")" and the
// following "(".
func Classify(comment string) (domain.Key, error) {
	category, entity, field, err := split(comment)
	if err != nil {
		return domain.Key{}, err
	}

	c := domain.Category(category)
	if !c.Valid() {
		return domain.Key{}, &Error{Comment: comment, Err: fmt.Errorf("%w %q", ErrUnknownCategory, category)}
	}
	f := domain.Field(field)
	if !f.Valid() {
		return domain.Key{}, &Error{Comment: comment, Err: fmt.Errorf("%w %q", ErrUnknownField, field)}
	}

	return domain.Key{Category: c, Entity: entity, Field: f}, nil
}

// KeyOf classifies the comment of e. ok is false when e has no usable classification.
func KeyOf(e *domain.Entry) (key domain.Key, ok bool) {
	key, err := Classify(e.Comment())
	return key, err == nil
}

// split extracts the raw category, entity and field literals.
// Offsets count runes, not bytes.
func split(comment string) (category, entity, field string, err error) {
	c := []rune(strings.TrimSpace(comment))
	if len(c) == 0 {
		return "", "", "", ErrNoComment
	}
	malformed := func(reason string) error {
		return &Error{Comment: comment, Err: fmt.Errorf("%w: %s", ErrMalformed, reason)}
	}

	colon := indexRune(c, ':', 0, len(c))
	if colon < 0 {
		return "", "", "", malformed("missing colon")
	}
	category = slice(c, 3, colon)
	entity = slice(c, colon+2, colon+6)

	closing := lastIndexRune(c, ')', colon+8, len(c)-2)
	if closing < 0 {
		return "", "", "", malformed("missing closing parenthesis")
	}
	opening := indexRune(c, '(', closing+3, len(c))
	if opening < 0 {
		// Short form "// Units: H000 (Name) (Field)": the field is the last group.
		field, ok := lastGroup(c)
		if !ok {
			return "", "", "", malformed("missing field")
		}
		return category, entity, field, nil
	}
	field = slice(c, closing+3, opening-1)

	return category, entity, field, nil
}

func lastGroup(c []rune) (string, bool) {
	end := lastIndexRune(c, ')', 0, len(c))
	if end < 0 {
		return "", false
	}
	start := lastIndexRune(c, '(', 0, end)
	if start < 0 || start+1 == end {
		return "", false
	}
	return string(c[start+1 : end]), true
}

// slice mirrors clamped slicing: out-of-range bounds shrink, inverted bounds yield "".
func slice(c []rune, start, end int) string {
	start, end = clamp(start, len(c)), clamp(end, len(c))
	if start >= end {
		return ""
	}
	return string(c[start:end])
}

func indexRune(c []rune, r rune, start, end int) int {
	start, end = clamp(start, len(c)), clamp(end, len(c))
	for i := start; i < end; i++ {
		if c[i] == r {
			return i
		}
	}
	return -1
}

func lastIndexRune(c []rune, r rune, start, end int) int {
	start, end = clamp(start, len(c)), clamp(end, len(c))
	for i := end - 1; i >= start; i-- {
		if c[i] == r {
			return i
		}
	}
	return -1
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// Failure records an entry whose comment could not be classified
type Failure struct {
	ID      int    `json:"id"`
	Comment string `json:"comment"`
	Reason  string `json:"reason"`
}

// Report summarizes the comment literals found in a collection
type Report struct {
	Categories []string  `json:"categories"`
	Fields     []string  `json:"fields"`
	Classified int       `json:"classified"`
	Failures   []Failure `json:"failures,omitempty"`
}

// Survey collects the distinct category and field literals of all comments,
// known or not, and lists the entries that fail classification.
func Survey(entries []*domain.Entry) *Report {
	categories := make(map[string]bool)
	fields := make(map[string]bool)
	report := &Report{}

	for _, e := range entries {
		category, _, field, err := split(e.Comment())
		if errors.Is(err, ErrNoComment) {
			continue
		}
		if err == nil {
			categories[category] = true
			fields[field] = true
		}

		if _, err := Classify(e.Comment()); err != nil {
			report.Failures = append(report.Failures, Failure{
				ID:      e.ID,
				Comment: strings.TrimSpace(e.Comment()),
				Reason:  err.Error(),
			})
			continue
		}
		report.Classified++
	}

	report.Categories = sortedKeys(categories)
	report.Fields = sortedKeys(fields)
	return report
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
