// Package codec reads and writes the trigger-string text format:
//
//	STRING 7
//	// Units: H000 (Paladin), Hotkey (Hotkey)
//	{
//	Q
//	}
//
// A record opens with a STRING line, carries optional "// " comment lines and
// a brace-delimited content block kept verbatim.
package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/pbaille/wts/internal/domain"
)

const (
	recordPrefix  = "STRING "
	commentPrefix = "// "
	blockOpen     = "{"
	blockClose    = "}"
)

// ErrParse matches every ParseError
var ErrParse = errors.New("parse error")

// ParseError reports a malformed record
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Parse scans r and yields one entry per record. The sequence consumes r,
// so it can be ranged over only once. It stops at the first error.
func Parse(r io.Reader) iter.Seq2[*domain.Entry, error] {
	return func(yield func(*domain.Entry, error) bool) {
		br := bufio.NewReader(r)

		var (
			id      int
			comment strings.Builder
			content strings.Builder
			inside  bool
			lineNo  int
		)

		for {
			line, err := br.ReadString('\n')
			if line == "" && err != nil {
				if err != io.EOF {
					yield(nil, fmt.Errorf("read: %w", err))
				}
				return
			}
			lineNo++

			if !inside {
				switch {
				case strings.HasPrefix(line, recordPrefix):
					n, convErr := strconv.Atoi(strings.TrimSpace(line[len(recordPrefix):]))
					if convErr != nil {
						yield(nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("invalid id %q", strings.TrimSpace(line[len(recordPrefix):]))})
						return
					}
					if n > domain.MaxID {
						yield(nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("id %d exceeds %d", n, domain.MaxID)})
						return
					}
					id = n
				case strings.HasPrefix(line, commentPrefix):
					comment.WriteString(line)
				case strings.HasPrefix(line, blockOpen):
					inside = true
				}
			} else if strings.HasPrefix(line, blockClose) {
				if id <= 0 {
					yield(nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("non-positive id %d", id)})
					return
				}
				if content.Len() == 0 {
					yield(nil, &ParseError{Line: lineNo, Reason: fmt.Sprintf("empty content for id %d", id)})
					return
				}

				e, _ := domain.NewEntry(id, content.String(), comment.String())
				if !yield(e, nil) {
					return
				}

				id = 0
				comment.Reset()
				content.Reset()
				inside = false
			} else {
				content.WriteString(line)
			}

			if err != nil {
				if err != io.EOF {
					yield(nil, fmt.Errorf("read: %w", err))
				}
				return
			}
		}
	}
}

// CheckContent reports content that would not survive a save and reload:
// empty text, or a line that would close the block early.
func CheckContent(content string) error {
	if content == "" {
		return errors.New("content is empty")
	}
	for i, line := range strings.SplitAfter(content, "\n") {
		if strings.HasPrefix(line, blockClose) {
			return fmt.Errorf("content line %d starts with %q", i+1, blockClose)
		}
	}
	return nil
}

// CheckComment reports a comment that would not survive a save and reload:
// every line must carry the "// " prefix, or it is read back as part of the
// record structure.
func CheckComment(comment string) error {
	for i, line := range strings.SplitAfter(comment, "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, commentPrefix) {
			return fmt.Errorf("comment line %d does not start with %q", i+1, commentPrefix)
		}
	}
	return nil
}

// EnsureNewline terminates non-empty text with a newline, as the file
// format stores every content and comment line with its terminator.
func EnsureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// ParseAll collects every entry of r
func ParseAll(r io.Reader) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	for e, err := range Parse(r) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Format renders a single record, including the trailing blank line
func Format(e *domain.Entry) string {
	var sb strings.Builder
	writeEntry(&sb, e)
	return sb.String()
}

func writeEntry(sb *strings.Builder, e *domain.Entry) {
	sb.WriteString(recordPrefix)
	sb.WriteString(strconv.Itoa(e.ID))
	sb.WriteString("\n")
	sb.WriteString(EnsureNewline(e.Comment()))
	sb.WriteString(blockOpen + "\n")
	sb.WriteString(EnsureNewline(e.Content))
	sb.WriteString(blockClose + "\n\n")
}

// Serialize writes entries in ascending id order. The input slice is not reordered.
func Serialize(w io.Writer, entries []*domain.Entry) error {
	sorted := slices.Clone(entries)
	domain.SortByID(sorted)

	bw := bufio.NewWriter(w)
	var sb strings.Builder
	for _, e := range sorted {
		sb.Reset()
		writeEntry(&sb, e)
		if _, err := bw.WriteString(sb.String()); err != nil {
			return fmt.Errorf("write entry %d: %w", e.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
