package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/pbaille/wts/internal/domain"
)

const workInProgressSuffix = ".wip"

// The game recognizes string files by their byte order mark
var fileEncoding = unicode.UTF8BOM

// NewReader decodes UTF-8 text, dropping a leading byte order mark if present
func NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, fileEncoding.NewDecoder())
}

// NewWriter encodes UTF-8 text with a leading byte order mark
func NewWriter(w io.Writer) io.WriteCloser {
	return transform.NewWriter(w, fileEncoding.NewEncoder())
}

// ReadFile parses the string file at path. Windows line endings are normalized.
func ReadFile(path string) ([]*domain.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read string file: %w", err)
	}

	decoded, err := io.ReadAll(NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("decode string file: %w", err)
	}
	text := strings.ReplaceAll(string(decoded), "\r\n", "\n")

	entries, err := ParseAll(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}

// WriteFile serializes entries to path. The file is written next to its
// destination first and renamed into place once complete.
func WriteFile(path string, entries []*domain.Entry) (err error) {
	tempPath := path + workInProgressSuffix

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create string file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tempPath)
		}
	}()

	w := NewWriter(f)
	if err := Serialize(w, entries); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode string file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close string file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("replace string file: %w", err)
	}
	return nil
}

// IsParseError reports whether err came from a malformed record
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}
