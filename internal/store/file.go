package store

import (
	"github.com/pbaille/wts/internal/codec"
)

// Open loads the string file at path
func Open(path string) (*Store, error) {
	entries, err := codec.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(entries)
}

// Save writes the store to path in ascending id order
func (s *Store) Save(path string) error {
	return codec.WriteFile(path, s.Entries())
}

// File binds a Store to the path it was loaded from
type File struct {
	path  string
	store *Store
}

// OpenFile loads path and remembers it for Save and Reset
func OpenFile(path string) (*File, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &File{path: path, store: s}, nil
}

// Path returns the file location
func (f *File) Path() string {
	return f.path
}

// Store returns the loaded entries
func (f *File) Store() *Store {
	return f.store
}

// Save overwrites the original file
func (f *File) Save() error {
	return f.store.Save(f.path)
}

// SaveAs writes to another path. The file stays bound to its original path.
func (f *File) SaveAs(path string) error {
	return f.store.Save(path)
}

// Reset discards in-memory changes by reloading the file
func (f *File) Reset() error {
	s, err := Open(f.path)
	if err != nil {
		return err
	}
	f.store = s
	return nil
}
