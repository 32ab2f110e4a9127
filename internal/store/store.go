package store

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"sort"

	"github.com/pbaille/wts/internal/classifier"
	"github.com/pbaille/wts/internal/codec"
	"github.com/pbaille/wts/internal/domain"
)

// Store holds the entries of one string file, indexed by id and by the
// classification of their comments. It is not safe for concurrent use.
type Store struct {
	entries map[int]*domain.Entry
	index   *commentIndex
	ids     *Allocator
}

// KeyCount is the number of levels stored under a key
type KeyCount struct {
	Key    domain.Key `json:"key"`
	Levels int        `json:"levels"`
}

// New creates an empty Store
func New() *Store {
	return &Store{
		entries: make(map[int]*domain.Entry),
		index:   newCommentIndex(),
		ids:     NewAllocator(nil),
	}
}

// Load creates a Store from parsed entries. Nothing is kept if two entries share an id.
func Load(entries []*domain.Entry) (*Store, error) {
	s := New()
	for _, e := range entries {
		if prev, ok := s.entries[e.ID]; ok {
			return nil, fmt.Errorf("%w %d: %s and %s", ErrDuplicateID, e.ID, prev, e)
		}
		s.insert(e)
	}
	s.ids = NewAllocator(slices.Collect(maps.Keys(s.entries)))
	return s, nil
}

func (s *Store) insert(e *domain.Entry) {
	s.entries[e.ID] = e
	if key, ok := classifier.KeyOf(e); ok {
		s.index.add(key, e.ID)
	}
}

// Len returns the number of entries
func (s *Store) Len() int {
	return len(s.entries)
}

// Get returns the entry with the given id
func (s *Store) Get(id int) (*domain.Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return e, nil
}

// Has reports whether an entry with the given id exists
func (s *Store) Has(id int) bool {
	_, ok := s.entries[id]
	return ok
}

// Contains reports whether e itself is stored, not just an entry with its id
func (s *Store) Contains(e *domain.Entry) bool {
	if e == nil {
		return false
	}
	return s.entries[e.ID] == e
}

// Entries returns a snapshot of all entries in ascending id order
func (s *Store) Entries() []*domain.Entry {
	entries := slices.Collect(maps.Values(s.entries))
	domain.SortByID(entries)
	return entries
}

// All iterates over the entries in ascending id order. Each range takes a fresh snapshot.
func (s *Store) All() iter.Seq[*domain.Entry] {
	return func(yield func(*domain.Entry) bool) {
		for _, e := range s.Entries() {
			if !yield(e) {
				return
			}
		}
	}
}

// Add stores a new entry under a freshly allocated id. Content and comment
// are newline terminated so the entry serializes as a single record.
// Add panics when every id up to domain.MaxID is in use.
func (s *Store) Add(content, comment string) *domain.Entry {
	id := s.ids.Allocate()
	if id == 0 {
		panic(fmt.Sprintf("store: no free id up to %d", domain.MaxID))
	}
	e, _ := domain.NewEntry(id, codec.EnsureNewline(content), codec.EnsureNewline(comment))
	s.insert(e)
	return e
}

// SetContent replaces the content of an entry in place, newline terminated
func (s *Store) SetContent(id int, content string) error {
	e, err := s.Get(id)
	if err != nil {
		return err
	}
	e.Content = codec.EnsureNewline(content)
	return nil
}

// Remove deletes the entry with the given id and frees the id for reuse
func (s *Store) Remove(id int) error {
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	if key, ok := classifier.KeyOf(e); ok {
		if err := s.index.remove(key, id); err != nil {
			return err
		}
	}
	delete(s.entries, id)
	s.ids.Release(id)
	return nil
}

// Clear removes every entry. Ids start again from 1.
func (s *Store) Clear() {
	clear(s.entries)
	s.index.reset()
	s.ids.Reset()
}

// Find returns the entry at the 1-based level of key. It returns nil and no
// error when nothing is stored under key.
//
// Levels follow insertion order. The editor removes and re-appends a string
// when it is changed, so levels can drift from the order the author intended.
func (s *Store) Find(key domain.Key, level int) (*domain.Entry, error) {
	ids := s.index.get(key)
	if ids == nil {
		return nil, nil
	}
	if level < 1 || level > len(ids) {
		return nil, fmt.Errorf("%w: %s has %d levels, requested %d", ErrLevelOutOfRange, key, len(ids), level)
	}
	return s.resolve(ids[level-1])
}

// Levels returns every entry stored under key, level 1 first
func (s *Store) Levels(key domain.Key) ([]*domain.Entry, error) {
	ids := s.index.get(key)
	entries := make([]*domain.Entry, 0, len(ids))
	for _, id := range ids {
		e, err := s.resolve(id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Keys lists the classification keys in use with their level counts
func (s *Store) Keys() []KeyCount {
	counts := make([]KeyCount, 0, s.index.size())
	for _, key := range s.index.keys() {
		counts = append(counts, KeyCount{Key: key, Levels: len(s.index.get(key))})
	}
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].Key.String() < counts[j].Key.String()
	})
	return counts
}

// NextID returns the id the next Add will use
func (s *Store) NextID() int {
	return s.ids.Peek()
}

func (s *Store) resolve(id int) (*domain.Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: indexed entry %d does not exist", ErrInconsistentIndex, id)
	}
	return e, nil
}
