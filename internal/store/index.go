package store

import (
	"fmt"
	"slices"

	"github.com/pbaille/wts/internal/domain"
)

// commentIndex groups entry ids by classification key, in insertion order.
// It holds ids only; entries are resolved through the store.
type commentIndex struct {
	levels map[domain.Key][]int
}

func newCommentIndex() *commentIndex {
	return &commentIndex{levels: make(map[domain.Key][]int)}
}

func (ci *commentIndex) add(key domain.Key, id int) {
	ci.levels[key] = append(ci.levels[key], id)
}

func (ci *commentIndex) remove(key domain.Key, id int) error {
	ids, ok := ci.levels[key]
	if !ok {
		return fmt.Errorf("%w: key %s of entry %d is not indexed", ErrInconsistentIndex, key, id)
	}

	i := slices.Index(ids, id)
	if i < 0 {
		return fmt.Errorf("%w: entry %d is missing from key %s", ErrInconsistentIndex, id, key)
	}

	ids = slices.Delete(ids, i, i+1)
	if len(ids) == 0 {
		delete(ci.levels, key)
		return nil
	}
	ci.levels[key] = ids
	return nil
}

// get returns the ids of key; the slice must not be modified
func (ci *commentIndex) get(key domain.Key) []int {
	return ci.levels[key]
}

func (ci *commentIndex) keys() []domain.Key {
	keys := make([]domain.Key, 0, len(ci.levels))
	for k := range ci.levels {
		keys = append(keys, k)
	}
	return keys
}

func (ci *commentIndex) size() int {
	return len(ci.levels)
}

func (ci *commentIndex) reset() {
	clear(ci.levels)
}
