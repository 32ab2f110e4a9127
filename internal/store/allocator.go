package store

import (
	"slices"

	"github.com/pbaille/wts/internal/domain"
)

// Allocator hands out entry ids. Free ids are kept on a stack: released ids
// are reused first, then the gaps left by the loaded file, then fresh ids.
// Gaps are found by walking down from the loaded maximum, never stored.
type Allocator struct {
	free  []int
	gap   int   // largest id below the loaded maximum that may still be free
	taken []int // loaded ids at or below gap, descending
	next  int   // one past the largest id handed out or loaded
}

// NewAllocator builds the allocator for a store holding the occupied ids.
// The first id handed out is max+1, followed by the gaps below max from the
// largest to the smallest, then fresh ids.
func NewAllocator(occupied []int) *Allocator {
	maxID := 0
	for _, id := range occupied {
		maxID = max(maxID, id)
	}

	a := &Allocator{
		gap:  maxID - 1,
		next: maxID + 1,
	}
	if maxID < domain.MaxID {
		a.free = append(a.free, maxID+1)
	}
	for _, id := range occupied {
		if id > 0 && id < maxID {
			a.taken = append(a.taken, id)
		}
	}
	slices.Sort(a.taken)
	slices.Reverse(a.taken)
	return a
}

// nextGap skips loaded ids and returns the largest remaining gap, or 0
func (a *Allocator) nextGap() int {
	for a.gap > 0 && len(a.taken) > 0 && a.taken[0] == a.gap {
		a.taken = a.taken[1:]
		a.gap--
	}
	return max(a.gap, 0)
}

// Allocate pops the next id. It returns 0 once every id up to domain.MaxID is taken.
func (a *Allocator) Allocate() int {
	var id int
	switch {
	case len(a.free) > 0:
		id = a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
	case a.nextGap() > 0:
		id = a.gap
		a.gap--
	case a.next <= domain.MaxID:
		id = a.next
	default:
		return 0
	}

	if id >= a.next {
		a.next = id + 1
	}
	return id
}

// Release makes id available again. Non-positive ids are never issued and are ignored.
func (a *Allocator) Release(id int) {
	if id > 0 {
		a.free = append(a.free, id)
	}
}

// Reset returns the allocator to the state of an empty store
func (a *Allocator) Reset() {
	a.free = append(a.free[:0], 1)
	a.gap = 0
	a.taken = nil
	a.next = 1
}

// Peek returns the id the next Allocate will return
func (a *Allocator) Peek() int {
	if len(a.free) > 0 {
		return a.free[len(a.free)-1]
	}
	if g := a.nextGap(); g > 0 {
		return g
	}
	if a.next > domain.MaxID {
		return 0
	}
	return a.next
}

// Len returns the number of ids ready before a fresh one is needed, and at least 1
func (a *Allocator) Len() int {
	n := len(a.free)
	if g := a.nextGap(); g > 0 {
		n += g - len(a.taken)
	}
	return max(n, 1)
}
