package api

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/namask/internal/ndarray"
)

var ErrHasViews = errors.New("array has live views")

type arrayRecord struct {
	ID        string
	Parent    string
	CreatedAt time.Time

	// mu serialises operations on Array.
	mu    sync.Mutex
	Array *ndarray.Array
}

// ArrayStore keeps arrays by id. Views remember the array they were taken
// from so that a parent cannot be dropped while a view still borrows its
// buffers.
type ArrayStore struct {
	mu     sync.Mutex
	arrays map[string]*arrayRecord
	views  map[string]int
}

func NewArrayStore() *ArrayStore {
	return &ArrayStore{
		arrays: make(map[string]*arrayRecord),
		views:  make(map[string]int),
	}
}

func (s *ArrayStore) Put(a *ndarray.Array, parent string, now time.Time) *arrayRecord {
	rec := &arrayRecord{
		ID:        "arr_" + uuid.NewString(),
		Parent:    parent,
		CreatedAt: now,
		Array:     a,
	}
	s.mu.Lock()
	s.arrays[rec.ID] = rec
	if parent != "" {
		s.views[parent]++
	}
	s.mu.Unlock()
	return rec
}

func (s *ArrayStore) Get(id string) (*arrayRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.arrays[id]
	return rec, ok
}

// Delete removes an array and releases its mask. It reports false when the
// id is unknown and ErrHasViews when views of it are still stored.
func (s *ArrayStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	rec, ok := s.arrays[id]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	if s.views[id] > 0 {
		s.mu.Unlock()
		return true, ErrHasViews
	}
	delete(s.arrays, id)
	delete(s.views, id)
	if rec.Parent != "" {
		s.views[rec.Parent]--
	}
	s.mu.Unlock()

	rec.mu.Lock()
	rec.Array.ReleaseMask()
	rec.mu.Unlock()
	return true, nil
}

func (s *ArrayStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.arrays)
}
