package mock

import (
	"context"
	"sync"

	"github.com/pilosa/diversity"
	"github.com/pkg/errors"
)

// Source is an in-memory diversity.Source. Snapshots are keyed by
// diversity.SnapshotName, so filters are ignored.
type Source struct {
	mu        sync.Mutex
	snapshots map[string][]diversity.MutationRecord
	calls     map[string]int
	// Err, if set, is returned by every call.
	Err error
}

// NewSource gets an empty Source.
func NewSource() *Source {
	return &Source{
		snapshots: make(map[string][]diversity.MutationRecord),
		calls:     make(map[string]int),
	}
}

// Add stores recs as the snapshot of sel.
func (s *Source) Add(unit diversity.SequenceType, sel diversity.Selector, recs []diversity.MutationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[diversity.SnapshotName(unit, sel)] = recs
}

// Proportions implements diversity.Source. Missing snapshots return a
// wrapped diversity.ErrSnapshotNotFound.
func (s *Source) Proportions(ctx context.Context, unit diversity.SequenceType, sel diversity.Selector) ([]diversity.MutationRecord, error) {
	name := diversity.SnapshotName(unit, sel)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	if s.Err != nil {
		return nil, s.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs, ok := s.snapshots[name]
	if !ok {
		return nil, errors.Wrap(diversity.ErrSnapshotNotFound, name)
	}
	return recs, nil
}

// Calls returns how often the snapshot of sel was requested.
func (s *Source) Calls(unit diversity.SequenceType, sel diversity.Selector) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[diversity.SnapshotName(unit, sel)]
}

// Cache is an in-memory diversity.Cache.
type Cache struct {
	mu     sync.Mutex
	data   map[string][]byte
	Closed bool
}

// NewCache gets an empty Cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string][]byte)}
}

// Get implements diversity.Cache.
func (c *Cache) Get(key []byte) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[string(key)]
	return v, ok, nil
}

// Put implements diversity.Cache.
func (c *Cache) Put(key, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[string(key)] = append([]byte(nil), val...)
	return nil
}

// Close implements diversity.Cache.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
