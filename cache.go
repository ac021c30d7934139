package diversity

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Cache is a persistent byte store for snapshots. Get reports ok=false for
// a missing key.
type Cache interface {
	Get(key []byte) (val []byte, ok bool, err error)
	Put(key, val []byte) error
	Close() error
}

// CachingSource memoizes the snapshots of another Source in a Cache, keyed
// by sequence type and selector.
type CachingSource struct {
	Source Source
	Cache  Cache
	Log    Logger
}

// NewCachingSource wraps src with c.
func NewCachingSource(src Source, c Cache) *CachingSource {
	return &CachingSource{Source: src, Cache: c, Log: NopLogger{}}
}

// CacheKey is the key a snapshot is cached under.
func CacheKey(unit SequenceType, sel Selector) []byte {
	return []byte(unit.String() + "?" + sel.String())
}

// Proportions returns the cached snapshot if there is one, otherwise it
// fetches from the wrapped Source and stores the result.
func (c *CachingSource) Proportions(ctx context.Context, unit SequenceType, sel Selector) ([]MutationRecord, error) {
	key := CacheKey(unit, sel)
	val, ok, err := c.Cache.Get(key)
	if err != nil {
		return nil, errors.Wrapf(err, "reading cache for %s", key)
	}
	if ok {
		var recs []MutationRecord
		if err := json.Unmarshal(val, &recs); err != nil {
			return nil, errors.Wrapf(err, "decoding cached %s", key)
		}
		c.logger().Debugf("cache hit %s", key)
		return recs, nil
	}
	recs, err := c.Source.Proportions(ctx, unit, sel)
	if err != nil {
		return nil, err
	}
	val, err = json.Marshal(recs)
	if err != nil {
		return nil, errors.Wrap(err, "encoding snapshot")
	}
	if err := c.Cache.Put(key, val); err != nil {
		return nil, errors.Wrapf(err, "writing cache for %s", key)
	}
	return recs, nil
}

func (c *CachingSource) logger() Logger {
	if c.Log == nil {
		return NopLogger{}
	}
	return c.Log
}
