// Package boltdb provides a diversity.Cache implementation using boltdb.
// Snapshots are written once and read many times, which suits bolt's single
// writer.
package boltdb

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/pilosa/diversity"
	"github.com/pkg/errors"
)

var snapshotBucket = []byte("snapshots")

var _ diversity.Cache = &Cache{}

// Cache is a diversity.Cache which stores snapshots in a single bolt bucket.
type Cache struct {
	Db *bolt.DB
}

// NewCache opens (or creates) the bolt file at filename.
func NewCache(filename string) (*Cache, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return errors.Wrap(err, "creating snapshots bucket")
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return &Cache{Db: db}, nil
}

// Get implements diversity.Cache. The returned slice is a copy; bolt's
// memory is only valid inside the transaction.
func (c *Cache) Get(key []byte) (val []byte, ok bool, err error) {
	err = c.Db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(snapshotBucket).Get(key)
		if v != nil {
			val = append([]byte(nil), v...)
			ok = true
		}
		return nil
	})
	return val, ok, errors.Wrap(err, "viewing")
}

// Put implements diversity.Cache.
func (c *Cache) Put(key, val []byte) error {
	err := c.Db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put(key, val)
	})
	return errors.Wrap(err, "updating")
}

// Close syncs and closes the underlying boltdb.
func (c *Cache) Close() error {
	err := c.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return c.Db.Close()
}
