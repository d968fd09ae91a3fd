// Package boltdb provides a dlk.CacheIndex implementation using boltdb.
package boltdb

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/pilosa/dlk"
	"github.com/pkg/errors"
)

var _ dlk.CacheIndex = &Index{}

var entryBucket = []byte("entries")

// Index is a dlk.CacheIndex which stores each entry as JSON in a single
// bucket keyed by URL.
type Index struct {
	Db *bolt.DB
}

// NewIndex opens (creating if necessary) the boltdb file at filename.
func NewIndex(filename string) (*Index, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entryBucket)
		return errors.Wrap(err, "creating entries bucket")
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return &Index{Db: db}, nil
}

// Get implements dlk.CacheIndex.
func (bi *Index) Get(url string) (e dlk.CacheEntry, err error) {
	var data []byte
	err = bi.Db.View(func(tx *bolt.Tx) error {
		// The value is only valid during the transaction.
		if v := tx.Bucket(entryBucket).Get([]byte(url)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return e, errors.Wrapf(err, "looking up '%s'", url)
	}
	if data == nil {
		return e, dlk.ErrNotCached
	}
	return dlk.UnmarshalCacheEntry(data)
}

// Put implements dlk.CacheIndex.
func (bi *Index) Put(e dlk.CacheEntry) error {
	data, err := dlk.MarshalCacheEntry(e)
	if err != nil {
		return err
	}
	err = bi.Db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entryBucket).Put([]byte(e.URL), data)
	})
	return errors.Wrapf(err, "inserting entry for '%s'", e.URL)
}

// Delete implements dlk.CacheIndex.
func (bi *Index) Delete(url string) error {
	err := bi.Db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entryBucket).Delete([]byte(url))
	})
	return errors.Wrapf(err, "deleting entry for '%s'", url)
}

// Close syncs and closes the underlying boltdb.
func (bi *Index) Close() error {
	err := bi.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return bi.Db.Close()
}
