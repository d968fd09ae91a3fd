// Package leveldb provides a dlk.CacheIndex implementation using leveldb.
package leveldb

import (
	"os"

	"github.com/pilosa/dlk"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var _ dlk.CacheIndex = &Index{}

// Index is a dlk.CacheIndex which stores each entry as JSON keyed by URL in a
// leveldb directory.
type Index struct {
	dirname string
	db      *leveldb.DB
}

// NewIndex opens (creating if necessary) the leveldb in dirname.
func NewIndex(dirname string) (*Index, error) {
	err := os.MkdirAll(dirname, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	db, err := leveldb.OpenFile(dirname, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname)
	}
	return &Index{dirname: dirname, db: db}, nil
}

// Get implements dlk.CacheIndex.
func (li *Index) Get(url string) (dlk.CacheEntry, error) {
	data, err := li.db.Get([]byte(url), nil)
	if err == leveldb.ErrNotFound {
		return dlk.CacheEntry{}, dlk.ErrNotCached
	} else if err != nil {
		return dlk.CacheEntry{}, errors.Wrapf(err, "fetching '%s'", url)
	}
	return dlk.UnmarshalCacheEntry(data)
}

// Put implements dlk.CacheIndex.
func (li *Index) Put(e dlk.CacheEntry) error {
	data, err := dlk.MarshalCacheEntry(e)
	if err != nil {
		return err
	}
	err = li.db.Put([]byte(e.URL), data, &opt.WriteOptions{Sync: true})
	return errors.Wrapf(err, "inserting entry for '%s'", e.URL)
}

// Delete implements dlk.CacheIndex.
func (li *Index) Delete(url string) error {
	return errors.Wrapf(li.db.Delete([]byte(url), nil), "deleting entry for '%s'", url)
}

// Close closes the underlying leveldb.
func (li *Index) Close() error {
	return errors.Wrapf(li.db.Close(), "closing leveldb at %v", li.dirname)
}
