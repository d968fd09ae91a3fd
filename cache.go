package dlk

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// CacheEntry records where a downloaded reference is stored locally.
type CacheEntry struct {
	// URL is the reference as it was given to the download manager.
	URL string `json:"url"`

	// Path is the local file the reference was downloaded to.
	Path string `json:"path"`

	// Extracted is the directory an archive was extracted into, if any.
	Extracted string `json:"extracted,omitempty"`

	ETag    string    `json:"etag,omitempty"`
	Size    int64     `json:"size"`
	Fetched time.Time `json:"fetched"`

	// ModTime is the modification time of a local file the entry was made
	// from. Extractions are only reused while it and Size still match.
	ModTime time.Time `json:"mod_time,omitempty"`
}

// CacheIndex stores CacheEntries keyed by URL. Get returns ErrNotCached if the
// URL has no entry. Implementations are safe for concurrent use.
type CacheIndex interface {
	Get(url string) (CacheEntry, error)
	Put(e CacheEntry) error
	Delete(url string) error
	Close() error
}

// ErrNotCached is returned by CacheIndex.Get for unknown URLs.
const ErrNotCached = Error("not cached")

// MarshalCacheEntry encodes e for storage in a key/value CacheIndex.
func MarshalCacheEntry(e CacheEntry) ([]byte, error) {
	data, err := json.Marshal(e)
	return data, errors.Wrap(err, "marshaling cache entry")
}

// UnmarshalCacheEntry decodes data written by MarshalCacheEntry.
func UnmarshalCacheEntry(data []byte) (CacheEntry, error) {
	e := CacheEntry{}
	err := json.Unmarshal(data, &e)
	return e, errors.Wrap(err, "unmarshaling cache entry")
}

// MemCacheIndex is a CacheIndex which keeps its entries in memory.
type MemCacheIndex struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewMemCacheIndex returns an empty MemCacheIndex.
func NewMemCacheIndex() *MemCacheIndex {
	return &MemCacheIndex{entries: make(map[string]CacheEntry)}
}

// Get implements CacheIndex.
func (m *MemCacheIndex) Get(url string) (CacheEntry, error) {
	m.mu.RLock()
	e, ok := m.entries[url]
	m.mu.RUnlock()
	if !ok {
		return CacheEntry{}, ErrNotCached
	}
	return e, nil
}

// Put implements CacheIndex.
func (m *MemCacheIndex) Put(e CacheEntry) error {
	m.mu.Lock()
	m.entries[e.URL] = e
	m.mu.Unlock()
	return nil
}

// Delete implements CacheIndex.
func (m *MemCacheIndex) Delete(url string) error {
	m.mu.Lock()
	delete(m.entries, url)
	m.mu.Unlock()
	return nil
}

// Close implements CacheIndex.
func (m *MemCacheIndex) Close() error { return nil }
