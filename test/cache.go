package test

import (
	"testing"
	"time"

	"github.com/pilosa/dlk"
	"github.com/pkg/errors"
)

// CacheIndex exercises the behavior every dlk.CacheIndex must have. It does
// not close idx.
func CacheIndex(t *testing.T, idx dlk.CacheIndex) {
	t.Helper()
	const url = "http://example.com/data/train.csv.gz"

	_, err := idx.Get(url)
	if errors.Cause(err) != dlk.ErrNotCached {
		t.Fatalf("expected ErrNotCached for new url, got %v", err)
	}

	fetched := time.Date(2018, 11, 30, 17, 12, 12, 0, time.UTC)
	e := dlk.CacheEntry{
		URL:     url,
		Path:    "/cache/downloads/1234/train.csv.gz",
		ETag:    `"abc"`,
		Size:    2048,
		Fetched: fetched,
	}
	ErrNil(t, idx.Put(e), "putting entry")
	got, err := idx.Get(url)
	ErrNil(t, err, "getting entry")
	MustBe(t, e, got)

	e.Extracted = "/cache/extracted/1234"
	ErrNil(t, idx.Put(e), "replacing entry")
	got, err = idx.Get(url)
	ErrNil(t, err, "getting replaced entry")
	MustBe(t, "/cache/extracted/1234", got.Extracted)

	other := dlk.CacheEntry{URL: "s3://bucket/other", Path: "/cache/other", Fetched: fetched}
	ErrNil(t, idx.Put(other), "putting other entry")

	ErrNil(t, idx.Delete(url), "deleting entry")
	if _, err := idx.Get(url); errors.Cause(err) != dlk.ErrNotCached {
		t.Fatalf("expected ErrNotCached after delete, got %v", err)
	}
	got, err = idx.Get(other.URL)
	ErrNil(t, err, "getting other entry")
	MustBe(t, other, got)
	ErrNil(t, idx.Delete("never-added"), "deleting unknown url")
}
