package download_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pilosa/dlk"
	"github.com/pilosa/dlk/boltdb"
	"github.com/pilosa/dlk/download"
	"github.com/pilosa/dlk/test"
	"github.com/pkg/errors"
)

type file struct {
	name, body string
}

func tgz(t *testing.T, files ...file) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	tw := tar.NewWriter(gz)
	for _, f := range files {
		err := tw.WriteHeader(&tar.Header{Name: f.name, Mode: 0644, Size: int64(len(f.body)), Typeflag: tar.TypeReg})
		test.ErrNil(t, err, "writing tar header")
		_, err = tw.Write([]byte(f.body))
		test.ErrNil(t, err, "writing tar body")
	}
	test.ErrNil(t, tw.Close(), "closing tar")
	test.ErrNil(t, gz.Close(), "closing gzip")
	return buf.Bytes()
}

func zipped(t *testing.T, files ...file) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		test.ErrNil(t, err, "creating zip entry")
		_, err = w.Write([]byte(f.body))
		test.ErrNil(t, err, "writing zip entry")
	}
	test.ErrNil(t, zw.Close(), "closing zip")
	return buf.Bytes()
}

// server serves content by path and counts requests.
func server(t *testing.T, content map[string][]byte) (*httptest.Server, *int64) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		body, ok := content[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newManager(t *testing.T, opts ...download.Option) *download.Manager {
	t.Helper()
	opts = append([]download.Option{download.OptCacheDir(test.MustTempDir(t, "dlcache"))}, opts...)
	m, err := download.NewManager(opts...)
	test.ErrNil(t, err, "new manager")
	return m
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := ioutil.ReadFile(name)
	test.ErrNil(t, err, "reading "+name)
	return string(data)
}

func TestDownloadHTTPCached(t *testing.T) {
	srv, hits := server(t, map[string][]byte{"/data/train.csv": []byte("a,b\n1,2\n")})
	m := newManager(t)
	ref := srv.URL + "/data/train.csv"

	p, err := m.DownloadAndExtract(context.Background(), ref)
	test.ErrNil(t, err, "downloading")
	test.MustBe(t, "train.csv", filepath.Base(p))
	test.MustBe(t, "a,b\n1,2\n", readFile(t, p))
	if !strings.HasPrefix(p, filepath.Join(m.CacheDir(), "downloads")) {
		t.Fatalf("expected download under the cache dir, got %s", p)
	}

	p2, err := m.DownloadAndExtract(context.Background(), ref)
	test.ErrNil(t, err, "downloading again")
	test.MustBe(t, p, p2)
	test.MustBe(t, int64(1), atomic.LoadInt64(hits), "server hits")
}

func TestDownloadHTTPNotFound(t *testing.T) {
	srv, _ := server(t, nil)
	m := newManager(t)
	_, err := m.DownloadAndExtract(context.Background(), srv.URL+"/missing.csv")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
}

func TestDownloadAndExtractTgz(t *testing.T) {
	archive := tgz(t,
		file{"acl_datasets/en/data/en_wiki.conll", "John\tPER\n\n"},
		file{"acl_datasets/de/data/de_wiki.conll", "Berlin\tLOC\n\n"},
	)
	srv, hits := server(t, map[string][]byte{"/ner2/emnlp_datasets.tgz": archive})
	m := newManager(t)
	ref := srv.URL + "/ner2/emnlp_datasets.tgz"

	root, err := m.DownloadAndExtract(context.Background(), ref)
	test.ErrNil(t, err, "downloading and extracting")
	test.MustBe(t, "John\tPER\n\n", readFile(t, filepath.Join(root, "acl_datasets", "en", "data", "en_wiki.conll")))
	if !strings.HasPrefix(root, filepath.Join(m.CacheDir(), "extracted")) {
		t.Fatalf("expected extraction under the cache dir, got %s", root)
	}

	root2, err := m.DownloadAndExtract(context.Background(), ref)
	test.ErrNil(t, err, "second call")
	test.MustBe(t, root, root2)
	test.MustBe(t, int64(1), atomic.LoadInt64(hits), "server hits")
}

func TestDownloadAndExtractLocal(t *testing.T) {
	dir := test.MustTempDir(t, "dllocal")
	zipName := test.MustWriteFile(t, dir, "data.zip", string(zipped(t, file{"sub/x.csv", "x\n1\n"})))
	gzBuf := &bytes.Buffer{}
	gz := gzip.NewWriter(gzBuf)
	gz.Write([]byte("y\n2\n"))
	test.ErrNil(t, gz.Close(), "closing gzip")
	gzName := test.MustWriteFile(t, dir, "y.csv.gz", gzBuf.String())
	plain := test.MustWriteFile(t, dir, "plain.csv", "z\n3\n")

	m := newManager(t)
	ctx := context.Background()

	root, err := m.DownloadAndExtract(ctx, zipName)
	test.ErrNil(t, err, "extracting zip")
	test.MustBe(t, "x\n1\n", readFile(t, filepath.Join(root, "sub", "x.csv")))

	y, err := m.DownloadAndExtract(ctx, "file://"+filepath.ToSlash(gzName))
	test.ErrNil(t, err, "decompressing gzip")
	test.MustBe(t, "y.csv", filepath.Base(y))
	test.MustBe(t, "y\n2\n", readFile(t, y))

	p, err := m.DownloadAndExtract(ctx, plain)
	test.ErrNil(t, err, "plain file")
	test.MustBe(t, plain, p)

	if _, err := m.DownloadAndExtract(ctx, filepath.Join(dir, "nope.csv")); err == nil {
		t.Fatal("expected error for missing local file")
	}
	if _, err := m.DownloadAndExtract(ctx, "ftp://example.com/x.csv"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestExtractArchiveRewritten(t *testing.T) {
	dir := test.MustTempDir(t, "dlrewritten")
	name := test.MustWriteFile(t, dir, "data.zip", string(zipped(t, file{"x.csv", "old\n"})))
	m := newManager(t)
	ctx := context.Background()

	root, err := m.DownloadAndExtract(ctx, name)
	test.ErrNil(t, err, "extracting")
	test.MustBe(t, "old\n", readFile(t, filepath.Join(root, "x.csv")))

	test.MustWriteFile(t, dir, "data.zip", string(zipped(t, file{"x.csv", "newer\n"})))
	later := time.Now().Add(time.Hour)
	test.ErrNil(t, os.Chtimes(name, later, later), "touching archive")

	root2, err := m.DownloadAndExtract(ctx, name)
	test.ErrNil(t, err, "extracting rewritten archive")
	test.MustBe(t, "newer\n", readFile(t, filepath.Join(root2, "x.csv")))

	root3, err := m.DownloadAndExtract(ctx, name)
	test.ErrNil(t, err, "extracting unchanged archive")
	test.MustBe(t, root2, root3)
}

func TestExtractRejectsTraversal(t *testing.T) {
	dir := test.MustTempDir(t, "dltraversal")
	tgzName := test.MustWriteFile(t, dir, "evil.tgz", string(tgz(t, file{"../../evil.txt", "boom"})))
	zipName := test.MustWriteFile(t, dir, "evil.zip", string(zipped(t, file{"../evil.txt", "boom"})))

	m := newManager(t)
	for _, name := range []string{tgzName, zipName} {
		_, err := m.DownloadAndExtract(context.Background(), name)
		if errors.Cause(err) != download.ErrUnsafePath {
			t.Fatalf("expected ErrUnsafePath for %s, got %v", filepath.Base(name), err)
		}
	}
}

func TestArchiveKind(t *testing.T) {
	tests := map[string]download.Kind{
		"a.tar.gz":  download.TarGz,
		"a.TGZ":     download.TarGz,
		"a.tar":     download.Tar,
		"a.zip":     download.Zip,
		"a.csv.gz":  download.Gzip,
		"a.csv":     download.NotArchive,
		"a.conll":   download.NotArchive,
		"gz":        download.NotArchive,
		"dir/x.zip": download.Zip,
	}
	for name, exp := range tests {
		test.MustBe(t, exp, download.ArchiveKind(name), name)
	}
}

func TestDownloadAndExtractAll(t *testing.T) {
	content := map[string][]byte{
		"/a.csv": []byte("a\n"),
		"/b.csv": []byte("b\n"),
		"/c.csv": []byte("c\n"),
	}
	srv, _ := server(t, content)
	m := newManager(t, download.OptConcurrency(3))
	refs := []string{srv.URL + "/c.csv", srv.URL + "/a.csv", srv.URL + "/b.csv"}

	paths, err := m.DownloadAndExtractAll(context.Background(), refs)
	test.ErrNil(t, err, "downloading all")
	test.MustBe(t, 3, len(paths))
	for i, exp := range []string{"c\n", "a\n", "b\n"} {
		test.MustBe(t, exp, readFile(t, paths[i]))
	}

	_, err = m.DownloadAndExtractAll(context.Background(), append(refs, srv.URL+"/missing.csv"))
	if err == nil || !strings.Contains(err.Error(), "missing.csv") {
		t.Fatalf("expected error naming missing.csv, got %v", err)
	}
}

func TestPersistentIndex(t *testing.T) {
	srv, hits := server(t, map[string][]byte{"/x.csv": []byte("x\n")})
	cache := test.MustTempDir(t, "dlpersist")
	ref := srv.URL + "/x.csv"

	for i := 0; i < 2; i++ {
		idx, err := boltdb.NewIndex(filepath.Join(cache, "index.db"))
		test.ErrNil(t, err, "opening index")
		m, err := download.NewManager(download.OptCacheDir(cache), download.OptIndex(idx))
		test.ErrNil(t, err, "new manager")
		_, err = m.DownloadAndExtract(context.Background(), ref)
		test.ErrNil(t, err, "downloading")
		e, err := idx.Get(ref)
		test.ErrNil(t, err, "getting entry")
		test.MustBe(t, `"v1"`, e.ETag)
		test.MustBe(t, int64(2), e.Size)
		test.ErrNil(t, idx.Close(), "closing index")
	}
	test.MustBe(t, int64(1), atomic.LoadInt64(hits), "server hits")
}

func TestManagerResolvesDataFiles(t *testing.T) {
	srv, _ := server(t, map[string][]byte{"/train.csv": []byte("t\n"), "/test.csv": []byte("s\n")})
	m := newManager(t)
	d := dlk.DataFiles{Splits: map[dlk.Split][]string{
		dlk.Train: {srv.URL + "/train.csv"},
		dlk.Test:  {srv.URL + "/test.csv"},
	}}
	resolved, err := dlk.ResolveDataFiles(context.Background(), m, d)
	test.ErrNil(t, err, "resolving")
	test.MustBe(t, "t\n", readFile(t, resolved.Splits[dlk.Train][0]))
	test.MustBe(t, "s\n", readFile(t, resolved.Splits[dlk.Test][0]))
}

func TestDownloadRetries(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) == 1 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	m := newManager(t, download.OptMaxRetries(2))
	p, err := m.DownloadAndExtract(context.Background(), srv.URL+"/flaky.txt")
	test.ErrNil(t, err, "downloading")
	test.MustBe(t, "ok", readFile(t, p))
	test.MustBe(t, int64(2), atomic.LoadInt64(&hits))

	m = newManager(t, download.OptMaxRetries(1))
	atomic.StoreInt64(&hits, 0)
	if _, err := m.DownloadAndExtract(context.Background(), srv.URL+"/flaky2.txt"); err == nil {
		t.Fatal("expected error without retries")
	}
}
