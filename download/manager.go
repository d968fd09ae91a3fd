// Package download implements dlk.DownloadManager. References may be local
// paths, file:// URLs, http(s):// URLs or s3://bucket/key references. Remote
// files are cached on disk and recognized archives are extracted once.
package download

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash"
	"github.com/pilosa/dlk"
	"github.com/pilosa/dlk/aws/s3"
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var _ dlk.BatchDownloadManager = &Manager{}

// Option is a functional option type for Manager.
type Option func(m *Manager)

// OptCacheDir sets the directory downloads and extractions are stored in.
func OptCacheDir(dir string) Option {
	return func(m *Manager) {
		m.cacheDir = dir
	}
}

// OptIndex sets the index which records cached files. The Manager does not
// close it.
func OptIndex(idx dlk.CacheIndex) Option {
	return func(m *Manager) {
		m.index = idx
	}
}

// OptLogger sets the logger.
func OptLogger(log logger.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// OptHTTPClient sets the client used for http and https references.
func OptHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		m.http = c
	}
}

// OptS3Client sets the client used for s3 references.
func OptS3Client(c *s3.Client) Option {
	return func(m *Manager) {
		m.s3 = c
	}
}

// OptS3Region sets the AWS region used if the Manager creates its own S3
// client.
func OptS3Region(region string) Option {
	return func(m *Manager) {
		m.s3Region = region
	}
}

// OptConcurrency sets how many references DownloadAndExtractAll fetches at
// once.
func OptConcurrency(n int) Option {
	return func(m *Manager) {
		m.concurrency = n
	}
}

// OptMaxRetries sets how many times a failed remote fetch is attempted in
// total.
func OptMaxRetries(n int) Option {
	return func(m *Manager) {
		m.maxRetries = n
	}
}

// Manager fetches references into a local cache directory. It is safe for
// concurrent use.
type Manager struct {
	cacheDir    string
	index       dlk.CacheIndex
	log         logger.Logger
	http        *http.Client
	s3mu        sync.Mutex
	s3          *s3.Client
	s3Region    string
	concurrency int
	maxRetries  int

	locks refLocker
}

// DefaultCacheDir returns the cache directory used when none is configured.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "dlk")
}

// NewManager returns a Manager with the options applied.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		log:         logger.NopLogger,
		http:        &http.Client{Timeout: 30 * time.Minute},
		s3Region:    "us-east-1",
		concurrency: 1,
		maxRetries:  3,
		locks:       newRefLocker(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cacheDir == "" {
		m.cacheDir = DefaultCacheDir()
	}
	if m.index == nil {
		m.index = dlk.NewMemCacheIndex()
	}
	if m.concurrency < 1 {
		m.concurrency = 1
	}
	if m.maxRetries < 1 {
		m.maxRetries = 1
	}
	for _, sub := range []string{"downloads", "extracted"} {
		if err := os.MkdirAll(filepath.Join(m.cacheDir, sub), 0755); err != nil {
			return nil, errors.Wrap(err, "making cache directory")
		}
	}
	return m, nil
}

// CacheDir returns the cache directory.
func (m *Manager) CacheDir() string { return m.cacheDir }

// DownloadAndExtract implements dlk.DownloadManager. Archives are extracted
// and the extraction directory is returned; other files are returned as
// downloaded.
func (m *Manager) DownloadAndExtract(ctx context.Context, ref string) (string, error) {
	p, err := m.Download(ctx, ref)
	if err != nil {
		return "", err
	}
	kind := ArchiveKind(p)
	if kind == NotArchive {
		return p, nil
	}
	return m.extract(p, kind)
}

// DownloadAndExtractAll calls DownloadAndExtract for each reference, several
// at once if the Manager's concurrency allows it. Paths are returned in the
// order of refs. The first error cancels the remaining fetches.
func (m *Manager) DownloadAndExtractAll(ctx context.Context, refs []string) ([]string, error) {
	paths := make([]string, len(refs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(m.concurrency)
	for i, ref := range refs {
		i, ref := i, ref
		eg.Go(func() error {
			p, err := m.DownloadAndExtract(ctx, ref)
			if err != nil {
				return errors.Wrapf(err, "downloading '%s'", ref)
			}
			paths[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// Download makes ref available on local disk without extracting it. Local
// paths are returned as absolute paths after checking that they exist.
func (m *Manager) Download(ctx context.Context, ref string) (string, error) {
	u, err := parseRef(ref)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "", "file":
		p := u.Path
		if u.Scheme == "" {
			p = ref
		}
		p, err := filepath.Abs(filepath.FromSlash(p))
		if err != nil {
			return "", errors.Wrapf(err, "getting absolute path of '%s'", ref)
		}
		if _, err := os.Stat(p); err != nil {
			return "", errors.Wrapf(err, "finding '%s'", ref)
		}
		return p, nil
	case "http", "https", s3.Scheme:
		return m.fetch(ctx, ref, u)
	default:
		return "", errors.Errorf("unsupported scheme '%s' in '%s'", u.Scheme, ref)
	}
}

// parseRef treats anything without a scheme, including Windows drive paths,
// as a local path.
func parseRef(ref string) (*url.URL, error) {
	if !strings.Contains(ref, "://") {
		return &url.URL{Path: ref}, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing '%s'", ref)
	}
	return u, nil
}

// cacheKey is the name of the directory a reference is cached under.
func cacheKey(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

func (m *Manager) fetch(ctx context.Context, ref string, u *url.URL) (string, error) {
	m.locks.Lock(ref)
	defer m.locks.Unlock(ref)

	e, err := m.index.Get(ref)
	if err == nil && exists(e.Path) {
		m.log.Debugf("using cached %s for %s", e.Path, ref)
		return e.Path, nil
	} else if err != nil && errors.Cause(err) != dlk.ErrNotCached {
		return "", errors.Wrap(err, "checking cache index")
	}

	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		base = "data"
	}
	dir := filepath.Join(m.cacheDir, "downloads", cacheKey(ref))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "making download directory")
	}
	dest := filepath.Join(dir, base)

	m.log.Printf("downloading %s", ref)
	start := time.Now()
	entry := dlk.CacheEntry{URL: ref, Path: dest}
	for try := 0; try < m.maxRetries; try++ {
		if try > 0 {
			m.log.Printf("retrying %s after: %v", ref, err)
		}
		entry.ETag, entry.Size, err = m.fetchTry(ctx, ref, u.Scheme, dest)
		if err == nil || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return "", errors.Wrapf(err, "couldn't fetch '%s' - tried %d times, latest", ref, m.maxRetries)
	}
	entry.Fetched = time.Now().UTC()
	if err := m.index.Put(entry); err != nil {
		return "", errors.Wrap(err, "recording download")
	}
	m.log.Printf("downloaded %d bytes from %s in %v", entry.Size, ref, time.Since(start))
	return dest, nil
}

func (m *Manager) fetchTry(ctx context.Context, ref, scheme, dest string) (etag string, size int64, err error) {
	var body io.ReadCloser
	if scheme == s3.Scheme {
		body, etag, err = m.openS3(ctx, ref)
	} else {
		body, etag, err = m.openHTTP(ctx, ref)
	}
	if err != nil {
		return "", 0, err
	}
	defer body.Close()
	size, err = writeAtomic(dest, body)
	return etag, size, errors.Wrapf(err, "saving %s", ref)
}

func (m *Manager) openHTTP(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	req, err := http.NewRequest(http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "creating request")
	}
	resp, err := m.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, "", errors.Wrapf(err, "getting %s", ref)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, "", errors.Errorf("getting %s: unexpected status %s", ref, resp.Status)
	}
	return resp.Body, resp.Header.Get("ETag"), nil
}

func (m *Manager) openS3(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	m.s3mu.Lock()
	if m.s3 == nil {
		c, err := s3.NewClient(s3.OptRegion(m.s3Region))
		if err != nil {
			m.s3mu.Unlock()
			return nil, "", errors.Wrap(err, "getting s3 client")
		}
		m.s3 = c
	}
	client := m.s3
	m.s3mu.Unlock()
	obj, err := client.GetRef(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	return obj, obj.ETag, nil
}

// extract unpacks the archive at p, recording the extraction directory in the
// index entry for p. An earlier extraction is reused while the archive's size
// and modification time are unchanged.
func (m *Manager) extract(p string, kind Kind) (string, error) {
	key := "extract:" + p
	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	fi, err := os.Stat(p)
	if err != nil {
		return "", errors.Wrap(err, "checking archive")
	}
	e, err := m.index.Get(key)
	if err == nil && exists(e.Extracted) && e.Size == fi.Size() && e.ModTime.Equal(fi.ModTime()) {
		m.log.Debugf("using extracted %s for %s", e.Extracted, p)
		return e.Extracted, nil
	} else if err != nil && errors.Cause(err) != dlk.ErrNotCached {
		return "", errors.Wrap(err, "checking cache index")
	}

	final := filepath.Join(m.cacheDir, "extracted", cacheKey(p))
	tmp, err := ioutil.TempDir(filepath.Join(m.cacheDir, "extracted"), ".tmp-")
	if err != nil {
		return "", errors.Wrap(err, "making temp directory")
	}
	m.log.Printf("extracting %s", p)
	out, err := Extract(p, tmp, kind, m.log)
	if err != nil {
		os.RemoveAll(tmp)
		return "", err
	}
	// a partial extraction from an earlier run may be in the way
	if err := os.RemoveAll(final); err != nil {
		os.RemoveAll(tmp)
		return "", errors.Wrap(err, "removing stale extraction")
	}
	if err := os.Rename(tmp, final); err != nil {
		os.RemoveAll(tmp)
		return "", errors.Wrap(err, "moving extraction into place")
	}
	rel, err := filepath.Rel(tmp, out)
	if err != nil {
		return "", errors.Wrap(err, "locating extracted path")
	}
	out = filepath.Join(final, rel)

	err = m.index.Put(dlk.CacheEntry{
		URL:       key,
		Path:      p,
		Extracted: out,
		Size:      fi.Size(),
		Fetched:   time.Now().UTC(),
		ModTime:   fi.ModTime(),
	})
	if err != nil {
		return "", errors.Wrap(err, "recording extraction")
	}
	return out, nil
}

func exists(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

// writeAtomic copies r to a temporary file next to dest and renames it into
// place once the copy is complete.
func writeAtomic(dest string, r io.Reader) (int64, error) {
	f, err := ioutil.TempFile(filepath.Dir(dest), ".download-")
	if err != nil {
		return 0, errors.Wrap(err, "creating temp file")
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return n, errors.Wrap(err, "copying")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return n, errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(f.Name(), dest); err != nil {
		os.Remove(f.Name())
		return n, errors.Wrap(err, "renaming temp file")
	}
	return n, nil
}
