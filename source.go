package dlk

import (
	"context"
	"io"
)

// NamedReadCloser is an io.ReadCloser which knows the name of the resource it
// reads from (e.g. a file name or an object key).
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
	Meta() map[string]interface{}
}

// RawSource is the interface for getting a sequence of readers, one per
// underlying resource. NextReader returns io.EOF once every resource has been
// handed out.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}

// DownloadManager turns a file reference (a local path, a URL, an S3 object,
// etc.) into a local path which is ready to be read. If the reference is an
// archive, the returned path is the directory it was extracted into.
type DownloadManager interface {
	DownloadAndExtract(ctx context.Context, ref string) (string, error)
}

// BatchDownloadManager is a DownloadManager which can resolve many references
// in one call. Paths are returned in the order of refs.
type BatchDownloadManager interface {
	DownloadManager
	DownloadAndExtractAll(ctx context.Context, refs []string) ([]string, error)
}

// LocalFiles is a DownloadManager for data which is already on disk. It
// returns every reference unchanged.
type LocalFiles struct{}

// DownloadAndExtract implements DownloadManager.
func (LocalFiles) DownloadAndExtract(ctx context.Context, ref string) (string, error) {
	return ref, nil
}

// Error is a constant error type used for sentinel errors throughout dlk.
type Error string

func (e Error) Error() string { return string(e) }
