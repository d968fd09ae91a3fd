// Package file provides a dlk.RawSource which reads files from disk.
package file

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/pilosa/dlk"
	"github.com/pkg/errors"
)

var _ dlk.RawSource = &RawSource{}

// RawSource hands out one reader per file, in the order the files were given.
// Directories are expanded to the regular files they directly contain, sorted
// by name.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// NewRawSource gets a RawSource for pathname, which may be a file or a
// directory.
func NewRawSource(pathname string) (*RawSource, error) {
	return NewRawSourceFromPaths([]string{pathname})
}

// NewRawSourceFromPaths gets a RawSource for a list of files and directories.
func NewRawSourceFromPaths(pathnames []string) (*RawSource, error) {
	fileIdx := uint64(0)
	s := &RawSource{
		fileIdx: &fileIdx,
		files:   make([]string, 0, len(pathnames)),
	}
	for _, pathname := range pathnames {
		info, err := os.Stat(pathname)
		if err != nil {
			return nil, errors.Wrap(err, "statting path")
		}
		if !info.IsDir() {
			s.files = append(s.files, pathname)
			continue
		}
		infos, err := ioutil.ReadDir(pathname)
		if err != nil {
			return nil, errors.Wrap(err, "reading directory")
		}
		for _, info = range infos {
			if !info.Mode().IsRegular() {
				continue
			}
			s.files = append(s.files, filepath.Join(pathname, info.Name()))
		}
	}
	return s, nil
}

// Files returns the paths this RawSource will open, in order.
func (s *RawSource) Files() []string {
	ret := make([]string, len(s.files))
	copy(ret, s.files)
	return ret
}

type metaFile struct {
	*os.File
}

func (m *metaFile) Name() string {
	return filepath.Base(m.File.Name())
}

func (m *metaFile) Meta() map[string]interface{} {
	return map[string]interface{}{"path": m.File.Name()}
}

// NextReader opens the next file. It returns io.EOF when there are no more
// files.
func (s *RawSource) NextReader() (dlk.NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}

	file, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}

	return &metaFile{file}, nil
}
