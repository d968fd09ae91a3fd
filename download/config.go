package download

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pilosa/dlk"
	"github.com/pilosa/dlk/boltdb"
	"github.com/pilosa/dlk/leveldb"
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
)

// Config holds the command line configuration of a Manager.
type Config struct {
	Dir string

	// Index is bolt, leveldb, or none (in memory).
	Index       string
	Concurrency int
	S3Region    string
}

// NewConfig returns the default Config.
func NewConfig() Config {
	return Config{
		Dir:         DefaultCacheDir(),
		Index:       "bolt",
		Concurrency: 1,
		S3Region:    "us-east-1",
	}
}

// Open opens the configured cache index and returns a Manager using it. The
// returned Closer closes the index.
func (c Config) Open(log logger.Logger) (*Manager, io.Closer, error) {
	if c.Dir == "" {
		c.Dir = DefaultCacheDir()
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return nil, nil, errors.Wrap(err, "making cache directory")
	}
	var idx dlk.CacheIndex
	var err error
	switch c.Index {
	case "bolt", "boltdb":
		idx, err = boltdb.NewIndex(filepath.Join(c.Dir, "index.db"))
	case "leveldb":
		idx, err = leveldb.NewIndex(filepath.Join(c.Dir, "index"))
	case "none", "":
		idx = dlk.NewMemCacheIndex()
	default:
		return nil, nil, errors.Errorf("unknown cache index '%s', must be bolt, leveldb, or none", c.Index)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening cache index")
	}
	m, err := NewManager(
		OptCacheDir(c.Dir),
		OptIndex(idx),
		OptLogger(log),
		OptConcurrency(c.Concurrency),
		OptS3Region(c.S3Region),
	)
	if err != nil {
		idx.Close()
		return nil, nil, errors.Wrap(err, "creating download manager")
	}
	return m, idx, nil
}
