package download

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pilosa/dlk"
	"github.com/pkg/errors"
)

// Main contains the configuration for fetching references into the cache and
// printing their local paths, one per line.
type Main struct {
	Refs    []string `help:"References to fetch: local paths, file://, http(s)://, or s3://bucket/key."`
	Extract bool     `help:"Extract archives and print the extraction path instead of the archive path."`
	LogPath string   `help:"Log file to write to. Empty means stderr."`
	Verbose bool     `help:"Enable verbose logging."`

	Cache  Config    `flag:"-"`
	Stdout io.Writer `flag:"-"`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Extract: true,
		Cache:   NewConfig(),
		Stdout:  os.Stdout,
	}
}

// Run fetches every reference.
func (m *Main) Run() error {
	if len(m.Refs) == 0 {
		return errors.Wrap(dlk.ErrNoDataFiles, "no references given")
	}
	log, logCloser, err := dlk.OpenLogger(m.LogPath, m.Verbose)
	if err != nil {
		return errors.Wrap(err, "setting up logging")
	}
	defer logCloser.Close()

	dm, closer, err := m.Cache.Open(log)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := context.Background()
	var paths []string
	if m.Extract {
		paths, err = dm.DownloadAndExtractAll(ctx, m.Refs)
		if err != nil {
			return err
		}
	} else {
		for _, ref := range m.Refs {
			p, err := dm.Download(ctx, ref)
			if err != nil {
				return errors.Wrapf(err, "downloading '%s'", ref)
			}
			paths = append(paths, p)
		}
	}
	for _, p := range paths {
		if _, err := fmt.Fprintln(m.Stdout, p); err != nil {
			return errors.Wrap(err, "writing path")
		}
	}
	return nil
}
