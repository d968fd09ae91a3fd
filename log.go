package dlk

import (
	"io"
	"os"

	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenLogger returns a logger writing to the file at path (appending), or to
// stderr if path is empty. The returned Closer closes the log file.
func OpenLogger(path string, verbose bool) (logger.Logger, io.Closer, error) {
	var logOut io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if path != "" {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening log file")
		}
		logOut, closer = f, f
	}
	if verbose {
		return logger.NewVerboseLogger(logOut), closer, nil
	}
	return logger.NewStandardLogger(logOut), closer, nil
}
