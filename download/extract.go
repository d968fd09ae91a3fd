package download

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pilosa/dlk"
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
)

// Kind is an archive format recognized by file name.
type Kind int

const (
	NotArchive Kind = iota
	Tar
	TarGz
	Zip
	Gzip
)

// ArchiveKind determines the archive format of name from its extension.
func ArchiveKind(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return TarGz
	case strings.HasSuffix(lower, ".tar"):
		return Tar
	case strings.HasSuffix(lower, ".zip"):
		return Zip
	case strings.HasSuffix(lower, ".gz"):
		return Gzip
	default:
		return NotArchive
	}
}

// ErrUnsafePath is returned when an archive entry would be written outside
// the extraction directory.
const ErrUnsafePath = dlk.Error("archive entry escapes the extraction directory")

// Extract unpacks the archive at path into the directory dest, which is
// created if necessary. For Gzip, dest receives a single file named after
// path without its .gz extension. It returns the path a caller should read:
// dest for directory archives, the decompressed file for Gzip.
func Extract(path, dest string, kind Kind, log logger.Logger) (string, error) {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", errors.Wrap(err, "making extraction directory")
	}
	switch kind {
	case Tar, TarGz:
		f, err := os.Open(path)
		if err != nil {
			return "", errors.Wrap(err, "opening archive")
		}
		defer f.Close()
		var r io.Reader = f
		if kind == TarGz {
			gz, err := gzip.NewReader(f)
			if err != nil {
				return "", errors.Wrap(err, "reading gzip header")
			}
			defer gz.Close()
			r = gz
		}
		return dest, errors.Wrapf(extractTar(r, dest, log), "extracting %s", path)
	case Zip:
		return dest, errors.Wrapf(extractZip(path, dest, log), "extracting %s", path)
	case Gzip:
		name := filepath.Join(dest, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		f, err := os.Open(path)
		if err != nil {
			return "", errors.Wrap(err, "opening archive")
		}
		defer f.Close()
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", errors.Wrap(err, "reading gzip header")
		}
		defer gz.Close()
		return name, errors.Wrapf(writeFile(name, gz, 0644), "decompressing %s", path)
	default:
		return "", errors.Errorf("'%s' is not a recognized archive", path)
	}
}

// target returns the path for an archive entry, rejecting entries which are
// absolute or climb out of dest.
func target(dest, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", errors.Wrapf(ErrUnsafePath, "entry '%s'", name)
	}
	t := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, t)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrUnsafePath, "entry '%s'", name)
	}
	return t, nil
}

func extractTar(r io.Reader, dest string, log logger.Logger) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "reading tar header")
		}
		t, err := target(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(t, 0755); err != nil {
				return errors.Wrapf(err, "making directory %s", hdr.Name)
			}
		case tar.TypeReg:
			if err := writeFile(t, tr, 0644); err != nil {
				return errors.Wrapf(err, "writing %s", hdr.Name)
			}
		default:
			log.Debugf("skipping tar entry %s of type %c", hdr.Name, hdr.Typeflag)
		}
	}
}

func extractZip(path, dest string, log logger.Logger) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return errors.Wrap(err, "opening zip")
	}
	defer zr.Close()
	for _, zf := range zr.File {
		t, err := target(dest, zf.Name)
		if err != nil {
			return err
		}
		mode := zf.FileInfo().Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(t, 0755); err != nil {
				return errors.Wrapf(err, "making directory %s", zf.Name)
			}
		case mode.IsRegular():
			rc, err := zf.Open()
			if err != nil {
				return errors.Wrapf(err, "opening %s", zf.Name)
			}
			err = writeFile(t, rc, 0644)
			rc.Close()
			if err != nil {
				return errors.Wrapf(err, "writing %s", zf.Name)
			}
		default:
			log.Debugf("skipping zip entry %s with mode %v", zf.Name, mode)
		}
	}
	return nil
}

func writeFile(name string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return errors.Wrap(err, "making parent directory")
	}
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.Wrap(err, "copying")
	}
	return errors.Wrap(f.Close(), "closing")
}
