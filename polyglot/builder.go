// Package polyglot loads the Polyglot-NER corpus: Wikipedia sentences in 40
// languages, one token and its named entity label per line.
package polyglot

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pilosa/dlk"
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
)

const (
	// DataURL is where the corpus archive is published.
	DataURL = "http://cs.stonybrook.edu/~polyglot/ner2/emnlp_datasets.tgz"

	// Homepage describes the corpus.
	Homepage = "https://sites.google.com/site/rmyeid/projects/polylgot-ner"

	// Description summarizes the corpus.
	Description = `Polyglot-NER

A training dataset for named entity recognition in 40 languages, generated
automatically from Wikipedia and Freebase. Each sentence is a sequence of
tokens with one entity label per token.`

	// Citation is the BibTeX entry for the corpus.
	Citation = `@article{polyglotner,
         author = {Al-Rfou, Rami and Kulkarni, Vivek and Perozzi, Bryan and Skiena, Steven},
         title = {{Polyglot-NER}: Massive Multilingual Named Entity Recognition},
         journal = {{Proceedings of the 2015 {SIAM} International Conference on Data Mining, Vancouver, British Columbia, Canada, April 30- May 2, 2015}},
         month     = {April},
         year      = {2015},
         publisher = {SIAM},
}`
)

// Features describes every Example.
var Features = dlk.Features{
	{Name: "id", Feature: dlk.Value("string")},
	{Name: "lang", Feature: dlk.Value("string")},
	{Name: "tokens", Feature: dlk.Sequence{Feature: dlk.Value("string")}},
	{Name: "labels", Feature: dlk.Sequence{Feature: dlk.Value("string")}},
}

// Builder loads the languages selected by its Config.
type Builder struct {
	Config *Config

	// DataURL overrides the archive location when non-empty (e.g. a mirror).
	DataURL string

	Log logger.Logger
}

// NewBuilder returns a Builder for c.
func NewBuilder(c *Config) *Builder {
	return &Builder{Config: c, Log: logger.NopLogger}
}

// Info describes the dataset.
func (b *Builder) Info() dlk.Info {
	return dlk.Info{
		Description: Description,
		Citation:    Citation,
		Homepage:    Homepage,
		Features:    Features,
	}
}

// SplitGenerators downloads and extracts the corpus archive. The corpus has a
// single train split whose only "file" is the root of the extracted archive.
func (b *Builder) SplitGenerators(ctx context.Context, dm dlk.DownloadManager) ([]dlk.SplitGenerator, error) {
	url := b.DataURL
	if url == "" {
		url = DataURL
	}
	root, err := dm.DownloadAndExtract(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "downloading corpus")
	}
	return []dlk.SplitGenerator{{Name: dlk.Train, Files: []string{root}}}, nil
}

// GenerateExamples returns the sentences of every selected language found
// under root, the directory the archive was extracted into.
func (b *Builder) GenerateExamples(root string) *Examples {
	log := b.Log
	if log == nil {
		log = logger.NopLogger
	}
	return &Examples{
		root:  root,
		langs: b.Config.Languages(),
		paths: b.Config.FilePaths(),
		log:   log,
	}
}

// Examples is a lazy sequence of sentences covering each selected language's
// file in the configured order, and each file in line order. Keys restart at
// 0 for every language. At most one file is open at a time. Examples is not
// safe for concurrent use.
type Examples struct {
	root  string
	langs []Language
	paths []string
	log   logger.Logger

	i   int
	cur string
	f   *os.File
	seg *Segmenter
	err error
}

// Example returns the next sentence and its key. It returns io.EOF after the
// last sentence of the last language. Any other error ends the sequence and
// is returned by every following call.
func (e *Examples) Example() (key int, ex Example, err error) {
	if e.err != nil {
		return 0, Example{}, e.err
	}
	for {
		if e.seg == nil {
			if e.i >= len(e.langs) {
				e.err = io.EOF
				return 0, Example{}, io.EOF
			}
			if err := e.open(); err != nil {
				e.err = err
				return 0, Example{}, err
			}
		}
		key, ex, err = e.seg.Example()
		if err == io.EOF {
			if err := e.closeFile(); err != nil {
				e.err = errors.Wrapf(err, "closing %s", e.cur)
				return 0, Example{}, e.err
			}
			e.log.Debugf("polyglot: finished %s", e.cur)
			e.i++
			continue
		}
		if err != nil {
			e.closeFile()
			e.err = errors.Wrapf(err, "reading %s", e.cur)
			return 0, Example{}, e.err
		}
		return key, ex, nil
	}
}

func (e *Examples) open() error {
	e.cur = filepath.Join(e.root, filepath.FromSlash(e.paths[e.i]))
	f, err := os.Open(e.cur)
	if err != nil {
		return errors.Wrapf(err, "opening file for language %s", string(e.langs[e.i]))
	}
	e.log.Debugf("polyglot: reading %s", e.cur)
	e.f = f
	e.seg = NewSegmenter(f, string(e.langs[e.i]))
	return nil
}

func (e *Examples) closeFile() error {
	e.seg = nil
	if e.f == nil {
		return nil
	}
	err := e.f.Close()
	e.f = nil
	return err
}

// Close releases the open file, if any. Examples returns io.EOF after Close.
func (e *Examples) Close() error {
	if e.err == nil {
		e.err = io.EOF
	}
	return e.closeFile()
}
