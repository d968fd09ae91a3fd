package polyglot

import (
	"context"
	"io"
	"os"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pilosa/dlk"
	"github.com/pilosa/dlk/download"
	"github.com/pilosa/dlk/export"
	"github.com/pkg/errors"
)

// Main contains the configuration for converting the corpus into JSON lines,
// Avro or Arrow.
type Main struct {
	ConfigName string   `help:"Predefined config: a language code or 'combined'."`
	Languages  []string `help:"Languages to load, in order. Overrides config-name."`
	DataURL    string   `help:"Location of the corpus archive."`
	Root       string   `help:"Directory the corpus is already extracted in. Skips downloading."`
	Format     string   `help:"Output format: json, avro, or arrow."`
	Out        string   `help:"Output file. Empty means stdout."`
	Limit      int      `help:"Stop after this many sentences. 0 means no limit."`
	LogPath    string   `help:"Log file to write to. Empty means stderr."`
	Verbose    bool     `help:"Enable verbose logging."`

	Cache  download.Config `flag:"-"`
	Stdout io.Writer       `flag:"-"`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		ConfigName: CombinedName,
		DataURL:    DataURL,
		Format:     "json",
		Cache:      download.NewConfig(),
		Stdout:     os.Stdout,
	}
}

// BuilderConfig returns the Config selected by the command line.
func (m *Main) BuilderConfig() (*Config, error) {
	if len(m.Languages) == 0 {
		return ConfigByName(m.ConfigName)
	}
	langs, err := ParseLanguages(m.Languages)
	if err != nil {
		return nil, err
	}
	return NewConfig("custom", "Polyglot-NER examples in the selected languages.", langs...)
}

// Run writes every sentence of the selected languages.
func (m *Main) Run() (err error) {
	c, err := m.BuilderConfig()
	if err != nil {
		return errors.Wrap(err, "validating configuration")
	}
	log, logCloser, err := dlk.OpenLogger(m.LogPath, m.Verbose)
	if err != nil {
		return errors.Wrap(err, "setting up logging")
	}
	defer logCloser.Close()

	b := NewBuilder(c)
	b.DataURL = m.DataURL
	b.Log = log

	root := m.Root
	if root == "" {
		dm, closer, err := m.Cache.Open(log)
		if err != nil {
			return err
		}
		defer closer.Close()
		gens, err := b.SplitGenerators(context.Background(), dm)
		if err != nil {
			return errors.Wrap(err, "getting splits")
		}
		root = gens[0].Files[0]
	}

	out := m.Stdout
	if m.Out != "" {
		f, err := os.Create(m.Out)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = errors.Wrap(cerr, "closing output file")
			}
		}()
		out = f
	}
	w, err := m.newWriter(out)
	if err != nil {
		return err
	}

	exs := b.GenerateExamples(root)
	defer exs.Close()
	n := 0
	for m.Limit <= 0 || n < m.Limit {
		key, ex, err := exs.Example()
		if err == io.EOF {
			break
		} else if err != nil {
			w.Close()
			return errors.Wrap(err, "generating examples")
		}
		if err := w.Write(key, ex.Map()); err != nil {
			w.Close()
			return errors.Wrapf(err, "writing %s sentence %d", ex.Lang, key)
		}
		n++
	}
	log.Printf("wrote %d sentences from %d languages", n, len(c.Languages()))
	return errors.Wrap(w.Close(), "closing writer")
}

func (m *Main) newWriter(out io.Writer) (export.RecordWriter, error) {
	switch m.Format {
	case "json", "":
		return export.NewJSONWriter(out), nil
	case "avro":
		return export.NewAvroWriter(out, "polyglot_ner", Features)
	case "arrow":
		return export.NewArrowWriter(out, Features, 0, memory.DefaultAllocator)
	default:
		return nil, errors.Errorf("unknown format '%s', must be json, avro, or arrow", m.Format)
	}
}
