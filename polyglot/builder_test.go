package polyglot_test

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilosa/dlk"
	"github.com/pilosa/dlk/polyglot"
	"github.com/pilosa/dlk/test"
)

func TestLanguageFilePath(t *testing.T) {
	p, err := polyglot.Language("es").FilePath()
	test.ErrNil(t, err, "es path")
	test.MustBe(t, "acl_datasets/es/data/es_wiki.conll", p)

	if _, err := polyglot.Language("za").FilePath(); err == nil {
		t.Fatal("za is not a corpus language")
	}
	if _, err := polyglot.Language("xx").FilePath(); err == nil {
		t.Fatal("expected error for unknown language")
	}
	for _, l := range polyglot.Languages {
		p, err := l.FilePath()
		test.ErrNil(t, err, string(l))
		test.MustBe(t, "acl_datasets/"+string(l)+"/data/"+string(l)+"_wiki.conll", p)
	}
}

func TestParseLanguages(t *testing.T) {
	langs, err := polyglot.ParseLanguages([]string{"fr", "ja"})
	test.ErrNil(t, err, "parsing")
	test.MustBe(t, []polyglot.Language{"fr", "ja"}, langs)

	if _, err := polyglot.ParseLanguages([]string{"fr", "klingon"}); err == nil {
		t.Fatal("expected error for unknown language")
	}
}

func TestBuilderConfigs(t *testing.T) {
	configs := polyglot.BuilderConfigs()
	test.MustBe(t, 41, len(configs))
	test.MustBe(t, 40, len(polyglot.Languages))
	for i, l := range polyglot.Languages {
		test.MustBe(t, string(l), configs[i].Name)
		test.MustBe(t, []polyglot.Language{l}, configs[i].Languages())
	}
	combined := configs[40]
	test.MustBe(t, polyglot.CombinedName, combined.Name)
	test.MustBe(t, polyglot.Languages, combined.Languages())
	test.MustBe(t, 40, len(combined.FilePaths()))

	c, err := polyglot.ConfigByName("combined")
	test.ErrNil(t, err, "getting combined")
	test.MustBe(t, 40, len(c.Languages()))
	if _, err := polyglot.ConfigByName("nope"); err == nil {
		t.Fatal("expected error for unknown config")
	}
}

func TestNewConfig(t *testing.T) {
	c, err := polyglot.NewConfig("pair", "", "de", "en")
	test.ErrNil(t, err, "new config")
	test.MustBe(t, []string{"acl_datasets/de/data/de_wiki.conll", "acl_datasets/en/data/en_wiki.conll"}, c.FilePaths())

	if _, err := polyglot.NewConfig("none", ""); err == nil {
		t.Fatal("expected error for no languages")
	}
	if _, err := polyglot.NewConfig("bad", "", "de", "za"); err == nil {
		t.Fatal("expected error for unknown language")
	}
}

func TestInfo(t *testing.T) {
	info := polyglot.NewBuilder(mustConfig(t, "en")).Info()
	test.MustBe(t, []string{"id", "lang", "tokens", "labels"}, info.Features.Names())
	if !strings.Contains(info.Citation, "Al-Rfou") {
		t.Fatalf("unexpected citation: %s", info.Citation)
	}
	_, err := info.Features.Schema()
	test.ErrNil(t, err, "schema")
}

type stubDownloader struct {
	refs []string
	root string
}

func (s *stubDownloader) DownloadAndExtract(ctx context.Context, ref string) (string, error) {
	s.refs = append(s.refs, ref)
	return s.root, nil
}

func TestSplitGenerators(t *testing.T) {
	dm := &stubDownloader{root: "/cache/extracted/abc"}
	b := polyglot.NewBuilder(mustConfig(t, "en"))
	gens, err := b.SplitGenerators(context.Background(), dm)
	test.ErrNil(t, err, "split generators")
	test.MustBe(t, []string{polyglot.DataURL}, dm.refs)
	test.MustBe(t, []dlk.SplitGenerator{{Name: dlk.Train, Files: []string{"/cache/extracted/abc"}}}, gens)

	b.DataURL = "http://mirror/ner.tgz"
	_, err = b.SplitGenerators(context.Background(), dm)
	test.ErrNil(t, err, "split generators with mirror")
	test.MustBe(t, "http://mirror/ner.tgz", dm.refs[1])
}

func TestGenerateExamples(t *testing.T) {
	root := test.MustTempDir(t, "testgenerateexamples")
	test.MustWriteFile(t, root, "acl_datasets/de/data/de_wiki.conll", "Berlin\tLOC\nist\tO\n\nja\tO\n")
	test.MustWriteFile(t, root, "acl_datasets/en/data/en_wiki.conll", "\nJohn\tPER\nran\tO\n\n\n")

	b := polyglot.NewBuilder(mustConfig(t, "de", "en"))
	exs := b.GenerateExamples(root)
	defer exs.Close()

	type result struct {
		key  int
		lang string
		toks []string
	}
	exp := []result{
		{0, "de", []string{"Berlin", "ist"}},
		{1, "de", []string{"ja"}},
		{0, "en", []string{"John", "ran"}},
	}
	for i, e := range exp {
		key, ex, err := exs.Example()
		test.ErrNil(t, err, "example")
		test.MustBe(t, e.key, key, "key")
		test.MustBe(t, e.lang, ex.Lang, "lang")
		test.MustBe(t, e.toks, ex.Tokens, "tokens")
		if i == 2 {
			test.MustBe(t, "0", ex.ID, "id restarts")
		}
	}
	if _, _, err := exs.Example(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestGenerateExamplesMissingFile(t *testing.T) {
	root := test.MustTempDir(t, "testgenerateexamplesmissing")
	test.MustWriteFile(t, root, "acl_datasets/de/data/de_wiki.conll", "a\tO\n")

	exs := polyglot.NewBuilder(mustConfig(t, "de", "fi")).GenerateExamples(root)
	_, _, err := exs.Example()
	test.ErrNil(t, err, "first example")
	_, _, err = exs.Example()
	if err == nil || err == io.EOF || !strings.Contains(err.Error(), "fi") {
		t.Fatalf("expected error for missing fi file, got %v", err)
	}
}

func TestGenerateExamplesMalformed(t *testing.T) {
	root := test.MustTempDir(t, "testgenerateexamplesmalformed")
	name := test.MustWriteFile(t, root, "acl_datasets/it/data/it_wiki.conll", "a\tO\nb\n")

	exs := polyglot.NewBuilder(mustConfig(t, "it")).GenerateExamples(root)
	_, _, err := exs.Example()
	if err == nil || !strings.Contains(err.Error(), filepath.Base(name)) {
		t.Fatalf("expected error naming the file, got %v", err)
	}
	test.ErrNil(t, exs.Close(), "closing")
}

func mustConfig(t *testing.T, langs ...polyglot.Language) *polyglot.Config {
	t.Helper()
	c, err := polyglot.NewConfig("test", "", langs...)
	test.ErrNil(t, err, "new config")
	return c
}
