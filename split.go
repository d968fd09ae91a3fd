package dlk

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Split is the name of a partition of a dataset.
type Split string

const (
	Train      Split = "train"
	Validation Split = "validation"
	Test       Split = "test"
)

// Splits lists the named splits an adapter knows about, in the order they are
// generated.
var Splits = []Split{Train, Validation, Test}

// ErrNoDataFiles is returned when a configuration which requires data files
// doesn't name any.
const ErrNoDataFiles = Error("at least one data file must be specified")

// SplitGenerator holds the local paths which make up one split of a dataset.
type SplitGenerator struct {
	Name  Split
	Files []string
}

// DataFiles holds the file references for a dataset. Files which aren't
// associated with a split belong to the train split.
type DataFiles struct {
	Files  []string
	Splits map[Split][]string
}

// Empty reports whether no file references were given at all.
func (d DataFiles) Empty() bool {
	return len(d.Files) == 0 && len(d.Splits) == 0
}

func (d DataFiles) String() string {
	if len(d.Splits) == 0 {
		return fmt.Sprintf("%v", d.Files)
	}
	parts := make([]string, 0, len(d.Splits)+1)
	if len(d.Files) > 0 {
		parts = append(parts, fmt.Sprintf("%v", d.Files))
	}
	for _, s := range Splits {
		if files, ok := d.Splits[s]; ok {
			parts = append(parts, fmt.Sprintf("%s:%v", s, files))
		}
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// ParseDataFiles parses command line style file references. Each spec is
// either a bare path, which goes into the train split, or split=path.
func ParseDataFiles(specs []string) (DataFiles, error) {
	d := DataFiles{}
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		i := strings.Index(spec, "=")
		if i < 0 {
			d.Files = append(d.Files, spec)
			continue
		}
		name, path := Split(spec[:i]), spec[i+1:]
		if !knownSplit(name) {
			return DataFiles{}, errors.Errorf("unknown split '%s' in '%s'", name, spec)
		}
		if path == "" {
			return DataFiles{}, errors.Errorf("empty path for split '%s'", name)
		}
		if d.Splits == nil {
			d.Splits = make(map[Split][]string)
		}
		d.Splits[name] = append(d.Splits[name], path)
	}
	return d, nil
}

func knownSplit(s Split) bool {
	for _, k := range Splits {
		if s == k {
			return true
		}
	}
	return false
}

// SplitGenerators turns d into one SplitGenerator per split. If no split is
// named, all files make up a single train split. Otherwise splits are returned
// in the order train, validation, test and unnamed files are added to train.
func (d DataFiles) SplitGenerators() ([]SplitGenerator, error) {
	if d.Empty() {
		return nil, errors.Wrapf(ErrNoDataFiles, "got data_files=%v", d)
	}
	if len(d.Splits) == 0 {
		return []SplitGenerator{{Name: Train, Files: copyStrings(d.Files)}}, nil
	}
	gens := make([]SplitGenerator, 0, len(Splits))
	for _, s := range Splits {
		files, ok := d.Splits[s]
		if s == Train && len(d.Files) > 0 {
			files = append(copyStrings(d.Files), files...)
			ok = true
		}
		if !ok {
			continue
		}
		gens = append(gens, SplitGenerator{Name: s, Files: copyStrings(files)})
	}
	return gens, nil
}

// ResolveDataFiles passes every reference in d through dm and returns the
// resulting local paths with the same shape. If dm is a BatchDownloadManager,
// all references are handed to it in a single call so they may be fetched
// concurrently.
func ResolveDataFiles(ctx context.Context, dm DownloadManager, d DataFiles) (DataFiles, error) {
	refs := copyStrings(d.Files)
	for _, s := range splitOrder(d) {
		refs = append(refs, d.Splits[s]...)
	}
	paths, err := downloadAll(ctx, dm, refs)
	if err != nil {
		return DataFiles{}, err
	}

	ret := DataFiles{}
	next := func(refs []string) []string {
		if refs == nil {
			return nil
		}
		ps := paths[:len(refs):len(refs)]
		paths = paths[len(refs):]
		return ps
	}
	ret.Files = next(d.Files)
	if d.Splits != nil {
		ret.Splits = make(map[Split][]string, len(d.Splits))
		for _, s := range splitOrder(d) {
			ret.Splits[s] = next(d.Splits[s])
		}
	}
	return ret, nil
}

func downloadAll(ctx context.Context, dm DownloadManager, refs []string) ([]string, error) {
	if bdm, ok := dm.(BatchDownloadManager); ok {
		return bdm.DownloadAndExtractAll(ctx, refs)
	}
	paths := make([]string, len(refs))
	for i, ref := range refs {
		p, err := dm.DownloadAndExtract(ctx, ref)
		if err != nil {
			return nil, errors.Wrapf(err, "downloading '%s'", ref)
		}
		paths[i] = p
	}
	return paths, nil
}

// splitOrder returns the splits of d with the known splits first, in their
// usual order, followed by any others sorted by name.
func splitOrder(d DataFiles) []Split {
	order := make([]Split, 0, len(d.Splits))
	for _, s := range Splits {
		if _, ok := d.Splits[s]; ok {
			order = append(order, s)
		}
	}
	extra := make([]string, 0)
	for s := range d.Splits {
		if !knownSplit(s) {
			extra = append(extra, string(s))
		}
	}
	sort.Strings(extra)
	for _, s := range extra {
		order = append(order, Split(s))
	}
	return order
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	ret := make([]string, len(s))
	copy(ret, s)
	return ret
}
