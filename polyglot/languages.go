package polyglot

import (
	"path"
	"sort"

	"github.com/pkg/errors"
)

// Language is a language code of the Polyglot-NER corpus.
type Language string

// Languages holds every language in the corpus, in the order they appear in
// the combined configuration.
var Languages = []Language{
	"ca", "de", "es", "fi", "hi", "id", "ko", "ms", "pl", "ru",
	"sr", "tl", "vi", "ar", "cs", "el", "et", "fr", "hr", "it",
	"lt", "nl", "pt", "sk", "sv", "tr", "zh", "bg", "da", "en",
	"fa", "he", "hu", "ja", "lv", "no", "ro", "sl", "th", "uk",
}

// flatLanguage is the one language whose file sits directly in its language
// directory rather than in a data subdirectory.
const flatLanguage Language = "za"

// filePaths maps each language to its file, relative to the root of the
// extracted archive. It is built once and never modified.
var filePaths = func() map[Language]string {
	m := make(map[Language]string, len(Languages))
	for _, l := range Languages {
		m[l] = relativePath(l)
	}
	return m
}()

func relativePath(l Language) string {
	name := string(l) + "_wiki.conll"
	if l == flatLanguage {
		return path.Join("acl_datasets", string(l), name)
	}
	return path.Join("acl_datasets", string(l), "data", name)
}

// FilePath returns the slash separated path of l's file relative to the root
// of the extracted archive.
func (l Language) FilePath() (string, error) {
	p, ok := filePaths[l]
	if !ok {
		return "", errors.Errorf("unknown language '%s'", string(l))
	}
	return p, nil
}

// Valid reports whether l is one of Languages.
func (l Language) Valid() bool {
	_, ok := filePaths[l]
	return ok
}

// ParseLanguages converts codes to Languages, failing on any unknown code.
func ParseLanguages(codes []string) ([]Language, error) {
	ret := make([]Language, len(codes))
	for i, c := range codes {
		l := Language(c)
		if !l.Valid() {
			return nil, errors.Errorf("unknown language '%s', must be one of %v", c, sortedCodes())
		}
		ret[i] = l
	}
	return ret, nil
}

func sortedCodes() []string {
	codes := make([]string, len(Languages))
	for i, l := range Languages {
		codes[i] = string(l)
	}
	sort.Strings(codes)
	return codes
}
