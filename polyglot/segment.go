package polyglot

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pilosa/dlk"
	"github.com/pkg/errors"
)

const (
	// ErrMalformedLine is returned for a non-blank line which isn't exactly a
	// token and a label separated by a tab.
	ErrMalformedLine = dlk.Error("line is not a token and a label separated by a single tab")

	// ErrLengthMismatch is returned if a sentence ends with a different
	// number of tokens and labels.
	ErrLengthMismatch = dlk.Error("sentence has different numbers of tokens and labels")
)

// Example is one sentence of the corpus.
type Example struct {
	ID     string   `json:"id"`
	Lang   string   `json:"lang"`
	Tokens []string `json:"tokens"`
	Labels []string `json:"labels"`
}

// Map returns e keyed by feature name.
func (e Example) Map() map[string]interface{} {
	return map[string]interface{}{
		"id":     e.ID,
		"lang":   e.Lang,
		"tokens": e.Tokens,
		"labels": e.Labels,
	}
}

// Segmenter groups the lines of one corpus file into sentences. Each
// non-blank line holds a token and its label separated by a tab, and
// sentences are separated by one or more blank lines. Sentence keys start at
// 0 for each Segmenter.
type Segmenter struct {
	r    *bufio.Reader
	lang string

	counter int
	line    int
	tokens  []string
	labels  []string

	err error
}

// NewSegmenter returns a Segmenter reading from r whose examples are tagged
// with lang.
func NewSegmenter(r io.Reader, lang string) *Segmenter {
	return &Segmenter{
		r:    bufio.NewReader(r),
		lang: lang,
	}
}

// Example returns the next sentence and its key. It returns io.EOF when the
// input is exhausted. Once an error has been returned, every following call
// returns the same error.
func (s *Segmenter) Example() (key int, ex Example, err error) {
	if s.err != nil {
		return 0, Example{}, s.err
	}
	for {
		raw, rerr := s.r.ReadString('\n')
		if rerr != nil && rerr != io.EOF {
			s.err = errors.Wrapf(rerr, "reading line %d", s.line+1)
			return 0, Example{}, s.err
		}
		if raw != "" {
			s.line++
			row := strings.TrimRightFunc(raw, unicode.IsSpace)
			if row != "" {
				if err := s.add(row); err != nil {
					s.err = err
					return 0, Example{}, err
				}
			} else if len(s.tokens) > 0 {
				return s.emit(true)
			}
		}
		if rerr == io.EOF {
			s.err = io.EOF
			if len(s.tokens) > 0 {
				// The last sentence isn't followed by a blank line.
				return s.emit(false)
			}
			return 0, Example{}, io.EOF
		}
	}
}

func (s *Segmenter) add(row string) error {
	if !utf8.ValidString(row) {
		return errors.Errorf("line %d: invalid UTF-8", s.line)
	}
	fields := strings.Split(row, "\t")
	if len(fields) != 2 {
		return errors.Wrapf(ErrMalformedLine, "line %d has %d fields: %q", s.line, len(fields), row)
	}
	s.tokens = append(s.tokens, fields[0])
	s.labels = append(s.labels, fields[1])
	return nil
}

func (s *Segmenter) emit(next bool) (int, Example, error) {
	if len(s.tokens) != len(s.labels) {
		err := errors.Wrapf(ErrLengthMismatch, "sentence %d ending at line %d: %d tokens, %d labels", s.counter, s.line, len(s.tokens), len(s.labels))
		s.err = err
		return 0, Example{}, err
	}
	key := s.counter
	ex := Example{
		ID:     strconv.Itoa(key),
		Lang:   s.lang,
		Tokens: s.tokens,
		Labels: s.labels,
	}
	if next {
		s.counter++
	}
	s.tokens, s.labels = nil, nil
	return key, ex, nil
}
