package search

import (
	"strings"
	"sync"
	"unicode"

	"github.com/go-ego/gse"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
)

type Tokenizer interface {
	// Tokens returns distinct, case-folded search tokens without whitespace or punctuation.
	Tokens(keyword string) []string
}

var folder = struct {
	sync.Mutex
	c cases.Caser
}{c: cases.Fold()}

// fold lower-cases s the way the tokens are folded. cases.Caser is not safe for concurrent use.
func fold(s string) string {
	folder.Lock()
	defer folder.Unlock()
	return folder.c.String(s)
}

// Normalize folds, strips and dedupes raw segments, keeping first-seen order.
func Normalize(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, w := range raw {
		w = strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if w == "" {
			continue
		}
		w = fold(w)
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// SegmentTokenizer splits keywords with gse in search mode, which emits compound words together
// with the shorter words they contain.
type SegmentTokenizer struct {
	seg gse.Segmenter
}

// NewSegmentTokenizer loads the given dictionary files, or the embedded dictionary when none is given.
func NewSegmentTokenizer(dictFiles ...string) (*SegmentTokenizer, error) {
	seg, err := gse.New(dictFiles...)
	if err != nil {
		return nil, errors.Wrap(err, "load segmenter dictionary")
	}
	return &SegmentTokenizer{seg: seg}, nil
}

func (t *SegmentTokenizer) Tokens(keyword string) []string {
	return Normalize(t.seg.CutSearch(keyword, true))
}

// FieldsTokenizer splits on whitespace and punctuation only.
type FieldsTokenizer struct{}

func (FieldsTokenizer) Tokens(keyword string) []string {
	return Normalize(strings.FieldsFunc(keyword, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}))
}
