// Package textfilter rewrites narrative prose so entity names become links
// the UI can render as clickable.
package textfilter

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Term is a phrase to link and the entity id it points at.
type Term struct {
	Text string
	ID   string
}

// FormatFunc renders one linked occurrence. match keeps the casing used in
// the prose.
type FormatFunc func(match, id string) string

// DefaultFormat renders [match](entity:id).
func DefaultFormat(match, id string) string {
	return "[" + match + "](entity:" + id + ")"
}

// Linker replaces whole-word, case-insensitive occurrences of its terms.
// Longer terms win over shorter ones starting at the same position, and
// linked spans never overlap.
type Linker struct {
	re     *regexp.Regexp
	ids    map[string]string
	fold   cases.Caser
	format FormatFunc
}

type Option func(*Linker)

func WithFormat(f FormatFunc) Option {
	return func(l *Linker) {
		if f != nil {
			l.format = f
		}
	}
}

// NewLinker compiles terms into a single pattern. Empty terms are ignored;
// when two terms fold to the same text the first one keeps its id.
func NewLinker(terms []Term, opts ...Option) *Linker {
	l := &Linker{
		ids:    make(map[string]string),
		fold:   cases.Fold(),
		format: DefaultFormat,
	}
	for _, o := range opts {
		o(l)
	}

	var texts []string
	for _, t := range terms {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		key := l.fold.String(text)
		if _, dup := l.ids[key]; dup {
			continue
		}
		l.ids[key] = t.ID
		texts = append(texts, text)
	}
	if len(texts) == 0 {
		return l
	}
	slices.SortStableFunc(texts, func(a, b string) int {
		return cmp.Compare(utf8.RuneCountInString(b), utf8.RuneCountInString(a))
	})
	quoted := make([]string, len(texts))
	for i, t := range texts {
		quoted[i] = regexp.QuoteMeta(t)
	}
	l.re = regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
	return l
}

// Link returns text with every term occurrence rendered by the format.
func (l *Linker) Link(text string) string {
	if l.re == nil || text == "" {
		return text
	}
	var b strings.Builder
	last, pos := 0, 0
	for pos < len(text) {
		loc := l.re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if !boundaryBefore(text, start) || !boundaryAfter(text, end) {
			_, size := utf8.DecodeRuneInString(text[start:])
			pos = start + max(size, 1)
			continue
		}
		match := text[start:end]
		b.WriteString(text[last:start])
		b.WriteString(l.format(match, l.ids[l.fold.String(match)]))
		last, pos = end, end
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// Contains reports whether any term occurs in text as a whole word.
func (l *Linker) Contains(text string) bool {
	return l.Link(text) != text
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}
