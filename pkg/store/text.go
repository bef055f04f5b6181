package store

import (
	"cmp"
	"regexp"
	"slices"
	"unicode/utf8"

	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

// FindEntitiesInText returns the enriched views of every clickable entity
// whose name appears in text as a case-insensitive whole-word match, longest
// name first so multi-word names claim their span before their substrings.
func (s *Store) FindEntitiesInText(text string) []*entity.Entity {
	type hit struct {
		id   string
		name string
	}

	s.mu.Lock()
	var hits []hit
	for _, id := range s.order {
		e := s.raw[id]
		if !e.IsClickable() || e.IsTemplate() {
			continue
		}
		name := BaseName(e.Name)
		if name == "" {
			continue
		}
		re, ok := s.patterns[id]
		if !ok {
			re = wholeWord(name)
			s.patterns[id] = re
		}
		if re.MatchString(text) {
			hits = append(hits, hit{id: id, name: name})
		}
	}
	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(utf8.RuneCountInString(b.name), utf8.RuneCountInString(a.name))
	})

	var out []*entity.Entity
	var last int
	var changed bool
	for _, h := range hits {
		e, version, c := s.enrichedLocked(h.id)
		if c {
			changed, last = true, version
		}
		if e != nil {
			out = append(out, e.Clone())
		}
	}
	callbacks := s.onChange
	s.mu.Unlock()

	if changed {
		s.notify(callbacks, last)
	}
	return out
}

func wholeWord(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(name) + `(?:$|[^\p{L}\p{N}_])`)
}
