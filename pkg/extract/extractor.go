// Package extract finds character names in generated prose and registers the
// ones the store does not know yet. Extraction is best effort; the
// NameExtractor interface lets a better recogniser replace the regex one.
package extract

import (
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

// NameExtractor returns the candidate names found in text, de-duplicated, in
// order of first appearance.
type NameExtractor interface {
	ExtractNames(text string) []string
}

// Vocabulary is the scenario-supplied word lists the regex extractor uses.
type Vocabulary struct {
	// Titles precede a capitalised name, e.g. "Don", "Fray", "Señora".
	Titles []string `yaml:"titles" json:"titles"`
	// Exclusions are capitalised phrases that are never people: places,
	// saints' days, fixed expressions.
	Exclusions []string `yaml:"exclusions" json:"exclusions"`
	// ListMarkers introduce an explicit list of present characters.
	ListMarkers []string `yaml:"list_markers" json:"list_markers"`
}

// DefaultVocabulary is used when a scenario supplies none.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Titles: []string{
			"Don", "Doña", "Fray", "Padre", "Sor", "Madre", "Señor", "Señora",
			"Señorita", "Capitán", "Alguacil", "Maestro", "Licenciado", "Doctor",
		},
		Exclusions: []string{
			"Nueva España", "Ciudad de México", "Plaza Mayor", "Santo Domingo",
			"San Francisco", "Virgen María", "Dios Mío", "Ave María", "Santa María",
		},
		ListMarkers: []string{"also present", "present", "in attendance", "with you"},
	}
}

// stopwords start sentences but never names.
var stopwords = []string{
	"the", "a", "an", "he", "she", "they", "you", "your", "his", "her", "it",
	"i", "we", "but", "and", "then", "when", "as", "in", "on", "at", "with",
	"el", "la", "los", "las", "un", "una", "y", "pero",
}

var connectors = `(?:de la|de los|del|de|y)`

// RegexExtractor runs three patterns: an explicit "also present" list, title
// plus name pairs, and runs of capitalised words.
type RegexExtractor struct {
	list        *regexp.Regexp
	titled      *regexp.Regexp
	capitalized *regexp.Regexp
	exclusions  []string
}

// NewRegexExtractor compiles the patterns for v.
func NewRegexExtractor(v Vocabulary) *RegexExtractor {
	word := `\p{Lu}[\p{Ll}'’-]+`
	name := word + `(?:\s+(?:` + connectors + `\s+)?` + word + `)*`

	x := &RegexExtractor{
		capitalized: regexp.MustCompile(`(?:^|[^\p{L}])(` + word + `(?:\s+(?:` + connectors + `\s+)?` + word + `)+)`),
	}
	if len(v.ListMarkers) > 0 {
		x.list = regexp.MustCompile(`(?i)(?:` + alternation(v.ListMarkers) + `)\s*:\s*([^\n.;]+)`)
	}
	if len(v.Titles) > 0 {
		x.titled = regexp.MustCompile(`(?:^|[^\p{L}])((?:` + alternation(v.Titles) + `)\.?\s+` + name + `)`)
	}
	for _, e := range v.Exclusions {
		if n := entity.NormalizeName(e); n != "" {
			x.exclusions = append(x.exclusions, n)
		}
	}
	return x
}

func alternation(words []string) string {
	sorted := slices.Clone(words)
	// longest first so "Señora" wins over "Señor"
	slices.SortFunc(sorted, func(a, b string) int { return len(b) - len(a) })
	quoted := make([]string, 0, len(sorted))
	for _, w := range sorted {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	return strings.Join(quoted, "|")
}

var listSplit = regexp.MustCompile(`\s*(?:,|\band\b|&)\s*`)

// ExtractNames implements NameExtractor.
func (x *RegexExtractor) ExtractNames(text string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		name = strings.Trim(strings.TrimSpace(name), `"'“”.,:;!?`)
		if name == "" {
			return
		}
		key := entity.NormalizeName(name)
		if key == "" || seen[key] || x.excluded(key) {
			return
		}
		seen[key] = true
		out = append(out, name)
	}

	if x.list != nil {
		for _, m := range x.list.FindAllStringSubmatch(text, -1) {
			for _, part := range listSplit.Split(m[1], -1) {
				add(part)
			}
		}
	}

	titledSpans := make(map[string]bool)
	if x.titled != nil {
		for _, m := range x.titled.FindAllStringSubmatch(text, -1) {
			titledSpans[entity.NormalizeName(m[1])] = true
			add(m[1])
		}
	}

	for _, m := range x.capitalized.FindAllStringSubmatch(text, -1) {
		name := trimStopwords(m[1])
		if name == "" || strings.Count(name, " ") == 0 {
			continue
		}
		if covered(entity.NormalizeName(name), titledSpans) {
			continue
		}
		add(name)
	}
	return out
}

func (x *RegexExtractor) excluded(key string) bool {
	for _, e := range x.exclusions {
		if key == e || strings.Contains(key, e) {
			return true
		}
	}
	return false
}

// trimStopwords drops leading sentence words like "The" or "But".
func trimStopwords(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 && slices.Contains(stopwords, strings.ToLower(words[0])) {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

// covered reports whether key is part of a name already found with a title.
func covered(key string, titled map[string]bool) bool {
	for t := range titled {
		if strings.Contains(t, key) {
			return true
		}
	}
	return false
}
