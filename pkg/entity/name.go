package entity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TemplateSentinel marks a name as an archetype placeholder awaiting a
// generated identity, e.g. "[[template]] Shopkeeper".
const TemplateSentinel = "[[template]]"

// TemplateName returns the placeholder name for an archetype.
func TemplateName(archetype string) string {
	return strings.TrimSpace(TemplateSentinel + " " + archetype)
}

// ArchetypeFromName extracts the archetype label that follows the sentinel.
func ArchetypeFromName(name string) string {
	_, after, ok := strings.Cut(name, TemplateSentinel)
	if !ok {
		return ""
	}
	return strings.Trim(after, " :-")
}

var leadingArticles = []string{"the ", "a ", "an ", "el ", "la ", "los ", "las "}

// NormalizeName folds case, strips diacritics and a leading article, and
// collapses whitespace, so "The  Old Güero" and "old guero" index together.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.Join(strings.Fields(strings.ToLower(folded)), " ")
	for _, article := range leadingArticles {
		if rest, ok := strings.CutPrefix(folded, article); ok && rest != "" {
			folded = rest
			break
		}
	}
	return folded
}

// GenerateID derives a stable id from the type and normalized name:
// "npc" + "Doña Inés" gives "npc_dona_ines". It returns "" when the name has
// no usable characters.
func GenerateID(t Type, name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range NormalizeName(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "_")
	if slug == "" {
		return ""
	}
	return string(t) + "_" + slug
}
