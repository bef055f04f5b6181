// Package identity synthesizes historically plausible names for template
// entities.
package identity

import (
	"slices"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

// Request constrains a generated identity. Zero fields are chosen by the
// generator.
type Request struct {
	Gender    entity.Gender
	Casta     entity.Casta
	Archetype string
}

// Identity is a generated name plus the demographics it was drawn for.
type Identity struct {
	FullName  string        `json:"full_name"`
	FirstName string        `json:"first_name"`
	Surname   string        `json:"surname,omitempty"`
	Gender    entity.Gender `json:"gender"`
	Casta     entity.Casta  `json:"casta"`
	Archetype string        `json:"archetype,omitempty"`
}

// Generator draws identities from name tables using an injected source. It is
// safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rng    dice.Source
	tables Tables
	title  cases.Caser
}

// Option configures a Generator.
type Option func(*Generator)

// WithTables replaces the built-in name tables.
func WithTables(t Tables) Option {
	return func(g *Generator) {
		g.tables = t
	}
}

// New returns a generator using src for every random choice.
func New(src dice.Source, opts ...Option) *Generator {
	g := &Generator{
		rng:    src,
		tables: DefaultTables(),
		title:  cases.Title(language.Spanish),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate produces an identity satisfying req.
func (g *Generator) Generate(req Request) Identity {
	g.mu.Lock()
	defer g.mu.Unlock()

	gender := req.Gender
	if gender == "" {
		gender = g.InferGender(req.Archetype)
	}
	casta := req.Casta
	if casta == "" {
		casta = g.pickCasta()
	}

	first := dice.Pick(g.rng, g.tables.given(casta, gender))
	surname := dice.Pick(g.rng, g.tables.surnames(casta))
	if casta == g.tables.SingleNameCasta && dice.Chance(g.rng, g.tables.SurnameOmitChance) {
		surname = ""
	}

	full := strings.TrimSpace(first + " " + surname)
	archetype := strings.TrimSpace(req.Archetype)
	if archetype != "" {
		archetype = g.title.String(archetype)
		full += " (" + archetype + ")"
	}

	return Identity{
		FullName:  full,
		FirstName: first,
		Surname:   surname,
		Gender:    gender,
		Casta:     casta,
		Archetype: archetype,
	}
}

// InferGender scans the archetype for gendered keywords and flips a coin
// when none match.
func (g *Generator) InferGender(archetype string) entity.Gender {
	if gender := GenderFromKeywords(archetype); gender != "" {
		return gender
	}
	if dice.Chance(g.rng, 0.5) {
		return entity.GenderFemale
	}
	return entity.GenderMale
}

var femaleKeywords = []string{
	"woman", "wife", "widow", "mother", "nun", "sister", "daughter", "girl",
	"midwife", "maid", "mistress", "abbess", "señora", "senora", "doña", "dona",
	"sor", "madre", "partera", "curandera", "lavandera", "viuda", "monja",
	"criada", "hija", "esposa", "tortillera", "vendedora",
}

var maleKeywords = []string{
	"man", "husband", "father", "priest", "friar", "monk", "brother", "son",
	"boy", "soldier", "señor", "senor", "don", "fray", "padre", "sacerdote",
	"soldado", "capitán", "capitan", "cura", "hijo", "esposo", "vendedor",
	"aguador", "cargador", "alguacil",
}

// GenderFromKeywords returns the gender implied by whole words in s, or ""
// when s carries no gendered keyword.
func GenderFromKeywords(s string) entity.Gender {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if slices.Contains(femaleKeywords, w) {
			return entity.GenderFemale
		}
	}
	for _, w := range words {
		if slices.Contains(maleKeywords, w) {
			return entity.GenderMale
		}
	}
	return ""
}

func (g *Generator) pickCasta() entity.Casta {
	var total float64
	for _, c := range entity.Castas {
		total += g.tables.CastaWeights[c]
	}
	if total <= 0 {
		return entity.CastaMestizo
	}
	roll := g.rng.Float64() * total
	for _, c := range entity.Castas {
		roll -= g.tables.CastaWeights[c]
		if roll < 0 {
			return c
		}
	}
	return entity.Castas[len(entity.Castas)-1]
}
