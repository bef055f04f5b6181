// Package enrich fills in missing character facets for an entity the first
// time it is read. Populated facets are never overwritten: authored and
// LLM-sourced data always win over procedural defaults.
package enrich

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
	"github.com/jwebster45206/encounter-engine/pkg/identity"
)

// Facet names an enrichable attribute group.
type Facet string

const (
	FacetAppearance  Facet = "appearance"
	FacetClothing    Facet = "clothing"
	FacetPersonality Facet = "personality"
	FacetDialogue    Facet = "dialogue"
	FacetBiography   Facet = "biography"
	FacetSkills      Facet = "skills"
)

// Facets is the order facets are filled in. Later facets may read earlier
// ones (dialogue reads personality).
var Facets = []Facet{FacetAppearance, FacetPersonality, FacetClothing, FacetBiography, FacetSkills, FacetDialogue}

// GeneratorFunc populates one facet on e, which is the pipeline's private
// working copy.
type GeneratorFunc func(e *entity.Entity, src dice.Source) error

// Result is the outcome of enriching one raw record.
type Result struct {
	Entity *entity.Entity
	// Resolved is set when a template name was replaced during this call.
	// The store writes it back to the raw record so the identity sticks.
	Resolved *identity.Identity
	// Generated lists the facets that were filled in.
	Generated []Facet
}

// Pipeline enriches raw entities.
type Pipeline struct {
	ids        *identity.Generator
	rng        dice.Source
	generators map[Facet]GeneratorFunc
	log        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for generator failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.log = l
	}
}

// WithGenerator registers fn for facet f.
func WithGenerator(f Facet, fn GeneratorFunc) Option {
	return func(p *Pipeline) {
		p.generators[f] = fn
	}
}

// New returns a pipeline resolving templates with ids and drawing fallback
// values from src.
func New(ids *identity.Generator, src dice.Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		ids:        ids,
		rng:        src,
		generators: make(map[Facet]GeneratorFunc),
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Register installs a generator for a facet, replacing any earlier one.
func (p *Pipeline) Register(f Facet, fn GeneratorFunc) {
	p.generators[f] = fn
}

// Enrich returns an enriched copy of raw. raw itself is never modified.
func (p *Pipeline) Enrich(raw *entity.Entity) (Result, error) {
	if raw == nil {
		return Result{}, fmt.Errorf("cannot enrich nil entity")
	}
	e := raw.Clone()
	res := Result{Entity: e}
	if !e.Type.IsPerson() {
		return res, nil
	}

	if e.IsTemplate() {
		archetype := e.Archetype
		if archetype == "" {
			archetype = entity.ArchetypeFromName(e.Name)
		}
		id := p.ids.Generate(identity.Request{
			Gender:    e.Gender,
			Casta:     e.Casta,
			Archetype: archetype,
		})
		e.Name = id.FullName
		e.Gender = id.Gender
		e.Casta = id.Casta
		if e.Archetype == "" {
			e.Archetype = archetype
		}
		res.Resolved = &id
	}

	if e.Gender == "" {
		e.Gender = p.inferGender(e)
	}

	for _, f := range Facets {
		if !Missing(e, f) {
			continue
		}
		if err := p.generate(e, f); err != nil {
			return res, fmt.Errorf("failed to generate %s for %s: %w", f, e.ID, err)
		}
		res.Generated = append(res.Generated, f)
	}

	if e.Personality != nil && e.Personality.BigFive != nil && e.Personality.Temperament == nil {
		t := DeriveTemperament(*e.Personality.BigFive)
		e.Personality.Temperament = &t
	}

	return res, nil
}

func (p *Pipeline) generate(e *entity.Entity, f Facet) error {
	if fn, ok := p.generators[f]; ok {
		err := fn(e, p.rng)
		if err == nil && !Missing(e, f) {
			return nil
		}
		p.log.Warn("Facet generator did not populate facet, using fallback",
			"facet", f, "entity_id", e.ID, "error", err)
	}
	return fallbacks[f](e, p.rng)
}

// Missing reports whether the defining sub-field of facet f is unset.
func Missing(e *entity.Entity, f Facet) bool {
	switch f {
	case FacetAppearance:
		return e.Appearance == nil || e.Appearance.Build == ""
	case FacetClothing:
		return e.Clothing == nil || e.Clothing.Style == ""
	case FacetPersonality:
		return e.Personality == nil || e.Personality.BigFive == nil
	case FacetDialogue:
		return e.Dialogue == nil || e.Dialogue.Greeting == ""
	case FacetBiography:
		return e.Biography == nil || e.Biography.Background == ""
	case FacetSkills:
		return len(e.Skills) == 0
	}
	return false
}

var femaleNamePrefixes = []string{"doña", "dona", "señora", "senora", "sra.", "sor", "madre", "niña", "señorita"}

var maleNamePrefixes = []string{"don", "señor", "senor", "sr.", "fray", "padre", "capitán", "capitan", "maese", "teniente"}

func (p *Pipeline) inferGender(e *entity.Entity) entity.Gender {
	if first, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(e.Name)), " "); first != "" {
		for _, prefix := range femaleNamePrefixes {
			if first == prefix {
				return entity.GenderFemale
			}
		}
		for _, prefix := range maleNamePrefixes {
			if first == prefix {
				return entity.GenderMale
			}
		}
	}
	if g := identity.GenderFromKeywords(e.Occupation()); g != "" {
		return g
	}
	if g := identity.GenderFromKeywords(e.Archetype); g != "" {
		return g
	}
	if dice.Chance(p.rng, 0.5) {
		return entity.GenderFemale
	}
	return entity.GenderMale
}
