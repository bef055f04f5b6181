package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"

	"github.com/jwebster45206/encounter-engine/internal/logger"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
	"github.com/jwebster45206/encounter-engine/pkg/identity"
)

const (
	// DefaultFuzzyThreshold is the Jaro-Winkler score above which a name is
	// treated as already known.
	DefaultFuzzyThreshold = 0.92
	// DefaultPhoneticThreshold applies when the Double Metaphone codes of
	// both names overlap.
	DefaultPhoneticThreshold = 0.85
)

// Registry is the slice of the entity store the materializer needs.
type Registry interface {
	HasName(name string) bool
	Names() []string
	GetByName(name string) (*entity.Entity, bool)
	Register(e *entity.Entity) (*entity.Entity, error)
}

// Mention is an entity the narrative collaborator reported explicitly.
type Mention struct {
	Text      string        `json:"text"`
	Type      entity.Type   `json:"type,omitempty"`
	Tier      entity.Tier   `json:"tier,omitempty"`
	Gender    entity.Gender `json:"gender,omitempty"`
	Casta     entity.Casta  `json:"casta,omitempty"`
	Archetype string        `json:"archetype,omitempty"`
	Faction   string        `json:"faction,omitempty"`
}

// Materializer turns extracted names into registered entities.
type Materializer struct {
	reg         Registry
	extractor   NameExtractor
	protagonist string
	fuzzy       float64
	phonetic    float64
	events      *logger.EventLogger
}

type Option func(*Materializer)

func WithProtagonist(name string) Option {
	return func(m *Materializer) { m.protagonist = name }
}

func WithThresholds(fuzzy, phonetic float64) Option {
	return func(m *Materializer) {
		m.fuzzy, m.phonetic = fuzzy, phonetic
	}
}

func WithEventLogger(l *logger.EventLogger) Option {
	return func(m *Materializer) {
		if l != nil {
			m.events = l
		}
	}
}

// NewMaterializer returns a Materializer registering into reg.
func NewMaterializer(reg Registry, x NameExtractor, opts ...Option) *Materializer {
	m := &Materializer{
		reg:       reg,
		extractor: x,
		fuzzy:     DefaultFuzzyThreshold,
		phonetic:  DefaultPhoneticThreshold,
		events:    logger.NewEventLogger(slog.Default(), 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ingest registers the entities found in a turn's narrative. An explicit
// mention list takes precedence; regex extraction only runs without one.
// Errors for single candidates are joined and returned alongside every
// entity that was registered.
func (m *Materializer) Ingest(text string, mentions []Mention) ([]*entity.Entity, error) {
	if len(mentions) > 0 {
		return m.FromMentions(mentions)
	}
	if m.extractor == nil {
		return nil, nil
	}
	return m.FromNames(m.extractor.ExtractNames(text))
}

// FromNames registers an npc for every name that is neither known nor the
// protagonist.
func (m *Materializer) FromNames(names []string) ([]*entity.Entity, error) {
	ms := make([]Mention, 0, len(names))
	for _, n := range names {
		ms = append(ms, Mention{Text: n})
	}
	return m.materialize(ms, entity.SourceNarrative)
}

// FromMentions registers the collaborator's explicit entity list, keeping
// its type, tier and demographic hints. A mention of an entity the store
// already knows merges its hints into that entity; only new entities are
// returned.
func (m *Materializer) FromMentions(ms []Mention) ([]*entity.Entity, error) {
	return m.materialize(ms, entity.SourceLLM)
}

func (m *Materializer) materialize(ms []Mention, source entity.DataSource) ([]*entity.Entity, error) {
	var created []*entity.Entity
	var errs []error
	known := m.reg.Names()

	for _, mention := range ms {
		name := strings.TrimSpace(mention.Text)
		if name == "" {
			errs = append(errs, fmt.Errorf("empty mention"))
			continue
		}
		if m.isProtagonist(name) {
			continue
		}
		knownAs := ""
		if m.reg.HasName(name) {
			knownAs = name
			m.events.Debug("extraction_known", name, "Name already registered")
		} else if match, ok := m.fuzzyKnown(name, known); ok {
			knownAs = match
			m.events.Debug("extraction_fuzzy_known", name, "Name resembles a registered entity", "match", match)
		}
		if knownAs != "" {
			// explicit mentions carry hints worth keeping; extracted names do not
			if source == entity.SourceLLM {
				if err := m.refine(mention, knownAs); err != nil {
					errs = append(errs, fmt.Errorf("failed to merge %q: %w", name, err))
				}
			}
			continue
		}

		e, err := m.register(mention, name, source)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to register %q: %w", name, err))
			continue
		}
		known = append(known, e.Name)
		created = append(created, e)
		m.events.Info("extraction_registered", e.ID, "Registered entity from narrative", "name", e.Name, "source", source)
	}
	return created, errors.Join(errs...)
}

func (m *Materializer) register(mention Mention, name string, source entity.DataSource) (*entity.Entity, error) {
	t := mention.Type
	if t == "" {
		t = entity.TypeNPC
	}
	e := &entity.Entity{
		ID:        entity.GenerateID(t, name),
		Type:      t,
		Tier:      mention.Tier,
		Name:      name,
		Gender:    mention.Gender,
		Casta:     mention.Casta,
		Archetype: mention.Archetype,
		Faction:   mention.Faction,
		Tags:      []string{"auto-generated"},
		Metadata:  entity.Metadata{DataSource: source},
	}
	if e.ID == "" {
		e.ID = string(t) + "_" + uuid.NewString()
	}
	if e.Tier == "" {
		e.Tier = entity.TierBackground
	}
	if e.Gender == "" && t.IsPerson() {
		first, _, _ := strings.Cut(name, " ")
		e.Gender = identity.GenderFromKeywords(strings.ToLower(first))
	}
	return m.reg.Register(e)
}

// refine merges the demographic hints of a mention into the entity already
// registered as knownAs. Mentions without hints change nothing.
func (m *Materializer) refine(mention Mention, knownAs string) error {
	existing, ok := m.reg.GetByName(knownAs)
	if !ok {
		return nil
	}
	overlay := &entity.Entity{
		ID:        existing.ID,
		Type:      existing.Type,
		Tier:      mention.Tier,
		Gender:    mention.Gender,
		Casta:     mention.Casta,
		Archetype: mention.Archetype,
		Faction:   mention.Faction,
	}
	if overlay.Tier == "" && overlay.Gender == "" && overlay.Casta == "" &&
		overlay.Archetype == "" && overlay.Faction == "" {
		return nil
	}
	merged, err := m.reg.Register(overlay)
	if err != nil {
		return err
	}
	m.events.Info("extraction_merged", merged.ID, "Merged mention into registered entity", "name", merged.Name)
	return nil
}

func (m *Materializer) isProtagonist(name string) bool {
	if m.protagonist == "" {
		return false
	}
	n, p := entity.NormalizeName(name), entity.NormalizeName(m.protagonist)
	if n == p || strings.Contains(" "+p+" ", " "+n+" ") {
		return true
	}
	return matchr.JaroWinkler(n, p, false) >= m.fuzzy
}

// fuzzyKnown compares name against every known name, first on the whole
// normalized string, then with spaces removed. Phonetically similar names
// pass at the lower threshold.
func (m *Materializer) fuzzyKnown(name string, known []string) (string, bool) {
	n := entity.NormalizeName(name)
	nCodes := metaphone(n)
	for _, k := range known {
		kn := entity.NormalizeName(k)
		if kn == "" {
			continue
		}
		score := matchr.JaroWinkler(n, kn, false)
		if s := matchr.JaroWinkler(strings.ReplaceAll(n, " ", ""), strings.ReplaceAll(kn, " ", ""), false); s > score {
			score = s
		}
		threshold := m.fuzzy
		if nCodes != "" && nCodes == metaphone(kn) {
			threshold = m.phonetic
		}
		if score >= threshold {
			return k, true
		}
	}
	return "", false
}

// metaphone returns the primary Double Metaphone code of s with spaces
// removed.
func metaphone(s string) string {
	p, _ := matchr.DoubleMetaphone(strings.ReplaceAll(s, " ", ""))
	return p
}
