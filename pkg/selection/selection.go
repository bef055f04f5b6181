// Package selection decides which entity, if any, the player meets on a
// turn. Hard filters and critical overrides come first, then contextual soft
// weights, then an encounter-probability gate, then a weighted draw.
package selection

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/jwebster45206/encounter-engine/internal/logger"
	"github.com/jwebster45206/encounter-engine/pkg/conditions"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
	"github.com/jwebster45206/encounter-engine/pkg/store"
)

// CandidateTypes are the entity types that can be encountered.
var CandidateTypes = []entity.Type{entity.TypeNPC, entity.TypePatient, entity.TypeAntagonist, entity.TypeState}

// TurnContext is everything the orchestrator knows about the current turn.
type TurnContext struct {
	conditions.State
	ScenarioID    string   `json:"scenario_id,omitempty"`
	Action        string   `json:"action"`
	RecentlySeen  []string `json:"recently_seen,omitempty"`
	ActivePatient bool     `json:"active_patient"`
}

// Pool supplies raw candidate records.
type Pool interface {
	ByType(types ...entity.Type) []*entity.Entity
}

// Rules is the condition engine as seen by the selector.
type Rules interface {
	CheckConditions(name string, s conditions.State) conditions.Result
	GetCriticalNPC(s conditions.State) (conditions.Critical, bool)
}

// Candidate is a weighted survivor of the hard filters.
type Candidate struct {
	Entity  *entity.Entity
	Weight  float64
	Reasons []string
}

// Outcome reports one selection. Entity is nil when nobody appears.
type Outcome struct {
	Entity      *entity.Entity
	Critical    bool
	Reason      string
	Probability float64
	Roll        float64
	Candidates  int
}

// Selector picks at most one entity per turn.
type Selector struct {
	pool   Pool
	rules  Rules
	src    dice.Source
	tuning Tuning
	events *logger.EventLogger
}

type Option func(*Selector)

func WithTuning(t Tuning) Option {
	return func(s *Selector) { s.tuning = t }
}

func WithEventLogger(l *logger.EventLogger) Option {
	return func(s *Selector) {
		if l != nil {
			s.events = l
		}
	}
}

// New returns a Selector. rules may be nil.
func New(pool Pool, rules Rules, src dice.Source, opts ...Option) *Selector {
	s := &Selector{
		pool:   pool,
		rules:  rules,
		src:    src,
		tuning: DefaultTuning(),
		events: logger.NewEventLogger(slog.Default(), 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tuning returns the active tuning.
func (s *Selector) Tuning() Tuning { return s.tuning }

// SelectEntity runs the full selection for tc. The returned entity is a raw
// record; templates are returned unresolved.
func (s *Selector) SelectEntity(tc TurnContext) Outcome {
	pool := s.pool.ByType(CandidateTypes...)

	if s.rules != nil {
		if crit, ok := s.rules.GetCriticalNPC(tc.State); ok {
			if e := findByName(pool, crit.Name); e != nil {
				return Outcome{Entity: e, Critical: true, Reason: crit.Reason, Probability: 1, Candidates: 1}
			}
			s.events.Warn("critical_missing", crit.Name, "Critical entity is not registered, continuing with normal selection")
		}
	}

	candidates := s.Weigh(tc, pool)
	out := Outcome{Candidates: len(candidates)}
	if len(candidates) == 0 {
		out.Reason = "no eligible candidates"
		return out
	}

	out.Probability = s.EncounterProbability(tc.Action)
	out.Roll = s.src.Float64()
	if out.Roll > out.Probability {
		out.Reason = fmt.Sprintf("no encounter (roll %.2f > %.2f)", out.Roll, out.Probability)
		return out
	}

	c := Draw(s.src, candidates)
	if c == nil {
		out.Reason = "all candidates weighted to zero"
		return out
	}
	out.Entity = c.Entity
	out.Reason = strings.Join(c.Reasons, "; ")
	return out
}

// Weigh applies the hard filters to pool and returns the survivors with
// their soft weights. Zero-weight survivors are kept so callers can see them.
func (s *Selector) Weigh(tc TurnContext, pool []*entity.Entity) []Candidate {
	t := s.tuning
	hour := tc.Hour()
	atWork := s.atWorkplace(tc.Location)
	recent := make(map[string]bool, len(tc.RecentlySeen))
	for _, n := range tc.RecentlySeen {
		recent[entity.NormalizeName(n)] = true
	}

	var out []Candidate
	for _, e := range pool {
		if e.Type == entity.TypePatient {
			if reason := s.patientBlocked(tc, atWork, hour); reason != "" {
				s.events.Debug("patient_excluded", e.ID, "Patient excluded", "reason", reason)
				continue
			}
		}

		c := Candidate{Entity: e, Weight: 1.0}
		if s.rules != nil && !e.IsTemplate() {
			res := s.rules.CheckConditions(e.Name, tc.State)
			if !res.Available {
				s.events.Debug("unavailable", e.ID, "Entity unavailable", "reason", res.Reason)
				continue
			}
			c.ruleWeight(res)
		}

		if recent[entity.NormalizeName(e.Name)] || recent[entity.NormalizeName(store.BaseName(e.Name))] {
			c.apply(t.RecencyFactor, "recently seen")
		}
		if e.Type == entity.TypePatient && atWork {
			c.apply(t.PatientAtWorkplace, "patient at workplace")
		}
		if e.Faction != "" {
			if standing, ok := tc.Reputation.Faction(e.Faction); ok {
				for _, tier := range t.FactionTiers {
					if tier.matches(standing) {
						c.apply(tier.Weight, fmt.Sprintf("%s standing %d", e.Faction, standing))
						break
					}
				}
			}
		}
		switch overall := tc.Reputation.Overall; {
		case overall >= t.EliteReputation && e.Class() == entity.ClassElite:
			c.apply(t.ClassFavour, "elite favour")
		case overall < t.CommonReputation && e.Class() == entity.ClassCommon:
			c.apply(t.ClassFavour, "common favour")
		case overall < t.CommonReputation && e.Class() == entity.ClassElite:
			c.apply(t.ClassDisfavour, "elite disdain")
		}
		villain := isAntagonist(e)
		if villain && tc.Wealth < t.LowWealth {
			c.apply(t.LowWealthVillain, "player is poor")
		}
		if hour >= t.EveningFrom && (villain || s.isDebtCollector(e)) {
			c.apply(t.EveningAntagonist, "evening")
		}
		if e.Type == entity.TypePatient && t.PatientMorning.Contains(hour) {
			c.apply(t.PatientMorningBias, "morning patients")
		}
		out = append(out, c)
	}
	return out
}

func (c *Candidate) apply(factor float64, reason string) {
	c.Weight *= factor
	c.Reasons = append(c.Reasons, reason)
}

func (c *Candidate) ruleWeight(res conditions.Result) {
	if res.Weight == 1.0 && res.Reason == "" {
		return
	}
	c.Weight *= res.Weight
	if res.Reason != "" {
		c.Reasons = append(c.Reasons, res.Reason)
	}
}

// patientBlocked returns why a patient cannot appear, or "".
func (s *Selector) patientBlocked(tc TurnContext, atWork bool, hour int) string {
	switch {
	case tc.ActivePatient:
		return "a patient is already being treated"
	case !atWork:
		return "not at the workplace"
	case !s.tuning.BusinessHours.Contains(hour):
		return "outside business hours"
	case tc.ShopClosed():
		return "shop sign is closed"
	}
	return ""
}

func (s *Selector) atWorkplace(location string) bool {
	for _, kw := range s.tuning.WorkplaceKeywords {
		if conditions.LocationMatches(location, kw) {
			return true
		}
	}
	return false
}

func (s *Selector) isDebtCollector(e *entity.Entity) bool {
	for _, tag := range s.tuning.DebtCollectorTags {
		if e.HasTag(tag) {
			return true
		}
	}
	return false
}

func isAntagonist(e *entity.Entity) bool {
	return e.Type == entity.TypeAntagonist || e.HasTag("antagonist")
}

// EncounterProbability maps the player's action to the chance that anyone
// appears. Avoidance keywords win over encounter keywords.
func (s *Selector) EncounterProbability(action string) float64 {
	switch {
	case MatchesKeyword(action, s.tuning.AvoidKeywords):
		return s.tuning.AvoidProbability
	case MatchesKeyword(action, s.tuning.EncounterKeywords):
		return s.tuning.EncounterProbability
	}
	return s.tuning.BaseProbability
}

// MatchesKeyword reports whether text contains any of keywords as a word or
// a regular inflection of one: "knock" matches "knocks", "knocked" and
// "knocking" but not "knockout"; "hide" matches "hiding". Keywords
// containing spaces match as a phrase, each word inflected the same way.
func MatchesKeyword(text string, keywords []string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	if len(words) == 0 {
		return false
	}
	for _, kw := range keywords {
		phrase := strings.Fields(strings.ToLower(kw))
		if len(phrase) == 0 {
			continue
		}
		for i := 0; i+len(phrase) <= len(words); i++ {
			if phraseAt(words[i:], phrase) {
				return true
			}
		}
	}
	return false
}

func phraseAt(words, phrase []string) bool {
	for k, p := range phrase {
		if !inflectionOf(words[k], p) {
			return false
		}
	}
	return true
}

// inflectionOf reports whether word is base itself or base with a plural,
// past or progressive ending, allowing a dropped final e ("closing") and a
// doubled final consonant ("stopped").
func inflectionOf(word, base string) bool {
	if word == base {
		return true
	}
	if rest, ok := strings.CutPrefix(word, base); ok {
		switch rest {
		case "s", "es", "ed", "ing":
			return true
		case "d":
			return strings.HasSuffix(base, "e")
		}
		if len(rest) > 2 && rest[0] == base[len(base)-1] {
			switch rest[1:] {
			case "ed", "ing":
				return true
			}
		}
		return false
	}
	if stem, ok := strings.CutSuffix(base, "e"); ok && stem != "" {
		return word == stem+"ing"
	}
	return false
}

// Draw picks a candidate with probability proportional to its weight. It
// returns nil when no candidate has positive weight.
func Draw(src dice.Source, candidates []Candidate) *Candidate {
	var total float64
	var last *Candidate
	for i := range candidates {
		if candidates[i].Weight > 0 {
			total += candidates[i].Weight
			last = &candidates[i]
		}
	}
	if total <= 0 {
		return nil
	}
	r := src.Float64() * total
	for i := range candidates {
		w := candidates[i].Weight
		if w <= 0 {
			continue
		}
		r -= w
		if r <= 0 {
			return &candidates[i]
		}
	}
	return last
}

// findByName resolves a critical name against the pool: exact normalized
// match first, then the shortest name containing it.
func findByName(pool []*entity.Entity, name string) *entity.Entity {
	q := entity.NormalizeName(name)
	if q == "" {
		return nil
	}
	var best *entity.Entity
	bestLen := 0
	for _, e := range pool {
		if e.IsTemplate() {
			continue
		}
		full := entity.NormalizeName(e.Name)
		if full == q || entity.NormalizeName(store.BaseName(e.Name)) == q {
			return e
		}
		if strings.Contains(full, q) && (best == nil || len(full) < bestLen) {
			best, bestLen = e, len(full)
		}
	}
	return best
}
