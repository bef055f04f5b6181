package scenario

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/encounter-engine/pkg/conditions"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

// Validate reports every structural problem in the scenario at once.
func (s *Scenario) Validate() error {
	v := &validator{}

	if strings.TrimSpace(s.Name) == "" {
		v.add("name is required")
	}
	if strings.TrimSpace(s.Protagonist) == "" {
		v.add("protagonist is required")
	}
	if s.StartDate != "" {
		if _, ok := conditions.ParseDate(s.StartDate); !ok {
			v.add("start_date %q is not YYYY-MM-DD", s.StartDate)
		}
	}
	if s.StartTime != "" {
		if _, _, ok := conditions.ParseClock(s.StartTime); !ok {
			v.add("start_time %q is not a recognised time", s.StartTime)
		}
	}

	names := v.entities(s.Entities)
	v.rules(s.Rules, names)
	v.deadlines(s.Deadlines, names)
	v.tuning(s)

	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w:\n%s", ErrInvalid, strings.Join(v.problems, "\n"))
}

type validator struct {
	problems []string
}

func (v *validator) add(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// entities checks each entity and returns the set of normalized names.
func (v *validator) entities(es []*entity.Entity) map[string]bool {
	names := make(map[string]bool)
	ids := make(map[string]int)
	templates := make(map[string]int)
	for i, e := range es {
		if e == nil {
			v.add("entities[%d] is empty", i)
			continue
		}
		if !e.Type.Valid() {
			v.add("entities[%d] (%s) has invalid type %q", i, e.Name, e.Type)
		}
		if strings.TrimSpace(e.Name) == "" {
			v.add("entities[%d] has no name", i)
			continue
		}
		id := e.ID
		switch {
		case id == "" && e.IsTemplate():
			id = templateID(e, templates)
		case id == "":
			id = entity.GenerateID(e.Type, e.Name)
		}
		if prev, ok := ids[id]; ok {
			v.add("entities[%d] (%s) duplicates id %q from entities[%d]", i, e.Name, id, prev)
		} else {
			ids[id] = i
		}
		if !e.IsTemplate() {
			names[entity.NormalizeName(e.Name)] = true
		}
	}
	return names
}

func (v *validator) rules(rules []conditions.Rule, names map[string]bool) {
	seen := make(map[string]bool)
	for i, r := range rules {
		key := entity.NormalizeName(r.Name)
		if key == "" {
			v.add("rules[%d] has no name", i)
			continue
		}
		if seen[key] {
			v.add("rules[%d] repeats the rule for %q", i, r.Name)
		}
		seen[key] = true
		if !names[key] {
			v.add("rules[%d] refers to unknown entity %q", i, r.Name)
		}
		for j, m := range r.Modifiers {
			if m.Weight < 0 {
				v.add("rules[%d].modifiers[%d] has negative weight %v", i, j, m.Weight)
			}
		}
	}
}

func (v *validator) deadlines(ds []conditions.Deadline, names map[string]bool) {
	for i, d := range ds {
		if _, ok := conditions.ParseMoment(d.At); !ok {
			v.add("deadlines[%d] (%s) has invalid time %q", i, d.Name, d.At)
		}
		if !names[entity.NormalizeName(d.Name)] {
			v.add("deadlines[%d] refers to unknown entity %q", i, d.Name)
		}
	}
}

func (v *validator) tuning(s *Scenario) {
	t := s.Tuning
	for name, p := range map[string]float64{
		"base_probability":      t.BaseProbability,
		"encounter_probability": t.EncounterProbability,
		"avoid_probability":     t.AvoidProbability,
	} {
		if p < 0 || p > 1 {
			v.add("tuning.%s %v is outside [0,1]", name, p)
		}
	}
	if len(t.WorkplaceKeywords) == 0 {
		v.add("tuning.workplace_keywords is empty")
	}
	for _, h := range []int{t.BusinessHours.From, t.BusinessHours.To, t.EveningFrom} {
		if h < 0 || h > 24 {
			v.add("tuning hour %d is outside 0-24", h)
		}
	}
}
