// Package actor builds d20 actors from enriched entities so the orchestrator
// can resolve skill checks against an NPC's skills facet.
package actor

import (
	"fmt"
	"maps"
	"strings"

	"github.com/jwebster45206/d20"

	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

const (
	DefaultHP = 10
	DefaultAC = 10
)

// combatSkills become combat modifiers as well as attributes.
var combatSkills = []string{"brawling", "fencing", "firearms", "knife", "wrestling"}

// NPC pairs an entity with the d20 actor built from it.
type NPC struct {
	Entity *entity.Entity
	Actor  *d20.Actor
}

// NewNPCActor builds a d20 actor whose attributes are e's skills. Entities
// without skills get an actor with no attributes; every check then rolls
// unmodified.
func NewNPCActor(e *entity.Entity) (*NPC, error) {
	if e == nil {
		return nil, fmt.Errorf("entity cannot be nil")
	}
	if e.IsTemplate() {
		return nil, fmt.Errorf("entity %s is an unresolved template", e.ID)
	}

	attrs := make(map[string]int, len(e.Skills))
	mods := make(map[string]int)
	for skill, v := range e.Skills {
		key := strings.ToLower(skill)
		attrs[key] = v
		for _, c := range combatSkills {
			if key == c {
				mods[key] = Modifier(v)
			}
		}
	}

	hp, ac := DefaultHP, DefaultAC
	if v, ok := intState(e, "hp"); ok {
		hp = v
	}
	if v, ok := intState(e, "ac"); ok {
		ac = v
	}

	a, err := d20.NewActor(e.ID).
		WithHP(hp).
		WithAC(ac).
		WithAttributes(attrs).
		WithCombatModifiers(mods).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}
	return &NPC{Entity: e, Actor: a}, nil
}

// intState reads an integer from the entity's free-form state. JSON numbers
// decode as float64.
func intState(e *entity.Entity, key string) (int, bool) {
	switch v := e.State[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Modifier converts a skill score to a check modifier, 5e style.
func Modifier(score int) int {
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

// Skills returns a copy of the actor's skill scores.
func (n *NPC) Skills() map[string]int {
	return maps.Clone(n.Entity.Skills)
}

// CheckResult is the outcome of one skill check.
type CheckResult struct {
	Skill    string `json:"skill"`
	Roll     int    `json:"roll"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
	DC       int    `json:"dc"`
	Success  bool   `json:"success"`
	Critical bool   `json:"critical,omitempty"`
	Fumble   bool   `json:"fumble,omitempty"`
}

// Check rolls a d20 plus the skill modifier against dc. A natural 20 always
// succeeds and a natural 1 always fails. Unknown skills roll unmodified.
func (n *NPC) Check(src dice.Source, skill string, dc int) CheckResult {
	key := strings.ToLower(strings.TrimSpace(skill))
	mod := 0
	if score, ok := n.Actor.Attribute(key); ok {
		mod = Modifier(score)
	}
	roll := src.IntN(20) + 1
	res := CheckResult{
		Skill:    key,
		Roll:     roll,
		Modifier: mod,
		Total:    roll + mod,
		DC:       dc,
		Critical: roll == 20,
		Fumble:   roll == 1,
	}
	res.Success = !res.Fumble && (res.Critical || res.Total >= dc)
	return res
}
