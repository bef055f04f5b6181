package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrMissingID   = errors.New("entity is missing an id")
	ErrMissingType = errors.New("entity is missing a type")
	ErrUnknownType = errors.New("entity has an unknown type")
)

// Type is the kind of record an entity represents.
type Type string

const (
	TypeNPC        Type = "npc"
	TypePatient    Type = "patient"
	TypeAntagonist Type = "antagonist"
	TypeState      Type = "state"
	TypeItem       Type = "item"
	TypeLocation   Type = "location"
	TypeQuest      Type = "quest"
)

var knownTypes = []Type{TypeNPC, TypePatient, TypeAntagonist, TypeState, TypeItem, TypeLocation, TypeQuest}

// Valid reports whether t is one of the known entity types.
func (t Type) Valid() bool {
	return slices.Contains(knownTypes, t)
}

// IsPerson reports whether entities of this type are people and therefore get
// identities, personalities and the rest of the character facets.
func (t Type) IsPerson() bool {
	switch t {
	case TypeNPC, TypePatient, TypeAntagonist:
		return true
	}
	return false
}

// Tier is the narrative importance of an entity.
type Tier string

const (
	TierStoryCritical Tier = "story-critical"
	TierRecurring     Tier = "recurring"
	TierBackground    Tier = "background"
)

// Gender of a person entity. Empty means not yet known.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// DataSource records where the raw record came from.
type DataSource string

const (
	SourceStatic    DataSource = "static"
	SourceGenerated DataSource = "generated"
	SourceNarrative DataSource = "narrative"
	SourceLLM       DataSource = "llm"
	SourceManual    DataSource = "manual"
)

// Metadata tracks record provenance and change history.
type Metadata struct {
	Created      time.Time  `json:"created,omitzero"`
	LastModified time.Time  `json:"last_modified,omitzero"`
	Version      int        `json:"version,omitempty"`
	DataSource   DataSource `json:"data_source,omitempty"`
}

// Entity is a person, item, location or quest tracked by the store.
//
// Zero-valued fields are omitted from JSON so that merging a partial record
// into an existing one only overrides what the partial record actually sets.
type Entity struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Tier      Tier   `json:"tier,omitempty"`
	Name      string `json:"name,omitempty"`
	Gender    Gender `json:"gender,omitempty"`
	Casta     Casta  `json:"casta,omitempty"`
	Archetype string `json:"archetype,omitempty"`
	Faction   string `json:"faction,omitempty"`
	Location  string `json:"location,omitempty"`
	Clickable *bool  `json:"clickable,omitempty"`

	Tags []string `json:"tags,omitempty"`

	Social      *SocialStanding `json:"social,omitempty"`
	Appearance  *Appearance     `json:"appearance,omitempty"`
	Personality *Personality    `json:"personality,omitempty"`
	Clothing    *Clothing       `json:"clothing,omitempty"`
	Biography   *Biography      `json:"biography,omitempty"`
	Skills      Skills          `json:"skills,omitempty"`
	Dialogue    *Dialogue       `json:"dialogue,omitempty"`

	Relationships map[string]*Relationship `json:"relationships,omitempty"`
	State         map[string]any           `json:"state,omitempty"`

	Metadata Metadata `json:"metadata,omitzero"`
}

// IsTemplate reports whether the entity still carries the template sentinel
// instead of a concrete identity.
func (e *Entity) IsTemplate() bool {
	return strings.Contains(e.Name, TemplateSentinel)
}

// IsClickable reports whether the entity should be linked when it appears in
// prose. People, items and locations are clickable unless switched off.
func (e *Entity) IsClickable() bool {
	if e.Clickable != nil {
		return *e.Clickable
	}
	return e.Type != TypeState && e.Type != TypeQuest
}

// HasTag reports whether the entity carries tag (case-insensitive).
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Occupation returns the declared occupation, falling back to the archetype.
func (e *Entity) Occupation() string {
	if e.Social != nil && e.Social.Occupation != "" {
		return e.Social.Occupation
	}
	return e.Archetype
}

// Class returns the social class, or ClassUnknown.
func (e *Entity) Class() Class {
	if e.Social == nil {
		return ClassUnknown
	}
	return e.Social.Class
}

// Validate checks the structural requirements for registration.
func (e *Entity) Validate() error {
	if e.ID == "" {
		return ErrMissingID
	}
	if e.Type == "" {
		return fmt.Errorf("%w: %s", ErrMissingType, e.ID)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
	return nil
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		// Every field is JSON-safe except values smuggled into State.
		panic(fmt.Sprintf("entity %s: clone: %v", e.ID, err))
	}
	var out Entity
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("entity %s: clone: %v", e.ID, err))
	}
	return &out
}
