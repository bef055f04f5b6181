// Package scenario loads the static content a session starts from: the
// protagonist, seeded entities, availability rules, critical deadlines,
// selection tuning and extraction vocabulary.
package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/encounter-engine/pkg/conditions"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
	"github.com/jwebster45206/encounter-engine/pkg/extract"
	"github.com/jwebster45206/encounter-engine/pkg/selection"
)

var ErrInvalid = errors.New("invalid scenario")

// Scenario is the content a session is seeded from.
type Scenario struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Protagonist   string `json:"protagonist"`
	StartDate     string `json:"start_date,omitempty"`
	StartTime     string `json:"start_time,omitempty"`
	StartLocation string `json:"start_location,omitempty"`

	Entities   []*entity.Entity      `json:"entities,omitempty"`
	Rules      []conditions.Rule     `json:"rules,omitempty"`
	Deadlines  []conditions.Deadline `json:"deadlines,omitempty"`
	Tuning     selection.Tuning      `json:"tuning"`
	Extraction extract.Vocabulary    `json:"extraction"`
}

// New returns an empty scenario carrying the default tuning and vocabulary.
func New() *Scenario {
	return &Scenario{
		Tuning:     selection.DefaultTuning(),
		Extraction: extract.DefaultVocabulary(),
	}
}

// Load reads a scenario from a .yaml, .yml or .json file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return ParseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported scenario extension %q", ext)
	}
}

// ParseJSON decodes a scenario strictly: unknown fields are errors. Fields
// the document omits keep their defaults.
func ParseJSON(data []byte) (*Scenario, error) {
	s := New()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
	}
	return s, nil
}

// ParseYAML decodes YAML content by converting it to JSON first, so every
// type is described once by its json tags.
func ParseYAML(data []byte) (*Scenario, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario yaml: %w", err)
	}
	if doc == nil {
		return New(), nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert scenario yaml: %w", err)
	}
	return ParseJSON(raw)
}

// Conditions builds the condition engine for the scenario's rules and
// deadlines.
func (s *Scenario) Conditions(opts ...conditions.Option) (*conditions.Engine, error) {
	return conditions.New(s.Rules, s.Deadlines, opts...)
}

// Registrar is the store operation Populate needs.
type Registrar interface {
	Register(e *entity.Entity) (*entity.Entity, error)
}

// Populate registers every scenario entity as static content. Templates
// without an id are numbered in file order, so populating again merges into
// the same records. Failures are collected and returned together; the
// remaining entities are still registered.
func (s *Scenario) Populate(r Registrar) (int, error) {
	var errs []error
	n := 0
	templates := make(map[string]int)
	for i, e := range s.Entities {
		if e == nil {
			continue
		}
		in := e.Clone()
		if in.ID == "" && in.IsTemplate() {
			in.ID = templateID(in, templates)
		}
		if in.Metadata.DataSource == "" {
			in.Metadata.DataSource = entity.SourceStatic
		}
		if _, err := r.Register(in); err != nil {
			errs = append(errs, fmt.Errorf("entity %d (%s): %w", i, e.Name, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// templateID derives the id of the next id-less template of the same kind:
// the first keeps the plain derived id, later ones get _2, _3 and so on.
func templateID(e *entity.Entity, seen map[string]int) string {
	base := entity.GenerateID(e.Type, e.Name)
	seen[base]++
	if seen[base] == 1 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, seen[base])
}
