// Package store is the authoritative registry of entities. It owns the raw
// records, keeps the type/name/tier indices consistent with them, and hands
// out enriched views computed lazily on first read.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/encounter-engine/internal/logger"
	"github.com/jwebster45206/encounter-engine/pkg/enrich"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

var (
	ErrNotFound       = errors.New("entity not found")
	ErrImmutableField = errors.New("id and type cannot change")
)

// Enricher produces the enriched view of a raw record.
type Enricher interface {
	Enrich(raw *entity.Entity) (enrich.Result, error)
}

// ChangeFunc is called after every committed write with the new store
// version. It runs outside the store lock.
type ChangeFunc func(version int)

// Store is the entity registry. It is safe for concurrent use, though the
// engine drives it from one turn at a time.
type Store struct {
	mu sync.Mutex

	raw      map[string]*entity.Entity
	order    []string
	enriched map[string]*entity.Entity
	patterns map[string]*regexp.Regexp
	idx      *index
	version  int

	enricher Enricher
	onChange []ChangeFunc
	now      func() time.Time
	events   *logger.EventLogger
}

// Option configures a Store.
type Option func(*Store)

// WithOnChange registers a persistence callback.
func WithOnChange(fn ChangeFunc) Option {
	return func(s *Store) {
		s.onChange = append(s.onChange, fn)
	}
}

// WithEventLogger sets the rate-limited logger.
func WithEventLogger(l *logger.EventLogger) Option {
	return func(s *Store) {
		s.events = l
	}
}

// WithClock overrides time.Now for metadata timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns an empty store that enriches reads with e.
func New(e Enricher, opts ...Option) *Store {
	s := &Store{
		raw:      make(map[string]*entity.Entity),
		enriched: make(map[string]*entity.Entity),
		patterns: make(map[string]*regexp.Regexp),
		idx:      newIndex(),
		enricher: e,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.events == nil {
		s.events = logger.NewEventLogger(slog.Default(), 0)
	}
	return s
}

// OnChange registers a persistence callback after construction.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Register adds e to the store, or deep-merges it into the existing record
// with the same id. A missing id is derived from the type and name; id-less
// templates also get a random suffix so two placeholders never merge. It
// returns a copy of the resulting raw record.
func (s *Store) Register(e *entity.Entity) (*entity.Entity, error) {
	if e == nil {
		return nil, entity.ErrMissingID
	}
	in := e.Clone()
	if in.Type == "" {
		return nil, fmt.Errorf("%w: %q", entity.ErrMissingType, in.Name)
	}
	if in.ID == "" {
		in.ID = entity.GenerateID(in.Type, in.Name)
		// every template shares its sentinel name
		if in.ID != "" && in.IsTemplate() {
			in.ID += "_" + uuid.NewString()[:8]
		}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	now := s.now()
	existing, ok := s.raw[in.ID]
	var next *entity.Entity
	if ok {
		if in.Type != existing.Type {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s is %s, not %s", ErrImmutableField, in.ID, existing.Type, in.Type)
		}
		merged, err := entity.Merge(existing, in)
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("failed to merge %s: %w", in.ID, err)
		}
		merged.Metadata.Created = existing.Metadata.Created
		merged.Metadata.Version = existing.Metadata.Version + 1
		next = merged
	} else {
		next = in
		if next.Metadata.Created.IsZero() {
			next.Metadata.Created = now
		}
		if next.Metadata.Version == 0 {
			next.Metadata.Version = 1
		}
	}
	if next.Tier == "" {
		next.Tier = entity.TierBackground
	}
	if next.Metadata.DataSource == "" {
		next.Metadata.DataSource = entity.SourceManual
	}
	next.Metadata.LastModified = now

	version := s.commitLocked(next)
	out := next.Clone()
	callbacks := s.onChange
	s.mu.Unlock()

	s.notify(callbacks, version)
	return out, nil
}

// Update deep-merges patch into the raw record for id. Nested objects merge
// key by key; anything else in patch replaces the stored value.
func (s *Store) Update(id string, patch map[string]any) (*entity.Entity, error) {
	s.mu.Lock()
	existing, ok := s.raw[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if v, ok := patch["id"]; ok && v != id {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: id", ErrImmutableField)
	}
	if v, ok := patch["type"]; ok && fmt.Sprint(v) != string(existing.Type) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: type", ErrImmutableField)
	}

	next, err := entity.Patch(existing, patch)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to update %s: %w", id, err)
	}
	next.Metadata.Created = existing.Metadata.Created
	next.Metadata.Version = existing.Metadata.Version + 1
	next.Metadata.LastModified = s.now()

	version := s.commitLocked(next)
	out := next.Clone()
	callbacks := s.onChange
	s.mu.Unlock()

	s.notify(callbacks, version)
	return out, nil
}

// RecordInteraction appends an interaction to the relationship from id to
// otherID, creating a neutral relationship first if none exists.
func (s *Store) RecordInteraction(id, otherID string, i entity.Interaction) (*entity.Relationship, error) {
	s.mu.Lock()
	existing, ok := s.raw[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := existing.Clone()
	if next.Relationships == nil {
		next.Relationships = make(map[string]*entity.Relationship)
	}
	rel, ok := next.Relationships[otherID]
	if !ok {
		rel = entity.NewRelationship()
		next.Relationships[otherID] = rel
	}
	if i.At.IsZero() {
		i.At = s.now()
	}
	rel.Record(i)
	next.Metadata.Version++
	next.Metadata.LastModified = s.now()

	version := s.commitLocked(next)
	out := *rel
	callbacks := s.onChange
	s.mu.Unlock()

	s.notify(callbacks, version)
	return &out, nil
}

// Delete removes an entity outright. Normal play never deletes; this exists
// for resets and tests.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	old, ok := s.raw[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.idx.remove(old)
	delete(s.raw, id)
	delete(s.enriched, id)
	delete(s.patterns, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.version++
	version := s.version
	callbacks := s.onChange
	s.mu.Unlock()

	s.notify(callbacks, version)
	return true
}

// Reset removes every entity.
func (s *Store) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.version++
	version := s.version
	callbacks := s.onChange
	s.mu.Unlock()
	s.notify(callbacks, version)
}

func (s *Store) resetLocked() {
	s.raw = make(map[string]*entity.Entity)
	s.enriched = make(map[string]*entity.Entity)
	s.patterns = make(map[string]*regexp.Regexp)
	s.order = nil
	s.idx = newIndex()
}

// GetByID returns the enriched view of id.
func (s *Store) GetByID(id string) (*entity.Entity, bool) {
	s.mu.Lock()
	e, version, changed := s.enrichedLocked(id)
	callbacks := s.onChange
	s.mu.Unlock()
	if changed {
		s.notify(callbacks, version)
	}
	if e == nil {
		return nil, false
	}
	return e.Clone(), true
}

// GetByName returns the enriched view of the entity whose normalized name
// matches name exactly or, failing that, by substring containment.
func (s *Store) GetByName(name string) (*entity.Entity, bool) {
	s.mu.Lock()
	id, ok := s.idx.lookupName(entity.NormalizeName(name), s.order)
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	e, version, changed := s.enrichedLocked(id)
	callbacks := s.onChange
	s.mu.Unlock()
	if changed {
		s.notify(callbacks, version)
	}
	if e == nil {
		return nil, false
	}
	return e.Clone(), true
}

// HasName reports whether name resolves to a registered entity, without
// triggering enrichment.
func (s *Store) HasName(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.idx.lookupName(entity.NormalizeName(name), s.order)
	return ok
}

// Raw returns a copy of the raw record for id.
func (s *Store) Raw(id string) (*entity.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.raw[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Names returns the display names of all non-template entities.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, id := range s.order {
		if e := s.raw[id]; !e.IsTemplate() {
			names = append(names, e.Name)
		}
	}
	return names
}

// ByType returns copies of the raw records of the given types in
// registration order.
func (s *Store) ByType(types ...entity.Type) []*entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Entity
	for _, id := range s.order {
		e := s.raw[id]
		for _, t := range types {
			if e.Type == t {
				out = append(out, e.Clone())
				break
			}
		}
	}
	return out
}

// ByTier returns copies of the raw records in tier, in registration order.
func (s *Store) ByTier(tier entity.Tier) []*entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Entity
	for _, id := range s.order {
		if _, ok := s.idx.byTier[tier][id]; ok {
			out = append(out, s.raw[id].Clone())
		}
	}
	return out
}

// All returns copies of every raw record in registration order.
func (s *Store) All() []*entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.raw[id].Clone())
	}
	return out
}

// Count returns the number of registered entities.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.raw)
}

// Version increments on every committed write.
func (s *Store) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// commitLocked stores next as the raw record, reindexes it, and drops every
// cache derived from the previous record.
func (s *Store) commitLocked(next *entity.Entity) int {
	old, existed := s.raw[next.ID]
	if existed {
		s.idx.remove(old)
	} else {
		s.order = append(s.order, next.ID)
	}
	s.raw[next.ID] = next
	s.idx.add(next)
	delete(s.enriched, next.ID)
	delete(s.patterns, next.ID)
	s.version++
	return s.version
}

// enrichedLocked returns the cached enriched view for id, computing it on a
// miss. When enrichment resolves a template, the generated identity is
// written back to the raw record so it is never regenerated; changed
// reports that write.
func (s *Store) enrichedLocked(id string) (e *entity.Entity, version int, changed bool) {
	if cached, ok := s.enriched[id]; ok {
		return cached, s.version, false
	}
	raw, ok := s.raw[id]
	if !ok {
		return nil, s.version, false
	}
	if s.enricher == nil {
		s.enriched[id] = raw
		return raw, s.version, false
	}

	res, err := s.enricher.Enrich(raw)
	if err != nil {
		s.events.Warn("enrichment_failed", id, "Enrichment failed, serving raw record", "error", err)
		return raw, s.version, false
	}

	if res.Resolved != nil {
		next := raw.Clone()
		next.Name = res.Resolved.FullName
		next.Gender = res.Resolved.Gender
		next.Casta = res.Resolved.Casta
		next.Archetype = res.Entity.Archetype
		next.Metadata.Version++
		next.Metadata.LastModified = s.now()
		if next.Metadata.DataSource == entity.SourceManual || next.Metadata.DataSource == "" {
			next.Metadata.DataSource = entity.SourceGenerated
		}
		version = s.commitLocked(next)
		changed = true
		res.Entity.Name = next.Name
		res.Entity.Metadata = next.Metadata
		s.events.Info("template_resolved", id, "Resolved template identity", "name", next.Name)
	}

	s.enriched[id] = res.Entity
	if !changed {
		version = s.version
	}
	return res.Entity, version, changed
}

func (s *Store) notify(callbacks []ChangeFunc, version int) {
	for _, fn := range callbacks {
		fn(version)
	}
}
