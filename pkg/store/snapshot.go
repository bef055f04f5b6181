package store

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

// Snapshot is the persisted form of the store: raw records only, in
// registration order. Enriched views are never persisted.
type Snapshot struct {
	Version  int              `json:"version"`
	Entities []*entity.Entity `json:"entities"`
}

// Snapshot captures the current raw records.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &Snapshot{
		Version:  s.version,
		Entities: make([]*entity.Entity, 0, len(s.order)),
	}
	for _, id := range s.order {
		snap.Entities = append(snap.Entities, s.raw[id].Clone())
	}
	return snap
}

// Restore replaces the store contents with snap. Records that fail
// validation are skipped and reported together.
func (s *Store) Restore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("cannot restore nil snapshot")
	}
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	return s.Merge(snap)
}

// Merge re-registers every record in snap on top of the current contents.
// Registration merges, so the order of records does not matter and entities
// missing from snap are kept. Records that fail validation are skipped and
// reported together.
func (s *Store) Merge(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("cannot merge nil snapshot")
	}
	var errs []error
	for _, e := range snap.Entities {
		if _, err := s.Register(e); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("skipped %d entities: %w", len(errs), err)
	}
	return nil
}

// Rollback restores snap and rewinds the store version to the snapshot's,
// so a caller can undo a sequence of writes.
func (s *Store) Rollback(snap *Snapshot) error {
	if err := s.Restore(snap); err != nil {
		return err
	}
	s.mu.Lock()
	s.version = snap.Version
	s.mu.Unlock()
	return nil
}
