// Package persist saves store snapshots shortly after the store changes.
// Bursts of writes within the debounce window collapse into one save.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/encounter-engine/internal/storage"
	"github.com/jwebster45206/encounter-engine/pkg/store"
)

const saveTimeout = 10 * time.Second

// Source is the part of the store the saver reads from.
type Source interface {
	Snapshot() *store.Snapshot
	Merge(*store.Snapshot) error
}

// SaveFunc observes each completed save attempt.
type SaveFunc func(version int, err error)

type Saver struct {
	src     Source
	storage storage.Storage
	session uuid.UUID
	delay   time.Duration
	logger  *slog.Logger
	onSave  SaveFunc

	mu        sync.Mutex
	timer     *time.Timer
	lastSaved int
	closed    bool
}

type Option func(*Saver)

func WithLogger(l *slog.Logger) Option {
	return func(s *Saver) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOnSave registers a hook called after every save attempt.
func WithOnSave(fn SaveFunc) Option {
	return func(s *Saver) { s.onSave = fn }
}

// New returns a saver for one session. A delay of zero or less saves on
// every change.
func New(src Source, st storage.Storage, session uuid.UUID, delay time.Duration, opts ...Option) *Saver {
	s := &Saver{
		src:       src,
		storage:   st,
		session:   session,
		delay:     delay,
		logger:    slog.Default(),
		lastSaved: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the session id snapshots are saved under.
func (s *Saver) Session() uuid.UUID { return s.session }

// Notify schedules a save. It matches store.ChangeFunc.
func (s *Saver) Notify(version int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.delay <= 0 {
		s.mu.Unlock()
		s.saveInBackground()
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.saveInBackground)
	} else {
		s.timer.Reset(s.delay)
	}
	s.mu.Unlock()
}

func (s *Saver) saveInBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.save(ctx); err != nil {
		s.logger.Error("Failed to save snapshot", "session", s.session, "error", err)
	}
}

// Flush cancels any pending timer and saves now if the store moved past the
// last saved version.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.save(ctx)
}

// Close flushes and stops accepting notifications.
func (s *Saver) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

func (s *Saver) save(ctx context.Context) error {
	snap := s.src.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Version == s.lastSaved {
		return nil
	}
	err := s.storage.SaveSnapshot(ctx, s.session, snap)
	if s.onSave != nil {
		s.onSave(snap.Version, err)
	}
	if err != nil {
		return fmt.Errorf("save snapshot v%d: %w", snap.Version, err)
	}
	s.lastSaved = snap.Version
	s.logger.Debug("Snapshot saved", "session", s.session, "version", snap.Version, "entities", len(snap.Entities))
	return nil
}

// Load merges the session's saved snapshot into the source, keeping entities
// the source already holds that the snapshot lacks. It reports false when
// nothing was saved yet.
func (s *Saver) Load(ctx context.Context) (bool, error) {
	snap, err := s.storage.LoadSnapshot(ctx, s.session)
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return false, nil
	}
	if err := s.src.Merge(snap); err != nil {
		// Partial restores still leave usable entities behind.
		s.logger.Warn("Snapshot restored with errors", "session", s.session, "error", err)
	}
	s.mu.Lock()
	s.lastSaved = s.src.Snapshot().Version
	s.mu.Unlock()
	s.logger.Info("Snapshot restored", "session", s.session, "version", snap.Version, "entities", len(snap.Entities))
	return true, nil
}

// SessionID parses raw as a session uuid. An empty raw derives a stable id
// from the scenario id so restarts resume the same session.
func SessionID(raw, scenarioID string) (uuid.UUID, error) {
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid session id %q: %w", raw, err)
		}
		return id, nil
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("encounter-engine/"+scenarioID)), nil
}
