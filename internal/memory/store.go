// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/luna/internal/logging"
	"github.com/jeranaias/luna/internal/util"
)

// DefaultMaxHistory is the capacity used when callers have no preference.
const DefaultMaxHistory = 10

// ErrInvalidMaxHistory is returned by New when the capacity is below 1.
var ErrInvalidMaxHistory = errors.New("max history must be at least 1")

// =============================================================================
// STORE
// =============================================================================

// Store is an ordered, size-bounded, write-through sequence of turns.
//
// The mutex makes append+evict+persist one unit; the chat loop itself is
// single-threaded.
type Store struct {
	mu sync.Mutex

	turns      []Turn
	maxHistory int
	path       string

	logger      zerolog.Logger
	now         func() time.Time
	lastSaveErr error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger that receives load and save diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the wall clock used to stamp new turns.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Store bounded to maxHistory turns and loads any existing
// conversation from path. Storage problems never fail construction.
func New(maxHistory int, path string, opts ...Option) (*Store, error) {
	if maxHistory < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxHistory, maxHistory)
	}

	s := &Store{
		turns:      make([]Turn, 0, min(maxHistory, 64)),
		maxHistory: maxHistory,
		path:       path,
		logger:     logging.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.load()
	return s, nil
}

// =============================================================================
// LOAD
// =============================================================================

// load replaces the in-memory sequence with the document at s.path.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().
				Str("event", logging.EventMemoryLoadError).
				Str("path", s.path).
				Err(err).
				Msg("Error loading memory from file; starting with empty memory")
		}
		return
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn().
			Str("event", logging.EventMemoryLoadError).
			Str("path", s.path).
			Err(err).
			Msg("Memory file is malformed; starting with empty memory")
		return
	}

	turns := make([]Turn, 0, len(records))
	for i, r := range records {
		turn, ok := r.turn()
		if !ok {
			role := "<missing>"
			if r.Role != nil {
				role = *r.Role
			}
			s.logger.Warn().
				Str("event", logging.EventMemoryRecord).
				Str("path", s.path).
				Int("index", i).
				Str("role", role).
				Msg("Dropping memory record without a user or assistant role")
			continue
		}
		turns = append(turns, turn)
	}

	// A file written with a larger capacity keeps only its most recent turns
	if len(turns) > s.maxHistory {
		turns = turns[len(turns)-s.maxHistory:]
	}
	s.turns = append(s.turns[:0], turns...)
}

// turn converts a decoded record. Records without a storable role are
// rejected; an absent content becomes empty and an absent timestamp becomes
// UnknownTimestamp.
func (r record) turn() (Turn, bool) {
	if r.Role == nil || !Role(*r.Role).Storable() {
		return Turn{}, false
	}

	t := Turn{Role: Role(*r.Role), Timestamp: UnknownTimestamp}
	if r.Content != nil {
		t.Content = *r.Content
	}
	if r.Timestamp != nil && *r.Timestamp != "" {
		t.Timestamp = *r.Timestamp
	}
	return t, true
}

// =============================================================================
// MUTATION
// =============================================================================

// Append stamps a new turn with the current time, adds it to the tail, evicts
// the oldest turns until the capacity holds, and persists the whole sequence.
// It returns the stored turn; ok is false when the role is not storable, in
// which case the call is logged and ignored.
func (s *Store) Append(role Role, content string) (turn Turn, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !role.Storable() {
		s.logger.Warn().
			Str("role", string(role)).
			Msg("Ignoring turn with a role that is never stored")
		return Turn{}, false
	}

	turn = Turn{
		Role:      role,
		Content:   content,
		Timestamp: s.now().Format(TimestampLayout),
	}
	s.turns = append(s.turns, turn)
	for len(s.turns) > s.maxHistory {
		s.turns = slices.Delete(s.turns, 0, 1)
	}

	s.saveLocked()
	return turn, true
}

// Clear empties the conversation and persists the empty document.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = s.turns[:0]
	s.saveLocked()
}

// saveLocked overwrites the memory file with the current sequence.
// Caller must hold s.mu.
func (s *Store) saveLocked() {
	data, err := json.MarshalIndent(s.turns, "", "    ")
	if err == nil {
		err = util.AtomicWriteFile(s.path, data, 0644)
	}

	s.lastSaveErr = err
	if err != nil {
		s.logger.Error().
			Str("event", logging.EventMemorySaveError).
			Str("path", s.path).
			Err(err).
			Msg("Error writing memory to file")
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Snapshot returns a copy of the retained turns, oldest first.
func (s *Store) Snapshot() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.turns)
}

// Len returns the number of retained turns.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// MaxHistory returns the capacity.
func (s *Store) MaxHistory() int {
	return s.maxHistory
}

// Path returns the persistence location.
func (s *Store) Path() string {
	return s.path
}

// LastSaveError returns the error from the most recent persist, or nil if it succeeded.
func (s *Store) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaveErr
}
