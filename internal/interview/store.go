package interview

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Store owns one session's configuration, conversation and clock.
type Store struct {
	log *logrus.Entry

	mu     sync.RWMutex
	cfg    SessionConfig
	turns  []Turn
	frozen bool
	clock  *Clock
}

func NewStore(cfg SessionConfig, clock *Clock, log *logrus.Entry) *Store {
	if clock == nil {
		clock = NewClock(nil)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Store{cfg: cfg, clock: clock, log: log.WithField("component", "session_store")}
}

// Configure replaces the session config. Rejected once the conversation
// has turns.
func (s *Store) Configure(cfg SessionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.turns) > 0 || s.frozen {
		return ErrConfigLocked
	}
	s.cfg = cfg
	return nil
}

// AppendTurn adds t to the conversation. Empty text and appends after
// Freeze are rejected and logged.
func (s *Store) AppendTurn(t Turn) error {
	t.Text = strings.TrimSpace(t.Text)
	if t.Text == "" {
		s.log.WithField("role", t.Role).Warn("dropping empty turn")
		return ErrEmptyTurn
	}
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}
	if t.Note != nil {
		n := t.Note.Normalize()
		t.Note = &n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		s.log.WithField("role", t.Role).Warn("append after freeze")
		return ErrFrozen
	}
	s.turns = append(s.turns, t)
	return nil
}

// Reset clears the conversation and the clock together and unfreezes.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.frozen = false
	s.clock.Reset()
}

func (s *Store) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
}

func (s *Store) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

func (s *Store) Config() SessionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Store) Clock() *Clock { return s.clock }

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

func (s *Store) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTurns(s.turns)
}

// Recent returns the last n turns, oldest first.
func (s *Store) Recent(n int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n >= len(s.turns) {
		return cloneTurns(s.turns)
	}
	return cloneTurns(s.turns[len(s.turns)-n:])
}

// Notes returns interviewer notes in conversation order.
func (s *Store) Notes() []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Note
	for _, t := range s.turns {
		if t.Role == RoleInterviewer && t.Note != nil {
			out = append(out, *t.Note)
		}
	}
	return out
}

func cloneTurns(in []Turn) []Turn {
	out := make([]Turn, len(in))
	for i, t := range in {
		if t.Note != nil {
			n := *t.Note
			t.Note = &n
		}
		out[i] = t
	}
	return out
}
