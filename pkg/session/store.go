// Package session owns the server-side state of a chat session: the
// selected symbol, the fetched quote window, and the append-only message
// history. Sessions live in memory only; nothing survives a restart.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"stockchat/pkg/metrics"
	"stockchat/pkg/models"
)

var ErrNotFound = errors.New("session not found")

// Session is one chat session. A new session starts whenever the user
// picks a symbol, so the history always belongs to the current symbol.
type Session struct {
	ID        string
	Symbol    string
	Window    models.QuoteWindow
	CreatedAt time.Time

	mu       sync.Mutex
	history  []models.Message
	lastUsed time.Time
}

// History returns a copy of the message history, oldest first.
func (s *Session) History() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.history))
	copy(out, s.history)
	return out
}

// CommitTurn appends one full user/assistant exchange. The user turn is
// only ever committed together with the assistant turn, so a failed
// completion leaves the history untouched.
func (s *Session) CommitTurn(question, answer models.Message) error {
	if question.Role != models.RoleUser || answer.Role != models.RoleAssistant {
		return errors.New("turn must be a user/assistant pair")
	}
	if err := question.Validate(); err != nil {
		return err
	}
	if err := answer.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, question, answer)
	s.lastUsed = time.Now()
	return nil
}

// Turns reports the number of completed exchanges.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history) / 2
}

// Store holds live sessions keyed by ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxIdle  time.Duration
}

// NewStore creates a session store. Sessions idle longer than maxIdle are
// swept by Sweep.
func NewStore(maxIdle time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		maxIdle:  maxIdle,
	}
}

// Create opens a session for a symbol with its fetched quote window.
func (st *Store) Create(symbol string, window models.QuoteWindow) (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s := &Session{
		ID:        id,
		Symbol:    symbol,
		Window:    window,
		CreatedAt: now,
		lastUsed:  now,
	}
	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
	metrics.ActiveSessions.Inc()
	return s, nil
}

// Get returns the session for id or ErrNotFound.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
	return s, nil
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops sessions idle longer than maxIdle and returns how many were
// removed. Run it periodically from main.
func (st *Store) Sweep() int {
	cutoff := time.Now().Add(-st.maxIdle)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		idle := s.lastUsed.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.ActiveSessions.Sub(float64(removed))
	}
	return removed
}

// newID returns a 128-bit random hex session ID.
func newID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
