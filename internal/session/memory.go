// Package session provides scan session stores.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = scanner.ErrSessionNotFound

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]scanner.Session
	clock    scanner.Clock
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore(clock scanner.Clock) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]scanner.Session),
		clock:    clock,
	}
}

// CreateSession stores a new session.
func (s *MemoryStore) CreateSession(_ context.Context, session scanner.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("create %s: %w", session.ID, scanner.ErrSessionExists)
	}
	if session.Status == "" {
		session.Status = scanner.SessionPending
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// UpdateProgress advances a running session.
func (s *MemoryStore) UpdateProgress(_ context.Context, id string, progress int, message string) error {
	return s.mutate(id, func(session *scanner.Session) error {
		return session.ApplyProgress(progress, message, s.clock.Now())
	})
}

// FinishSession moves a session to a terminal status.
func (s *MemoryStore) FinishSession(
	_ context.Context,
	id string,
	status scanner.SessionStatus,
	message string,
	results []scanner.AnalyzedTarget,
) error {
	return s.mutate(id, func(session *scanner.Session) error {
		return session.Finish(status, message, results, s.clock.Now())
	})
}

// GetSession returns a copy of the session.
func (s *MemoryStore) GetSession(_ context.Context, id string) (scanner.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return scanner.Session{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return session.Clone(), nil
}

func (s *MemoryStore) mutate(id string, fn func(*scanner.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if err := fn(&session); err != nil {
		return err
	}
	s.sessions[id] = session
	return nil
}
