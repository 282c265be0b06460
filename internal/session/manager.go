// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Manager keeps one open session per user.
type Manager struct {
	deps  Deps
	group singleflight.Group

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a manager opening sessions with deps.
func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps, sessions: make(map[string]*Session)}
}

// Get returns the user's open session, opening it on first use. Concurrent
// first calls for one user share a single open.
func (m *Manager) Get(ctx context.Context, userID string) (*Session, error) {
	if s := m.lookup(userID); s != nil {
		return s, nil
	}
	v, err, _ := m.group.Do(userID, func() (any, error) {
		if s := m.lookup(userID); s != nil {
			return s, nil
		}
		s, err := Open(ctx, userID, m.deps)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.sessions[userID] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) lookup(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close closes and forgets the user's session, if one is open.
func (m *Manager) Close(userID string) error {
	m.mu.Lock()
	s := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}

// CloseAll closes every open session.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range all {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
