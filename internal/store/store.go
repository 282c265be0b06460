// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists one document per user. SQLite is the default
// backend and also holds the event log; Redis is the alternative for
// documents.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pdiddy/goalwriter/pkg/types"
)

// ErrNoUser is returned when a load or save names no user.
var ErrNoUser = errors.New("user id is required")

// DocumentStore loads and merges per-user documents.
type DocumentStore interface {
	// Load returns the user's document, or nil and no error when none exists.
	Load(ctx context.Context, userID string) (*types.Document, error)

	// Save merges patch into the stored document. Nil patch fields keep
	// their stored values.
	Save(ctx context.Context, userID string, patch types.DocumentPatch) error

	Close() error
}

// Open returns the document store selected by cfg.Driver.
func Open(cfg types.PersistenceConfig) (DocumentStore, error) {
	switch cfg.Driver {
	case types.DriverSQLite, "":
		return OpenSQLite(cfg.SQLitePath)
	case types.DriverRedis:
		return NewRedisStore(cfg), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// decodeGoalStructure fills defaults for empty lists so a stored document
// always re-encodes with arrays rather than nulls.
func decodeGoalStructure(data []byte) (*types.GoalStructure, error) {
	g := types.NewGoalStructure()
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("decoding goal structure: %w", err)
	}
	if g.Metadata.Keywords == nil {
		g.Metadata.Keywords = []string{}
	}
	if g.PaperOutline == nil {
		g.PaperOutline = []types.Section{}
	}
	return g, nil
}

// Memory is an in-process DocumentStore.
type Memory struct {
	mu    sync.Mutex
	docs  map[string]*types.Document
	saves int
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]*types.Document)}
}

// Load returns a copy of the user's document.
func (m *Memory) Load(_ context.Context, userID string) (*types.Document, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[userID]
	if !ok {
		return nil, nil
	}
	return &types.Document{GoalStructure: d.GoalStructure.Clone(), EditorText: d.EditorText}, nil
}

// Save merges patch into the user's document.
func (m *Memory) Save(_ context.Context, userID string, patch types.DocumentPatch) error {
	if userID == "" {
		return ErrNoUser
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if patch.GoalStructure != nil {
		patch.GoalStructure = patch.GoalStructure.Clone()
	}
	m.docs[userID] = patch.Apply(m.docs[userID])
	m.saves++
	return nil
}

// Saves returns the number of successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
