// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package goalstore

import (
	"sync"

	"github.com/pdiddy/goalwriter/pkg/types"
)

// Store holds the current goal structure snapshot. Each successful mutation
// replaces the snapshot and bumps the version. Paths are resolved against the
// snapshot current at the time the mutation is applied, not when the caller
// computed them.
type Store struct {
	mu      sync.RWMutex
	current *types.GoalStructure
	version uint64
}

// NewStore returns a store holding g, or an empty structure when g is nil.
func NewStore(g *types.GoalStructure) *Store {
	if g == nil {
		g = types.NewGoalStructure()
	}
	return &Store{current: g}
}

// Snapshot returns the current structure and its version.
func (s *Store) Snapshot() (*types.GoalStructure, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.version
}

// Current returns the current structure.
func (s *Store) Current() *types.GoalStructure {
	g, _ := s.Snapshot()
	return g
}

// Version returns the number of mutations applied so far.
func (s *Store) Version() uint64 {
	_, v := s.Snapshot()
	return v
}

// Flatten flattens the current structure.
func (s *Store) Flatten() []types.FlatGoal {
	return Flatten(s.Current())
}

// Get reads the value at path from the current structure.
func (s *Store) Get(path string) (any, error) {
	return Get(s.Current(), path)
}

// Replace swaps in a whole new structure.
func (s *Store) Replace(g *types.GoalStructure) uint64 {
	if g == nil {
		g = types.NewGoalStructure()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = g
	s.version++
	return s.version
}

// Set replaces the value at path.
func (s *Store) Set(path string, value any) (uint64, error) {
	return s.apply(func(g *types.GoalStructure) (*types.GoalStructure, error) {
		return Set(g, path, value)
	})
}

// SetText writes text at path, keeping an object key point's kind.
func (s *Store) SetText(path, text string) (uint64, error) {
	return s.apply(func(g *types.GoalStructure) (*types.GoalStructure, error) {
		return SetText(g, path, text)
	})
}

// Update replaces the value at path with fn's result. fn runs under the
// store lock and must not block.
func (s *Store) Update(path string, fn UpdateFunc) (uint64, error) {
	return s.apply(func(g *types.GoalStructure) (*types.GoalStructure, error) {
		return Update(g, path, fn)
	})
}

// InsertSibling inserts a default item after the element at path.
func (s *Store) InsertSibling(path string) (uint64, error) {
	return s.apply(func(g *types.GoalStructure) (*types.GoalStructure, error) {
		return InsertSibling(g, path)
	})
}

// RemoveAt deletes the element at path.
func (s *Store) RemoveAt(path string) (uint64, error) {
	return s.apply(func(g *types.GoalStructure) (*types.GoalStructure, error) {
		return RemoveAt(g, path)
	})
}

func (s *Store) apply(op func(*types.GoalStructure) (*types.GoalStructure, error)) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := op(s.current)
	if err != nil {
		return s.version, err
	}
	s.current = next
	s.version++
	return s.version, nil
}
