// Package statestore keeps the host's entity state table and hands every
// change to the components that render from it.
package statestore

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/couchcryptid/anm-alert-map/internal/domain"
)

// Updater receives the state table after each change.
type Updater interface {
	Update(table domain.StateTable)
}

// Store is the host state table. Changes are applied and delivered to the
// updaters in order, one at a time. It implements pipeline.BatchLoader.
type Store struct {
	logger   *slog.Logger
	updaters []Updater

	mu    sync.Mutex
	table domain.StateTable
}

// New creates an empty store that notifies updaters on change.
func New(logger *slog.Logger, updaters ...Updater) *Store {
	return &Store{
		logger:   logger,
		updaters: updaters,
		table:    make(domain.StateTable),
	}
}

// Apply merges states into the table and notifies the updaters once. A
// state older than the one already held for the same entity is dropped.
// It returns the number of states applied.
func (s *Store) Apply(states ...domain.EntityState) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, st := range states {
		if cur, ok := s.table[st.EntityID]; ok && cur.LastUpdated.After(st.LastUpdated) {
			s.logger.Debug("stale state dropped",
				"entity", st.EntityID,
				"last_updated", st.LastUpdated,
				"current", cur.LastUpdated,
			)
			continue
		}
		s.table[st.EntityID] = st
		applied++
	}
	if applied == 0 {
		return 0
	}

	view := maps.Clone(s.table)
	for _, u := range s.updaters {
		u.Update(view)
	}
	return applied
}

// LoadBatch applies a batch of decoded states.
func (s *Store) LoadBatch(_ context.Context, states []domain.EntityState) error {
	s.Apply(states...)
	return nil
}

// Get returns the state held for an entity.
func (s *Store) Get(entityID string) (domain.EntityState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Lookup(entityID)
}

// Len returns the number of entities held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.table)
}
