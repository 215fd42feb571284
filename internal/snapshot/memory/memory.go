// Package memory keeps the snapshot in process memory. Nothing survives a
// restart; it backs development runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/kinshukkush/smartsplit/internal/ledger"
	"github.com/kinshukkush/smartsplit/internal/snapshot"
)

// Store holds the encoded document, so callers never share memory with it.
type Store struct {
	mu    sync.RWMutex
	data  []byte
	saves int
}

func New() *Store {
	return &Store{}
}

func (s *Store) Load(_ context.Context) (ledger.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return ledger.Snapshot{}, ledger.NotFound("snapshot", "memory")
	}

	return snapshot.Decode(s.data)
}

func (s *Store) Save(_ context.Context, snap ledger.Snapshot) error {
	data, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = data
	s.saves++

	return nil
}

// Saves reports how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.saves
}
