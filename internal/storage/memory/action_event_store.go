package memory

import (
	"context"
	"sort"
	"sync"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/storage"
)

// ActionEventStore is an in-memory implementation of storage.ActionEventStore.
type ActionEventStore struct {
	mu       sync.RWMutex
	events   []*domain.ActionEvent
	eventIDs map[string]struct{}
}

// NewActionEventStore creates a new in-memory action event store.
func NewActionEventStore() *ActionEventStore {
	return &ActionEventStore{
		eventIDs: make(map[string]struct{}),
	}
}

var _ storage.ActionEventStore = (*ActionEventStore)(nil)

// Insert appends an event. Returns ErrDuplicateKey if event_id exists.
func (s *ActionEventStore) Insert(_ context.Context, e *domain.ActionEvent) error {
	if e == nil || e.EventID == "" || e.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.eventIDs[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	s.events = append(s.events, &eventCopy)
	s.eventIDs[e.EventID] = struct{}{}
	return nil
}

// GetByWallet returns up to limit events for wallet, newest first.
// Events where wallet is the credited referrer are included.
func (s *ActionEventStore) GetByWallet(_ context.Context, wallet string, limit int) ([]*domain.ActionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ActionEvent
	for _, e := range s.events {
		if e.Wallet == wallet || e.Referrer == wallet {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs > result[j].TimestampMs
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
