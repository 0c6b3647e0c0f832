package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/storage"
)

// LeaderboardStore is an in-memory implementation of storage.LeaderboardStore.
type LeaderboardStore struct {
	mu       sync.RWMutex
	byWallet map[string]*domain.LeaderboardEntry
	now      func() time.Time
}

// NewLeaderboardStore creates a new in-memory leaderboard store.
func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{
		byWallet: make(map[string]*domain.LeaderboardEntry),
		now:      time.Now,
	}
}

var _ storage.LeaderboardStore = (*LeaderboardStore)(nil)

// getOrCreate returns the entry for wallet, creating it when absent. Caller holds mu.
func (s *LeaderboardStore) getOrCreate(wallet string, at time.Time) (*domain.LeaderboardEntry, bool) {
	if e, ok := s.byWallet[wallet]; ok {
		return e, false
	}
	e := &domain.LeaderboardEntry{
		ID:           uuid.NewString(),
		Wallet:       wallet,
		LastActivity: at,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	s.byWallet[wallet] = e
	return e, true
}

// Upsert atomically adds delta to the wallet's entry, creating it when absent.
func (s *LeaderboardStore) Upsert(_ context.Context, wallet string, delta domain.EntryDelta) (*domain.LeaderboardEntry, bool, error) {
	if wallet == "" {
		return nil, false, storage.ErrInvalidInput
	}
	if delta.At.IsZero() {
		delta.At = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, created := s.getOrCreate(wallet, delta.At)
	e.Apply(delta)
	return copyEntry(e), created, nil
}

// Get retrieves an entry by wallet. Returns ErrNotFound if not exists.
func (s *LeaderboardStore) Get(_ context.Context, wallet string) (*domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byWallet[wallet]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyEntry(e), nil
}

// GetByUsername retrieves an entry by username. Returns ErrNotFound if not exists.
func (s *LeaderboardStore) GetByUsername(_ context.Context, username string) (*domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.byWallet {
		if e.Username != nil && *e.Username == username {
			return copyEntry(e), nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetByReferralCode retrieves an entry by referral code. Returns ErrNotFound if not exists.
func (s *LeaderboardStore) GetByReferralCode(_ context.Context, code string) (*domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.byWallet {
		if e.ReferralCode != nil && *e.ReferralCode == code {
			return copyEntry(e), nil
		}
	}
	return nil, storage.ErrNotFound
}

// Top returns up to limit entries ordered by points DESC, then created_at ASC.
func (s *LeaderboardStore) Top(_ context.Context, limit int) ([]*domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := s.sorted()
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Rank returns the 1-based position of wallet by points.
func (s *LeaderboardStore) Rank(_ context.Context, wallet string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byWallet[wallet]
	if !ok {
		return 0, storage.ErrNotFound
	}
	rank := 1
	for _, other := range s.byWallet {
		if other.Points > e.Points {
			rank++
		}
	}
	return rank, nil
}

// SetReferredBy records the referrer of wallet if none is recorded yet.
func (s *LeaderboardStore) SetReferredBy(_ context.Context, wallet, referrer string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byWallet[wallet]
	if !ok {
		return false, storage.ErrNotFound
	}
	if e.ReferredBy != nil {
		return false, nil
	}
	e.ReferredBy = &referrer
	e.UpdatedAt = s.now()
	return true, nil
}

// UpdateProfile sets username and picture, creating the entry when absent.
func (s *LeaderboardStore) UpdateProfile(_ context.Context, wallet string, username, picture *string) (*domain.LeaderboardEntry, error) {
	if wallet == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if username != nil {
		for w, other := range s.byWallet {
			if w != wallet && other.Username != nil && *other.Username == *username {
				return nil, storage.ErrDuplicateKey
			}
		}
	}

	now := s.now()
	e, _ := s.getOrCreate(wallet, now)
	if username != nil {
		u := *username
		e.Username = &u
	}
	if picture != nil {
		p := *picture
		e.ProfilePicture = &p
	}
	e.UpdatedAt = now
	return copyEntry(e), nil
}

// SetReferralCode sets the wallet's referral code, creating the entry when absent.
func (s *LeaderboardStore) SetReferralCode(_ context.Context, wallet, code string) (*domain.LeaderboardEntry, error) {
	if wallet == "" || code == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for w, other := range s.byWallet {
		if w != wallet && other.ReferralCode != nil && *other.ReferralCode == code {
			return nil, storage.ErrDuplicateKey
		}
	}

	now := s.now()
	e, _ := s.getOrCreate(wallet, now)
	e.ReferralCode = &code
	e.UpdatedAt = now
	return copyEntry(e), nil
}

// sorted returns copies of all entries in leaderboard order. Caller holds mu.
func (s *LeaderboardStore) sorted() []*domain.LeaderboardEntry {
	result := make([]*domain.LeaderboardEntry, 0, len(s.byWallet))
	for _, e := range s.byWallet {
		result = append(result, copyEntry(e))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Points != result[j].Points {
			return result[i].Points > result[j].Points
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Wallet < result[j].Wallet
	})
	return result
}

func copyEntry(e *domain.LeaderboardEntry) *domain.LeaderboardEntry {
	c := *e
	c.Username = copyString(e.Username)
	c.ProfilePicture = copyString(e.ProfilePicture)
	c.ReferralCode = copyString(e.ReferralCode)
	c.ReferredBy = copyString(e.ReferredBy)
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
