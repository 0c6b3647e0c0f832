package storage

import (
	"context"

	"rugal-dominion/internal/domain"
)

// LeaderboardStore provides access to leaderboard_entries storage.
// Entries are keyed by wallet; counters only ever grow.
type LeaderboardStore interface {
	// Upsert atomically adds delta to the wallet's entry, creating it when absent.
	// Returns the updated entry and whether this call created it.
	Upsert(ctx context.Context, wallet string, delta domain.EntryDelta) (*domain.LeaderboardEntry, bool, error)

	// Get retrieves an entry by wallet. Returns ErrNotFound if not exists.
	Get(ctx context.Context, wallet string) (*domain.LeaderboardEntry, error)

	// GetByUsername retrieves an entry by lowercase username. Returns ErrNotFound if not exists.
	GetByUsername(ctx context.Context, username string) (*domain.LeaderboardEntry, error)

	// GetByReferralCode retrieves an entry by referral code. Returns ErrNotFound if not exists.
	GetByReferralCode(ctx context.Context, code string) (*domain.LeaderboardEntry, error)

	// Top returns up to limit entries ordered by points DESC, then created_at ASC.
	Top(ctx context.Context, limit int) ([]*domain.LeaderboardEntry, error)

	// Rank returns the 1-based position of wallet by points. Returns ErrNotFound if not exists.
	Rank(ctx context.Context, wallet string) (int, error)

	// SetReferredBy records the referrer of wallet if none is recorded yet.
	// Returns false when a referrer was already set.
	SetReferredBy(ctx context.Context, wallet, referrer string) (bool, error)

	// UpdateProfile sets username and picture, creating the entry when absent.
	// Nil fields are left unchanged. Returns ErrDuplicateKey if username is taken.
	UpdateProfile(ctx context.Context, wallet string, username, picture *string) (*domain.LeaderboardEntry, error)

	// SetReferralCode sets the wallet's referral code, creating the entry when absent.
	// Returns ErrDuplicateKey if the code is taken.
	SetReferralCode(ctx context.Context, wallet, code string) (*domain.LeaderboardEntry, error)
}

// ActionEventStore provides access to the action_events audit log.
type ActionEventStore interface {
	// Insert appends an event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.ActionEvent) error

	// GetByWallet returns up to limit events for wallet, newest first.
	GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.ActionEvent, error)
}

// TokenMetadataStore caches resolved token metadata by mint.
type TokenMetadataStore interface {
	// Put stores metadata, replacing any previous value for the mint.
	Put(ctx context.Context, m *domain.TokenMetadata) error

	// GetByMint retrieves metadata by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error)
}
