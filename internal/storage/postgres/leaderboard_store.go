package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/storage"
)

// LeaderboardStore implements storage.LeaderboardStore using PostgreSQL.
type LeaderboardStore struct {
	pool *Pool
}

// NewLeaderboardStore creates a new LeaderboardStore.
func NewLeaderboardStore(pool *Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LeaderboardStore = (*LeaderboardStore)(nil)

const entryColumns = `
	id, wallet, points, absorbs, token_burns, nft_burns, total_fees_paid,
	username, profile_picture, referral_code, referred_by,
	referrals_count, referral_rewards, last_activity, created_at, updated_at
`

// Upsert atomically adds delta to the wallet's entry, creating it when absent.
// (xmax = 0) is true only for rows inserted by this statement.
func (s *LeaderboardStore) Upsert(ctx context.Context, wallet string, d domain.EntryDelta) (entry *domain.LeaderboardEntry, created bool, err error) {
	if wallet == "" {
		return nil, false, storage.ErrInvalidInput
	}
	if d.At.IsZero() {
		d.At = time.Now()
	}
	defer observe("leaderboard_upsert", time.Now(), &err)

	query := `
		INSERT INTO leaderboard_entries (
			id, wallet, points, absorbs, token_burns, nft_burns, total_fees_paid,
			referrals_count, referral_rewards, last_activity, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $10)
		ON CONFLICT (wallet) DO UPDATE SET
			points           = leaderboard_entries.points + EXCLUDED.points,
			absorbs          = leaderboard_entries.absorbs + EXCLUDED.absorbs,
			token_burns      = leaderboard_entries.token_burns + EXCLUDED.token_burns,
			nft_burns        = leaderboard_entries.nft_burns + EXCLUDED.nft_burns,
			total_fees_paid  = leaderboard_entries.total_fees_paid + EXCLUDED.total_fees_paid,
			referrals_count  = leaderboard_entries.referrals_count + EXCLUDED.referrals_count,
			referral_rewards = leaderboard_entries.referral_rewards + EXCLUDED.referral_rewards,
			last_activity    = EXCLUDED.last_activity,
			updated_at       = EXCLUDED.updated_at
		RETURNING ` + entryColumns + `, (xmax = 0) AS inserted
	`

	row := s.pool.QueryRow(ctx, query,
		uuid.New(),
		wallet,
		d.Points,
		d.Absorbs,
		d.TokenBurns,
		d.NFTBurns,
		int64(d.FeesPaid),
		d.ReferralsCount,
		int64(d.ReferralRewards),
		d.At,
	)

	entry, created, err = scanEntryInserted(row)
	if err != nil {
		return nil, false, fmt.Errorf("upsert leaderboard entry: %w", err)
	}
	return entry, created, nil
}

// Get retrieves an entry by wallet. Returns ErrNotFound if not exists.
func (s *LeaderboardStore) Get(ctx context.Context, wallet string) (*domain.LeaderboardEntry, error) {
	return s.getBy(ctx, "wallet", wallet)
}

// GetByUsername retrieves an entry by username. Returns ErrNotFound if not exists.
func (s *LeaderboardStore) GetByUsername(ctx context.Context, username string) (*domain.LeaderboardEntry, error) {
	return s.getBy(ctx, "username", username)
}

// GetByReferralCode retrieves an entry by referral code. Returns ErrNotFound if not exists.
func (s *LeaderboardStore) GetByReferralCode(ctx context.Context, code string) (*domain.LeaderboardEntry, error) {
	return s.getBy(ctx, "referral_code", code)
}

// getBy looks up a single entry by a unique column. column is never user input.
func (s *LeaderboardStore) getBy(ctx context.Context, column, value string) (entry *domain.LeaderboardEntry, err error) {
	defer observe("leaderboard_get_by_"+column, time.Now(), &err)

	query := `SELECT ` + entryColumns + ` FROM leaderboard_entries WHERE ` + column + ` = $1`

	entry, err = scanEntry(s.pool.QueryRow(ctx, query, value))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get leaderboard entry by %s: %w", column, err)
	}
	return entry, nil
}

// Top returns up to limit entries ordered by points DESC, then created_at ASC.
func (s *LeaderboardStore) Top(ctx context.Context, limit int) (entries []*domain.LeaderboardEntry, err error) {
	defer observe("leaderboard_top", time.Now(), &err)

	query := `
		SELECT ` + entryColumns + `
		FROM leaderboard_entries
		ORDER BY points DESC, created_at ASC, wallet ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard top: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}
	return entries, nil
}

// Rank returns the 1-based position of wallet by points.
func (s *LeaderboardStore) Rank(ctx context.Context, wallet string) (rank int, err error) {
	defer observe("leaderboard_rank", time.Now(), &err)

	query := `
		WITH me AS (SELECT points FROM leaderboard_entries WHERE wallet = $1)
		SELECT (SELECT COUNT(*) FROM leaderboard_entries e WHERE e.points > me.points) + 1
		FROM me
	`

	var r int64
	if err = s.pool.QueryRow(ctx, query, wallet).Scan(&r); err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("rank leaderboard entry: %w", err)
	}
	return int(r), nil
}

// SetReferredBy records the referrer of wallet if none is recorded yet.
func (s *LeaderboardStore) SetReferredBy(ctx context.Context, wallet, referrer string) (set bool, err error) {
	defer observe("leaderboard_set_referred_by", time.Now(), &err)

	tag, err := s.pool.Exec(ctx, `
		UPDATE leaderboard_entries
		SET referred_by = $2, updated_at = now()
		WHERE wallet = $1 AND referred_by IS NULL
	`, wallet, referrer)
	if err != nil {
		return false, fmt.Errorf("set referred_by: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err = s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM leaderboard_entries WHERE wallet = $1)`, wallet,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check leaderboard entry: %w", err)
	}
	if !exists {
		return false, storage.ErrNotFound
	}
	return false, nil
}

// UpdateProfile sets username and picture, creating the entry when absent.
func (s *LeaderboardStore) UpdateProfile(ctx context.Context, wallet string, username, picture *string) (entry *domain.LeaderboardEntry, err error) {
	if wallet == "" {
		return nil, storage.ErrInvalidInput
	}
	defer observe("leaderboard_update_profile", time.Now(), &err)

	query := `
		INSERT INTO leaderboard_entries (id, wallet, username, profile_picture)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (wallet) DO UPDATE SET
			username        = COALESCE(EXCLUDED.username, leaderboard_entries.username),
			profile_picture = COALESCE(EXCLUDED.profile_picture, leaderboard_entries.profile_picture),
			updated_at      = now()
		RETURNING ` + entryColumns

	entry, err = scanEntry(s.pool.QueryRow(ctx, query, uuid.New(), wallet, username, picture))
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return entry, nil
}

// SetReferralCode sets the wallet's referral code, creating the entry when absent.
func (s *LeaderboardStore) SetReferralCode(ctx context.Context, wallet, code string) (entry *domain.LeaderboardEntry, err error) {
	if wallet == "" || code == "" {
		return nil, storage.ErrInvalidInput
	}
	defer observe("leaderboard_set_referral_code", time.Now(), &err)

	query := `
		INSERT INTO leaderboard_entries (id, wallet, referral_code)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet) DO UPDATE SET
			referral_code = EXCLUDED.referral_code,
			updated_at    = now()
		RETURNING ` + entryColumns

	entry, err = scanEntry(s.pool.QueryRow(ctx, query, uuid.New(), wallet, code))
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, fmt.Errorf("set referral code: %w", err)
	}
	return entry, nil
}

// entryDest returns scan destinations in entryColumns order.
func entryDest(e *domain.LeaderboardEntry, fees, rewards *int64) []any {
	return []any{
		&e.ID,
		&e.Wallet,
		&e.Points,
		&e.Absorbs,
		&e.TokenBurns,
		&e.NFTBurns,
		fees,
		&e.Username,
		&e.ProfilePicture,
		&e.ReferralCode,
		&e.ReferredBy,
		&e.ReferralsCount,
		rewards,
		&e.LastActivity,
		&e.CreatedAt,
		&e.UpdatedAt,
	}
}

// scanEntry scans a single row into LeaderboardEntry.
func scanEntry(row pgx.Row) (*domain.LeaderboardEntry, error) {
	var e domain.LeaderboardEntry
	var fees, rewards int64

	if err := row.Scan(entryDest(&e, &fees, &rewards)...); err != nil {
		return nil, err
	}
	e.TotalFeesPaid = uint64(fees)
	e.ReferralRewards = uint64(rewards)
	return &e, nil
}

// scanEntryInserted scans an upsert row followed by its inserted flag.
func scanEntryInserted(row pgx.Row) (*domain.LeaderboardEntry, bool, error) {
	var e domain.LeaderboardEntry
	var fees, rewards int64
	var inserted bool

	dest := append(entryDest(&e, &fees, &rewards), &inserted)
	if err := row.Scan(dest...); err != nil {
		return nil, false, err
	}
	e.TotalFeesPaid = uint64(fees)
	e.ReferralRewards = uint64(rewards)
	return &e, inserted, nil
}
