package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/storage"
)

// ActionEventStore implements storage.ActionEventStore using PostgreSQL.
type ActionEventStore struct {
	pool *Pool
}

// NewActionEventStore creates a new ActionEventStore.
func NewActionEventStore(pool *Pool) *ActionEventStore {
	return &ActionEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ActionEventStore = (*ActionEventStore)(nil)

// Insert appends an event. Returns ErrDuplicateKey if event_id exists.
func (s *ActionEventStore) Insert(ctx context.Context, e *domain.ActionEvent) (err error) {
	if e == nil || e.EventID == "" || e.Wallet == "" {
		return storage.ErrInvalidInput
	}
	defer observe("action_event_insert", time.Now(), &err)

	query := `
		INSERT INTO action_events (
			event_id, wallet, action, points, fees_paid, signature, referrer, bonus_points, timestamp_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		e.EventID,
		e.Wallet,
		string(e.Action),
		e.Points,
		int64(e.FeesPaid),
		e.Signature,
		e.Referrer,
		e.BonusPoints,
		e.TimestampMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert action event: %w", err)
	}
	return nil
}

// GetByWallet returns up to limit events for wallet, newest first.
// Events where wallet is the credited referrer are included.
func (s *ActionEventStore) GetByWallet(ctx context.Context, wallet string, limit int) (events []*domain.ActionEvent, err error) {
	defer observe("action_event_get_by_wallet", time.Now(), &err)

	query := `
		SELECT event_id, wallet, action, points, fees_paid, signature, referrer, bonus_points, timestamp_ms
		FROM action_events
		WHERE wallet = $1 OR referrer = $1
		ORDER BY timestamp_ms DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("query action events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanActionEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action events: %w", err)
	}
	return events, nil
}

func scanActionEvent(row pgx.Row) (*domain.ActionEvent, error) {
	var e domain.ActionEvent
	var action string
	var fees int64

	err := row.Scan(
		&e.EventID,
		&e.Wallet,
		&action,
		&e.Points,
		&fees,
		&e.Signature,
		&e.Referrer,
		&e.BonusPoints,
		&e.TimestampMs,
	)
	if err != nil {
		return nil, err
	}
	e.Action = domain.Action(action)
	e.FeesPaid = uint64(fees)
	return &e, nil
}
