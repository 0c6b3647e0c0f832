package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/storage"
)

// ActionEventStore implements storage.ActionEventStore using ClickHouse.
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
type ActionEventStore struct {
	conn *Conn
}

// NewActionEventStore creates a new ActionEventStore.
func NewActionEventStore(conn *Conn) *ActionEventStore {
	return &ActionEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ActionEventStore = (*ActionEventStore)(nil)

// Insert appends an event. Returns ErrDuplicateKey if event_id exists.
func (s *ActionEventStore) Insert(ctx context.Context, e *domain.ActionEvent) (err error) {
	if e == nil || e.Wallet == "" {
		return storage.ErrInvalidInput
	}
	id, err := uuid.Parse(e.EventID)
	if err != nil {
		return storage.ErrInvalidInput
	}
	defer observe("action_event_insert", time.Now(), &err)

	exists, err := s.exists(ctx, id)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO action_events (
			event_id, wallet, action, points, fees_paid, signature, referrer, bonus_points, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		id, e.Wallet, string(e.Action), e.Points, e.FeesPaid,
		e.Signature, e.Referrer, e.BonusPoints, e.TimestampMs,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByWallet returns up to limit events for wallet, newest first.
// Events where wallet is the credited referrer are included.
func (s *ActionEventStore) GetByWallet(ctx context.Context, wallet string, limit int) (events []*domain.ActionEvent, err error) {
	defer observe("action_event_get_by_wallet", time.Now(), &err)

	rows, err := s.conn.Query(ctx, `
		SELECT event_id, wallet, action, points, fees_paid, signature, referrer, bonus_points, timestamp_ms
		FROM action_events FINAL
		WHERE wallet = ? OR referrer = ?
		ORDER BY timestamp_ms DESC
		LIMIT ?
	`, wallet, wallet, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query action events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e      domain.ActionEvent
			id     uuid.UUID
			action string
		)
		if err := rows.Scan(
			&id, &e.Wallet, &action, &e.Points, &e.FeesPaid,
			&e.Signature, &e.Referrer, &e.BonusPoints, &e.TimestampMs,
		); err != nil {
			return nil, fmt.Errorf("scan action event: %w", err)
		}
		e.EventID = id.String()
		e.Action = domain.Action(action)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action events: %w", err)
	}
	return events, nil
}

func (s *ActionEventStore) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM action_events WHERE event_id = ?`, id)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
