package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/storage"
)

// TokenMetadataStore implements storage.TokenMetadataStore using PostgreSQL.
type TokenMetadataStore struct {
	pool *Pool
}

// NewTokenMetadataStore creates a new TokenMetadataStore.
func NewTokenMetadataStore(pool *Pool) *TokenMetadataStore {
	return &TokenMetadataStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenMetadataStore = (*TokenMetadataStore)(nil)

// Put stores metadata, replacing any previous value for the mint.
func (s *TokenMetadataStore) Put(ctx context.Context, m *domain.TokenMetadata) (err error) {
	if m == nil || m.Mint == "" {
		return storage.ErrInvalidInput
	}
	defer observe("token_metadata_put", time.Now(), &err)

	query := `
		INSERT INTO token_metadata (
			mint, name, symbol, uri, image, collection, source, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (mint) DO UPDATE SET
			name       = EXCLUDED.name,
			symbol     = EXCLUDED.symbol,
			uri        = EXCLUDED.uri,
			image      = EXCLUDED.image,
			collection = EXCLUDED.collection,
			source     = EXCLUDED.source,
			fetched_at = EXCLUDED.fetched_at
	`

	_, err = s.pool.Exec(ctx, query,
		m.Mint,
		m.Name,
		m.Symbol,
		m.URI,
		m.Image,
		m.Collection,
		m.Source,
		m.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("put token metadata: %w", err)
	}
	return nil
}

// GetByMint retrieves metadata by mint address. Returns ErrNotFound if not exists.
func (s *TokenMetadataStore) GetByMint(ctx context.Context, mint string) (m *domain.TokenMetadata, err error) {
	defer observe("token_metadata_get", time.Now(), &err)

	query := `
		SELECT mint, name, symbol, uri, image, collection, source, fetched_at
		FROM token_metadata
		WHERE mint = $1
	`

	m, err = scanTokenMetadata(s.pool.QueryRow(ctx, query, mint))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token metadata by mint: %w", err)
	}
	return m, nil
}

// scanTokenMetadata scans a single row into TokenMetadata.
func scanTokenMetadata(row pgx.Row) (*domain.TokenMetadata, error) {
	var m domain.TokenMetadata

	err := row.Scan(
		&m.Mint,
		&m.Name,
		&m.Symbol,
		&m.URI,
		&m.Image,
		&m.Collection,
		&m.Source,
		&m.FetchedAt,
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}
