package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/storage"
)

func TestActionEventStore_InsertAndGetByWallet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewActionEventStore(pool)

	first := &domain.ActionEvent{
		EventID: uuid.NewString(), Wallet: "wallet1", Action: domain.ActionAbsorb,
		Points: 10, FeesPaid: 40784, Signature: "sig1", TimestampMs: 1000,
	}
	second := &domain.ActionEvent{
		EventID: uuid.NewString(), Wallet: "wallet2", Action: domain.ActionNFTBurn,
		Points: 200, Referrer: "wallet1", BonusPoints: 60, TimestampMs: 2000,
	}
	require.NoError(t, store.Insert(ctx, first))
	require.NoError(t, store.Insert(ctx, second))

	events, err := store.GetByWallet(ctx, "wallet1", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, second.EventID, events[0].EventID)
	assert.Equal(t, domain.ActionAbsorb, events[1].Action)
	assert.Equal(t, uint64(40784), events[1].FeesPaid)

	err = store.Insert(ctx, first)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
