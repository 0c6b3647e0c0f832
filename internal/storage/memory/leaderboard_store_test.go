package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/storage"
)

func TestLeaderboardStore_UpsertCreatesThenAccumulates(t *testing.T) {
	store := NewLeaderboardStore()
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	e, created, err := store.Upsert(ctx, "w1", domain.DeltaFor(domain.ActionAbsorb, 40784, at))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !created {
		t.Error("expected first upsert to create the entry")
	}
	if e.ID == "" {
		t.Error("expected generated id")
	}
	if e.Points != 10 || e.Absorbs != 1 || e.TotalFeesPaid != 40784 {
		t.Errorf("unexpected entry after first upsert: %+v", e)
	}

	e, created, err = store.Upsert(ctx, "w1", domain.DeltaFor(domain.ActionNFTBurn, 0, at.Add(time.Minute)))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if created {
		t.Error("second upsert must not create")
	}
	if e.Points != 210 || e.NFTBurns != 1 || e.Absorbs != 1 {
		t.Errorf("unexpected entry after second upsert: %+v", e)
	}
	if !e.LastActivity.Equal(at.Add(time.Minute)) {
		t.Errorf("last activity not updated: %v", e.LastActivity)
	}
	if !e.CreatedAt.Equal(at) {
		t.Errorf("created_at changed: %v", e.CreatedAt)
	}
}

func TestLeaderboardStore_UpsertConcurrent(t *testing.T) {
	store := NewLeaderboardStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := store.Upsert(ctx, "w1", domain.DeltaFor(domain.ActionTokenBurn, 1, time.Now())); err != nil {
				t.Errorf("Upsert failed: %v", err)
			}
		}()
	}
	wg.Wait()

	e, err := store.Get(ctx, "w1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e.Points != 50*50 || e.TokenBurns != 50 || e.TotalFeesPaid != 50 {
		t.Errorf("lost updates: %+v", e)
	}
}

func TestLeaderboardStore_UpsertEmptyWallet(t *testing.T) {
	store := NewLeaderboardStore()

	_, _, err := store.Upsert(context.Background(), "", domain.EntryDelta{Points: 1})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLeaderboardStore_TopAndRank(t *testing.T) {
	store := NewLeaderboardStore()
	ctx := context.Background()
	at := time.Now()

	store.Upsert(ctx, "low", domain.EntryDelta{Points: 10, At: at})
	store.Upsert(ctx, "high", domain.EntryDelta{Points: 500, At: at})
	store.Upsert(ctx, "mid", domain.EntryDelta{Points: 100, At: at})

	top, err := store.Top(ctx, 2)
	if err != nil {
		t.Fatalf("Top failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].Wallet != "high" || top[1].Wallet != "mid" {
		t.Errorf("unexpected order: %s, %s", top[0].Wallet, top[1].Wallet)
	}

	rank, err := store.Rank(ctx, "low")
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if rank != 3 {
		t.Errorf("expected rank 3, got %d", rank)
	}

	if _, err := store.Rank(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLeaderboardStore_UpdateProfile(t *testing.T) {
	store := NewLeaderboardStore()
	ctx := context.Background()

	name := "rugal"
	pic := "https://example.com/p.png"
	e, err := store.UpdateProfile(ctx, "w1", &name, &pic)
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if e.Username == nil || *e.Username != "rugal" {
		t.Errorf("username not set: %+v", e)
	}
	if e.Points != 0 {
		t.Errorf("profile creation must not award points")
	}

	// Same wallet may re-save its own username.
	if _, err := store.UpdateProfile(ctx, "w1", &name, nil); err != nil {
		t.Errorf("re-save own username failed: %v", err)
	}

	if _, err := store.UpdateProfile(ctx, "w2", &name, nil); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	found, err := store.GetByUsername(ctx, "rugal")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if found.Wallet != "w1" {
		t.Errorf("expected w1, got %s", found.Wallet)
	}
	if found.ProfilePicture == nil || *found.ProfilePicture != pic {
		t.Errorf("picture changed by nil update: %+v", found.ProfilePicture)
	}
}

func TestLeaderboardStore_ReferralCode(t *testing.T) {
	store := NewLeaderboardStore()
	ctx := context.Background()

	if _, err := store.SetReferralCode(ctx, "w1", "CODE1"); err != nil {
		t.Fatalf("SetReferralCode failed: %v", err)
	}
	if _, err := store.SetReferralCode(ctx, "w2", "CODE1"); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	e, err := store.GetByReferralCode(ctx, "CODE1")
	if err != nil {
		t.Fatalf("GetByReferralCode failed: %v", err)
	}
	if e.Wallet != "w1" {
		t.Errorf("expected w1, got %s", e.Wallet)
	}

	if _, err := store.GetByReferralCode(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLeaderboardStore_SetReferredByOnce(t *testing.T) {
	store := NewLeaderboardStore()
	ctx := context.Background()

	if _, err := store.SetReferredBy(ctx, "w2", "w1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing entry, got %v", err)
	}

	store.Upsert(ctx, "w2", domain.EntryDelta{Points: 10})

	set, err := store.SetReferredBy(ctx, "w2", "w1")
	if err != nil || !set {
		t.Fatalf("SetReferredBy failed: set=%v err=%v", set, err)
	}

	set, err = store.SetReferredBy(ctx, "w2", "w3")
	if err != nil {
		t.Fatalf("SetReferredBy failed: %v", err)
	}
	if set {
		t.Error("referrer must not be overwritten")
	}

	e, _ := store.Get(ctx, "w2")
	if e.ReferredBy == nil || *e.ReferredBy != "w1" {
		t.Errorf("unexpected referrer: %v", e.ReferredBy)
	}
}

func TestLeaderboardStore_GetReturnsCopy(t *testing.T) {
	store := NewLeaderboardStore()
	ctx := context.Background()

	name := "abc"
	store.UpdateProfile(ctx, "w1", &name, nil)

	e, _ := store.Get(ctx, "w1")
	*e.Username = "mutated"
	e.Points = 9999

	again, _ := store.Get(ctx, "w1")
	if *again.Username != "abc" || again.Points != 0 {
		t.Errorf("store state leaked through returned entry: %+v", again)
	}
}
