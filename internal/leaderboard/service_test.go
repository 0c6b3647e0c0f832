package leaderboard

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/storage/memory"
)

func newTestService() (*Service, *memory.LeaderboardStore, *memory.ActionEventStore) {
	store := memory.NewLeaderboardStore()
	events := memory.NewActionEventStore()
	svc := NewService(store, WithEventStore(events))
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store, events
}

func TestAward_AccumulatesPoints(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Award(ctx, domain.PointsAward{Wallet: "w1", Action: domain.ActionAbsorb, FeesPaid: 100})
	require.NoError(t, err)
	e, err := svc.Award(ctx, domain.PointsAward{Wallet: "w1", Action: domain.ActionTokenBurn, FeesPaid: 50})
	require.NoError(t, err)

	assert.Equal(t, int64(60), e.Points)
	assert.Equal(t, int64(1), e.Absorbs)
	assert.Equal(t, int64(1), e.TokenBurns)
	assert.Equal(t, uint64(150), e.TotalFeesPaid)
}

func TestAward_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Award(ctx, domain.PointsAward{Action: domain.ActionAbsorb})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Award(ctx, domain.PointsAward{Wallet: "w1", Action: "mint"})
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestAward_RejectsFeesBeyondInt64(t *testing.T) {
	svc, store, events := newTestService()
	ctx := context.Background()

	_, err := svc.Award(ctx, domain.PointsAward{Wallet: "w1", Action: domain.ActionAbsorb, FeesPaid: math.MaxInt64 + 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = store.Get(ctx, "w1")
	assert.Error(t, err, "rejected award must not create an entry")
	list, err := events.GetByWallet(ctx, "w1", 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	e, err := svc.Award(ctx, domain.PointsAward{Wallet: "w1", Action: domain.ActionAbsorb, FeesPaid: math.MaxInt64})
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxInt64), e.TotalFeesPaid)
}

func TestAward_ReferralFlow(t *testing.T) {
	svc, store, events := newTestService()
	ctx := context.Background()

	_, err := svc.SetReferralCode(ctx, "referrer", "rugal")
	require.NoError(t, err)

	e, err := svc.Award(ctx, domain.PointsAward{
		Wallet:       "newbie",
		Action:       domain.ActionAbsorb,
		FeesPaid:     1000,
		ReferralCode: "rugal",
	})
	require.NoError(t, err)
	require.NotNil(t, e.ReferredBy)
	assert.Equal(t, "referrer", *e.ReferredBy)

	ref, err := store.Get(ctx, "referrer")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ref.ReferralsCount)
	assert.Equal(t, int64(3), ref.Points)
	assert.Equal(t, uint64(300), ref.ReferralRewards)

	// Later awards keep crediting the referrer without counting a new referral.
	_, err = svc.Award(ctx, domain.PointsAward{Wallet: "newbie", Action: domain.ActionNFTBurn, FeesPaid: 10})
	require.NoError(t, err)

	ref, err = store.Get(ctx, "referrer")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ref.ReferralsCount)
	assert.Equal(t, int64(63), ref.Points)
	assert.Equal(t, uint64(303), ref.ReferralRewards)

	activity, err := events.GetByWallet(ctx, "referrer", 10)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	for _, ev := range activity {
		assert.Equal(t, "newbie", ev.Wallet)
		assert.Equal(t, "referrer", ev.Referrer)
	}
}

func TestAward_ReferralIgnoredForExistingWallet(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SetReferralCode(ctx, "referrer", "code1")
	require.NoError(t, err)
	_, err = svc.Award(ctx, domain.PointsAward{Wallet: "w1", Action: domain.ActionAbsorb})
	require.NoError(t, err)

	e, err := svc.Award(ctx, domain.PointsAward{Wallet: "w1", Action: domain.ActionAbsorb, ReferralCode: "code1"})
	require.NoError(t, err)
	assert.Nil(t, e.ReferredBy)

	ref, _ := store.Get(ctx, "referrer")
	assert.Equal(t, int64(0), ref.ReferralsCount)
}

func TestAward_UnknownReferralCode(t *testing.T) {
	svc, _, _ := newTestService()

	e, err := svc.Award(context.Background(), domain.PointsAward{Wallet: "w1", Action: domain.ActionAbsorb, ReferralCode: "ghost"})
	require.NoError(t, err)
	assert.Nil(t, e.ReferredBy)
	assert.Equal(t, int64(10), e.Points)
}

func TestReferralShare(t *testing.T) {
	assert.Equal(t, int64(3), ReferralShare(10))
	assert.Equal(t, int64(15), ReferralShare(50))
	assert.Equal(t, int64(60), ReferralShare(200))
	assert.Equal(t, int64(0), ReferralShare(3))
	assert.Equal(t, int64(2767011611056432742), ReferralShare(math.MaxInt64))
}

func TestTop_Limits(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	top, err := svc.Top(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, top)
	assert.Empty(t, top)

	for i := 0; i < 60; i++ {
		_, err := svc.Award(ctx, domain.PointsAward{Wallet: "w" + strings.Repeat("x", i+1), Action: domain.ActionAbsorb})
		require.NoError(t, err)
	}

	top, err = svc.Top(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, top, MaxLimit)

	top, err = svc.Top(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, top, 5)
}

func TestProfile(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Profile(ctx, "abcdefghijk")
	require.NoError(t, err)
	assert.True(t, p.NeedsUsername)
	assert.Equal(t, 0, p.Rank)
	assert.Equal(t, "ABCDEFGH", p.ReferralCode)
	assert.Equal(t, int64(100), p.NextMilestone)

	for i := 0; i < 2; i++ {
		_, err = svc.Award(ctx, domain.PointsAward{Wallet: "abcdefghijk", Action: domain.ActionNFTBurn})
		require.NoError(t, err)
	}
	_, err = svc.Award(ctx, domain.PointsAward{Wallet: "other", Action: domain.ActionAbsorb})
	require.NoError(t, err)

	p, err = svc.Profile(ctx, "abcdefghijk")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Rank)
	assert.Equal(t, int64(400), p.Entry.Points)
	assert.Equal(t, int64(500), p.NextMilestone)
	assert.Len(t, p.Achievements, 5)

	_, err = svc.SetProfile(ctx, "abcdefghijk", "Rugal", "")
	require.NoError(t, err)
	p, err = svc.Profile(ctx, "abcdefghijk")
	require.NoError(t, err)
	assert.False(t, p.NeedsUsername)
	assert.Equal(t, "rugal", p.ReferralCode)

	_, err = svc.Profile(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Rugal", want: "rugal"},
		{in: "  dom_99 ", want: "dom_99"},
		{in: "ab", wantErr: true},
		{in: "has space", wantErr: true},
		{in: "emoji🔥", wantErr: true},
		{in: strings.Repeat("a", MaxUsernameLength+1), wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeUsername(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidInput, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestSetProfile(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	e, err := svc.SetProfile(ctx, "w1", "Rugal", "https://example.com/me.png")
	require.NoError(t, err)
	require.NotNil(t, e.Username)
	assert.Equal(t, "rugal", *e.Username)
	require.NotNil(t, e.ReferralCode)
	assert.Equal(t, "rugal", *e.ReferralCode)
	require.NotNil(t, e.ProfilePicture)

	// Re-saving own username is allowed.
	_, err = svc.SetProfile(ctx, "w1", "rugal", "")
	require.NoError(t, err)

	_, err = svc.SetProfile(ctx, "w2", "RUGAL", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.SetReferralCode(ctx, "w3", "dominion")
	require.NoError(t, err)
	_, err = svc.SetProfile(ctx, "w2", "dominion", "")
	assert.ErrorIs(t, err, ErrReferralCodeTaken)

	got, err := store.Get(ctx, "w2")
	if err == nil {
		assert.Nil(t, got.Username, "failed profile save must not set a username")
	}

	_, err = svc.SetProfile(ctx, "w2", "ok_name", "ftp://nope")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUsernameAvailable(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	ok, err := svc.UsernameAvailable(ctx, "rugal")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.SetProfile(ctx, "w1", "rugal", "")
	require.NoError(t, err)

	ok, err = svc.UsernameAvailable(ctx, "RUGAL")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.UsernameAvailable(ctx, "x")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidatePicture(t *testing.T) {
	assert.NoError(t, ValidatePicture(""))
	assert.NoError(t, ValidatePicture("data:image/png;base64,AAAA"))
	assert.NoError(t, ValidatePicture("https://cdn.example.com/p.jpg"))
	assert.ErrorIs(t, ValidatePicture("javascript:alert(1)"), ErrInvalidInput)
	assert.ErrorIs(t, ValidatePicture("data:image/png;base64,"+strings.Repeat("A", MaxPictureBytes)), ErrInvalidInput)
}

func TestSetReferralCode(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	e, err := svc.SetReferralCode(ctx, "w1", "  CODE1 ")
	require.NoError(t, err)
	assert.Equal(t, "CODE1", *e.ReferralCode)

	_, err = svc.SetReferralCode(ctx, "w2", "CODE1")
	assert.ErrorIs(t, err, ErrReferralCodeTaken)

	_, err = svc.SetReferralCode(ctx, "w2", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestActivity(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Award(ctx, domain.PointsAward{Wallet: "w1", Action: domain.ActionAbsorb, Signature: "sig1"})
	require.NoError(t, err)
	_, err = svc.Award(ctx, domain.PointsAward{Wallet: "w2", Action: domain.ActionAbsorb})
	require.NoError(t, err)

	events, err := svc.Activity(ctx, "w1", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "sig1", events[0].Signature)
	assert.Equal(t, int64(10), events[0].Points)
	assert.NotEmpty(t, events[0].EventID)

	noEvents := NewService(memory.NewLeaderboardStore())
	events, err = noEvents.Activity(ctx, "w1", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

type failingEvents struct{}

func (failingEvents) Insert(context.Context, *domain.ActionEvent) error {
	return errors.New("clickhouse down")
}

func (failingEvents) GetByWallet(context.Context, string, int) ([]*domain.ActionEvent, error) {
	return nil, errors.New("clickhouse down")
}

func TestAward_EventStoreFailureDoesNotFailAward(t *testing.T) {
	svc := NewService(memory.NewLeaderboardStore(), WithEventStore(failingEvents{}))

	e, err := svc.Award(context.Background(), domain.PointsAward{Wallet: "w1", Action: domain.ActionTokenBurn})
	require.NoError(t, err)
	assert.Equal(t, int64(50), e.Points)

	_, err = svc.Activity(context.Background(), "w1", 10)
	assert.Error(t, err)
}
