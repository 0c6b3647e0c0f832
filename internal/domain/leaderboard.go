package domain

import "time"

// LeaderboardEntry is the per-wallet points row.
// Corresponds to leaderboard_entries table in PostgreSQL.
type LeaderboardEntry struct {
	ID              string    `json:"id"`
	Wallet          string    `json:"wallet"`
	Points          int64     `json:"points"`
	Absorbs         int64     `json:"absorbs"`
	TokenBurns      int64     `json:"token_burns"`
	NFTBurns        int64     `json:"nft_burns"`
	TotalFeesPaid   uint64    `json:"total_fees_paid"`
	Username        *string   `json:"username,omitempty"`
	ProfilePicture  *string   `json:"profile_picture,omitempty"`
	ReferralCode    *string   `json:"referral_code,omitempty"`
	ReferredBy      *string   `json:"referred_by,omitempty"`
	ReferralsCount  int64     `json:"referrals_count"`
	ReferralRewards uint64    `json:"referral_rewards"`
	LastActivity    time.Time `json:"last_activity"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TotalActions returns the number of actions recorded for the entry.
func (e *LeaderboardEntry) TotalActions() int64 {
	return e.Absorbs + e.TokenBurns + e.NFTBurns
}

// EntryDelta is an additive change applied to a leaderboard entry.
// All fields are non-negative so points and counters never decrease.
type EntryDelta struct {
	Points          int64
	Absorbs         int64
	TokenBurns      int64
	NFTBurns        int64
	FeesPaid        uint64
	ReferralsCount  int64
	ReferralRewards uint64
	At              time.Time
}

// DeltaFor returns the delta for one unit of the action.
func DeltaFor(action Action, feesPaid uint64, at time.Time) EntryDelta {
	d := EntryDelta{Points: action.Points(), FeesPaid: feesPaid, At: at}
	switch action {
	case ActionAbsorb:
		d.Absorbs = 1
	case ActionTokenBurn:
		d.TokenBurns = 1
	case ActionNFTBurn:
		d.NFTBurns = 1
	}
	return d
}

// Apply adds the delta to the entry in place.
func (e *LeaderboardEntry) Apply(d EntryDelta) {
	e.Points += d.Points
	e.Absorbs += d.Absorbs
	e.TokenBurns += d.TokenBurns
	e.NFTBurns += d.NFTBurns
	e.TotalFeesPaid += d.FeesPaid
	e.ReferralsCount += d.ReferralsCount
	e.ReferralRewards += d.ReferralRewards
	if !d.At.IsZero() {
		e.LastActivity = d.At
		e.UpdatedAt = d.At
	}
}
