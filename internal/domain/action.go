package domain

// Action is a kind of cleanup action that earns points.
type Action string

const (
	ActionAbsorb    Action = "absorb"
	ActionTokenBurn Action = "token_burn"
	ActionNFTBurn   Action = "nft_burn"
)

// Point weights per unit of action.
const (
	PointsAbsorb    = 10
	PointsTokenBurn = 50
	PointsNFTBurn   = 200
)

// ReferralSharePct is the share of a referred wallet's points credited to its referrer.
const ReferralSharePct = 30

// String returns the string representation of Action.
func (a Action) String() string {
	return string(a)
}

// IsValid checks if the action is a known action kind.
func (a Action) IsValid() bool {
	return a == ActionAbsorb || a == ActionTokenBurn || a == ActionNFTBurn
}

// Points returns the fixed weight for one unit of the action. Unknown actions are worth 0.
func (a Action) Points() int64 {
	switch a {
	case ActionAbsorb:
		return PointsAbsorb
	case ActionTokenBurn:
		return PointsTokenBurn
	case ActionNFTBurn:
		return PointsNFTBurn
	default:
		return 0
	}
}

// PointsAward is one unit of action reported to the points ledger.
type PointsAward struct {
	Wallet       string `json:"wallet"`
	Action       Action `json:"action"`
	FeesPaid     uint64 `json:"feesPaid"`
	ReferralCode string `json:"referralCode,omitempty"`
	Signature    string `json:"signature,omitempty"`
}

// ActionEvent is the audit record of an award applied to the leaderboard.
// Corresponds to action_events table in ClickHouse.
type ActionEvent struct {
	EventID     string `json:"event_id"`            // uuid
	Wallet      string `json:"wallet"`              // wallet credited
	Action      Action `json:"action"`              // action kind
	Points      int64  `json:"points"`              // points credited to the wallet
	FeesPaid    uint64 `json:"fees_paid"`           // lamports attributed to this unit
	Signature   string `json:"signature,omitempty"` // transaction signature if reported
	Referrer    string `json:"referrer,omitempty"`  // referrer wallet credited with a bonus
	BonusPoints int64  `json:"bonus_points"`        // points credited to the referrer
	TimestampMs int64  `json:"timestamp_ms"`        // when the award was applied (ms)
}
