package domain

// Achievement is a profile badge derived from leaderboard counters.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int64  `json:"points"`
	Unlocked    bool   `json:"unlocked"`
	Progress    int64  `json:"progress"`
	MaxProgress int64  `json:"max_progress"`
}

type achievementRule struct {
	Achievement
	counter func(*LeaderboardEntry) int64
}

var achievementCatalogue = []achievementRule{
	{
		Achievement: Achievement{ID: "first_burn", Name: "First Burn", Description: "Burn your first token", Points: 50, MaxProgress: 1},
		counter:     func(e *LeaderboardEntry) int64 { return e.TokenBurns },
	},
	{
		Achievement: Achievement{ID: "burn_master", Name: "Burn Master", Description: "Burn 10 tokens", Points: 500, MaxProgress: 10},
		counter:     func(e *LeaderboardEntry) int64 { return e.TokenBurns },
	},
	{
		Achievement: Achievement{ID: "nft_destroyer", Name: "NFT Destroyer", Description: "Burn 5 NFTs", Points: 1000, MaxProgress: 5},
		counter:     func(e *LeaderboardEntry) int64 { return e.NFTBurns },
	},
	{
		Achievement: Achievement{ID: "rent_absorber", Name: "Rent Absorber", Description: "Absorb 20 accounts", Points: 200, MaxProgress: 20},
		counter:     func(e *LeaderboardEntry) int64 { return e.Absorbs },
	},
	{
		Achievement: Achievement{ID: "arena_champion", Name: "Arena Champion", Description: "Reach 1000 total points", Points: 1000, MaxProgress: 1000},
		counter:     func(e *LeaderboardEntry) int64 { return e.Points },
	},
}

// Achievements evaluates the fixed catalogue against an entry.
func Achievements(e *LeaderboardEntry) []Achievement {
	out := make([]Achievement, 0, len(achievementCatalogue))
	for _, rule := range achievementCatalogue {
		a := rule.Achievement
		v := rule.counter(e)
		a.Progress = min(v, a.MaxProgress)
		a.Unlocked = v >= a.MaxProgress
		out = append(out, a)
	}
	return out
}

// Milestones are the point thresholds shown on the profile progress bar.
var Milestones = []int64{100, 250, 500, 1000, 2500, 5000, 10000}

// NextMilestone returns the first milestone above points, or the last one when all are passed.
func NextMilestone(points int64) int64 {
	for _, m := range Milestones {
		if m > points {
			return m
		}
	}
	return Milestones[len(Milestones)-1]
}
