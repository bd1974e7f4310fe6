package model

type RewardType string

const (
	RewardPoints RewardType = "points"
	RewardGems   RewardType = "gems"
	RewardChest  RewardType = "chest"
	RewardBadge  RewardType = "badge"
)

// Grant is a materialized payout: what actually lands on the user's balance
// or badge shelf once a reward has been resolved.
type Grant struct {
	Type    RewardType
	Amount  int64
	BadgeID string
	Reason  string
	// Metadata is copied onto the ledger rows written for the grant.
	Metadata map[string]any
}
