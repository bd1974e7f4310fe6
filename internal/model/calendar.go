package model

import "time"

const DateLayout = "2006-01-02"

// DateKey drops the time of day, leaving midnight UTC of the same calendar date.
func DateKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type CalendarReward struct {
	Type      RewardType `json:"type"`
	Amount    int64      `json:"amount,omitempty"`
	ChestType ChestType  `json:"chest_type,omitempty"`
}

type CalendarTheme struct {
	Name   string `json:"name"`
	Season string `json:"season"`
}

type CalendarDay struct {
	Date      time.Time
	Reward    CalendarReward
	Theme     CalendarTheme
	CreatedAt time.Time
}

type CalendarClaim struct {
	UserID      int64
	Date        time.Time
	RewardType  RewardType
	Amount      int64
	ChestType   ChestType
	ChestReward *ChestReward
	ClaimedAt   time.Time
}

type CalendarEntry struct {
	Date      time.Time
	Reward    CalendarReward
	Theme     CalendarTheme
	Claimed   bool
	Claimable bool
}

type ClaimResult struct {
	RewardType  RewardType
	Amount      int64
	ChestType   ChestType
	ChestReward *ChestReward
}
