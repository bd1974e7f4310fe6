package model

import "time"

type ChestType string

const (
	ChestCommon    ChestType = "common"
	ChestRare      ChestType = "rare"
	ChestEpic      ChestType = "epic"
	ChestLegendary ChestType = "legendary"
)

func (t ChestType) Valid() bool {
	switch t {
	case ChestCommon, ChestRare, ChestEpic, ChestLegendary:
		return true
	}
	return false
}

type Chest struct {
	Type            ChestType
	Name            string
	PossibleRewards []ChestReward
	UpdatedAt       time.Time
}

type ChestReward struct {
	ID      string     `json:"id"`
	Type    RewardType `json:"type"`
	Amount  int64      `json:"amount,omitempty"`
	BadgeID string     `json:"badge_id,omitempty"`
	Weight  float64    `json:"weight"`
}
