package model

import (
	"time"

	"github.com/google/uuid"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}

func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// Start returns the beginning of the window containing t, in UTC. Weeks
// start on Monday.
func (p Period) Start(t time.Time) time.Time {
	day := DateKey(t)
	switch p {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

type Quest struct {
	ID           uuid.UUID
	Title        string
	Description  string
	Period       Period
	Action       string
	Target       int
	RewardType   RewardType
	RewardAmount int64
	BadgeID      string
	IsActive     bool
	CreatedAt    time.Time
}

// UserQuestProgress is one user's instance of a quest for one period window.
// Target and reward are copied from the quest when the instance is created.
type UserQuestProgress struct {
	ID           uuid.UUID
	UserID       int64
	QuestID      uuid.UUID
	Title        string
	Period       Period
	PeriodStart  time.Time
	Action       string
	Progress     int
	Target       int
	RewardType   RewardType
	RewardAmount int64
	BadgeID      string
	Claimed      bool
	ClaimedAt    *time.Time
	CreatedAt    time.Time
}

func (p *UserQuestProgress) Completed() bool {
	return p.Progress >= p.Target
}

func (p *UserQuestProgress) Grant() Grant {
	return Grant{
		Type:    p.RewardType,
		Amount:  p.RewardAmount,
		BadgeID: p.BadgeID,
		Reason:  "quest: " + p.Title,
		Metadata: map[string]any{
			"quest_id":     p.QuestID.String(),
			"period_start": p.PeriodStart.Format(DateLayout),
		},
	}
}
