package model

import "time"

type EventType string

const (
	EventDailyRewardClaimed EventType = "daily_reward_claimed"
	EventQuestCompleted     EventType = "quest_completed"
	EventQuestRewardClaimed EventType = "quest_reward_claimed"
	EventBadgeAwarded       EventType = "badge_awarded"
	EventGemsConverted      EventType = "gems_converted"
	EventGemsAdjusted       EventType = "gems_adjusted"
)

type Event struct {
	Type    EventType      `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

func NewEvent(t EventType, payload map[string]any) Event {
	return Event{Type: t, Payload: payload, At: time.Now().UTC()}
}
