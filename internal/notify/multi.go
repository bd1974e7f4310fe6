// Package notify delivers reward events to users outside the request that
// produced them.
package notify

import (
	"edu_rewards/internal/model"
	"edu_rewards/internal/service"
)

// Multi fans an event out to every notifier in order.
type Multi []service.Notifier

func (m Multi) Notify(userID int64, event model.Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(userID, event)
		}
	}
}
