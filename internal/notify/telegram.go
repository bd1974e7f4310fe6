package notify

import (
	"fmt"

	"edu_rewards/internal/model"
	"edu_rewards/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram forwards events as chat messages from the Mini App's bot. The
// Telegram user ID doubles as the private chat ID.
type Telegram struct {
	bot botSender
	log *zap.Logger
}

// NewBot connects to the Bot API once. The client is shared by the notifier and
// the avatar lookup.
func NewBot(botToken string, debug bool) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

func NewTelegram(bot *tgbotapi.BotAPI) *Telegram {
	return newTelegram(bot)
}

func newTelegram(bot botSender) *Telegram {
	return &Telegram{
		bot: bot,
		log: logger.Named("notify.telegram"),
	}
}

func (t *Telegram) Notify(userID int64, event model.Event) {
	text := MessageText(event)
	if text == "" {
		return
	}

	go func() {
		msg := tgbotapi.NewMessage(userID, text)
		if _, err := t.bot.Send(msg); err != nil {
			t.log.Warn("failed to send telegram notification",
				zap.Int64("user_id", userID),
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}()
}

// MessageText renders the chat text for an event. Events with no text are not
// sent.
func MessageText(event model.Event) string {
	p := event.Payload

	switch event.Type {
	case model.EventDailyRewardClaimed:
		if p["reward_type"] == model.RewardChest {
			return fmt.Sprintf("You opened the %v chest of %v!", p["chest_type"], p["date"])
		}
		return fmt.Sprintf("Daily reward for %v claimed: %v %v.", p["date"], p["amount"], p["reward_type"])
	case model.EventQuestCompleted:
		return fmt.Sprintf("Quest completed: %v. Your reward is waiting!", p["title"])
	case model.EventQuestRewardClaimed:
		if p["reward_type"] == model.RewardBadge {
			return ""
		}
		return fmt.Sprintf("Quest reward received: %v %v.", p["reward_amount"], p["reward_type"])
	case model.EventBadgeAwarded:
		return fmt.Sprintf("New badge unlocked: %v", p["badge_id"])
	case model.EventGemsConverted:
		return fmt.Sprintf("Converted %v points into %v gems.", p["points_used"], p["gems_earned"])
	case model.EventGemsAdjusted:
		return fmt.Sprintf("Your gem balance changed by %v. New balance: %v.", p["gems"], p["new_balance"])
	}
	return ""
}
