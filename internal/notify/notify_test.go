package notify

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"edu_rewards/internal/model"

	"github.com/goccy/go-json"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversToEverySocket(t *testing.T) {
	hub := NewHub(4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(42, conn)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer first.Close()
	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer second.Close()

	require.Eventually(t, func() bool { return hub.Connected(42) == 2 }, time.Second, 10*time.Millisecond)

	hub.Notify(42, model.NewEvent(model.EventBadgeAwarded, map[string]any{"badge_id": "first-steps"}))
	hub.Notify(7, model.NewEvent(model.EventBadgeAwarded, nil))

	for _, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var got model.Event
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, model.EventBadgeAwarded, got.Type)
		assert.Equal(t, "first-steps", got.Payload["badge_id"])
	}

	first.Close()
	require.Eventually(t, func() bool { return hub.Connected(42) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(1)
	c := hub.register(42)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Notify(42, model.NewEvent(model.EventQuestCompleted, nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full buffer")
	}
	assert.Len(t, c.send, 1)

	hub.unregister(c)
	hub.unregister(c)
	assert.Equal(t, 0, hub.Connected(42))
}

type fakeBot struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
	done chan struct{}
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	f.done <- struct{}{}
	return tgbotapi.Message{}, f.err
}

func TestTelegram_Notify(t *testing.T) {
	bot := &fakeBot{done: make(chan struct{}, 1)}
	tg := newTelegram(bot)

	tg.Notify(42, model.NewEvent(model.EventGemsConverted, map[string]any{
		"points_used": int64(200),
		"gems_earned": int64(2),
	}))

	select {
	case <-bot.done:
	case <-time.After(time.Second):
		t.Fatal("message was not sent")
	}

	bot.mu.Lock()
	defer bot.mu.Unlock()
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, "Converted 200 points into 2 gems.", bot.sent[0].Text)
}

func TestTelegram_SendFailureIsSwallowed(t *testing.T) {
	bot := &fakeBot{done: make(chan struct{}, 1), err: errors.New("bot was blocked by the user")}
	tg := newTelegram(bot)

	assert.NotPanics(t, func() {
		tg.Notify(42, model.NewEvent(model.EventBadgeAwarded, map[string]any{"badge_id": "x"}))
	})

	select {
	case <-bot.done:
	case <-time.After(time.Second):
		t.Fatal("message was not attempted")
	}
}

func TestMessageText(t *testing.T) {
	tests := []struct {
		name  string
		event model.Event
		want  string
	}{
		{
			name: "daily points",
			event: model.Event{Type: model.EventDailyRewardClaimed, Payload: map[string]any{
				"date": "2024-03-03", "amount": int64(25), "reward_type": model.RewardPoints,
			}},
			want: "Daily reward for 2024-03-03 claimed: 25 points.",
		},
		{
			name: "daily chest",
			event: model.Event{Type: model.EventDailyRewardClaimed, Payload: map[string]any{
				"date": "2024-03-31", "reward_type": model.RewardChest, "chest_type": model.ChestLegendary,
			}},
			want: "You opened the legendary chest of 2024-03-31!",
		},
		{
			name:  "quest completed",
			event: model.Event{Type: model.EventQuestCompleted, Payload: map[string]any{"title": "Read 3 chapters"}},
			want:  "Quest completed: Read 3 chapters. Your reward is waiting!",
		},
		{
			name:  "badge quest reward is announced by the badge event",
			event: model.Event{Type: model.EventQuestRewardClaimed, Payload: map[string]any{"reward_type": model.RewardBadge}},
			want:  "",
		},
		{
			name:  "unknown",
			event: model.Event{Type: "something_else"},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MessageText(tt.event))
		})
	}
}

type recorder struct {
	events []model.EventType
}

func (r *recorder) Notify(_ int64, e model.Event) {
	r.events = append(r.events, e.Type)
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, nil, b}

	m.Notify(1, model.NewEvent(model.EventGemsAdjusted, nil))

	assert.Equal(t, []model.EventType{model.EventGemsAdjusted}, a.events)
	assert.Equal(t, []model.EventType{model.EventGemsAdjusted}, b.events)
}
