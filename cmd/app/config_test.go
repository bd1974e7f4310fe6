package main

import (
	"testing"
	"time"

	"edu_rewards/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("APP_TELEGRAMAUTH_DEBUGMODE", "true")
	t.Setenv("APP_REWARDS_CONVERSIONRATE", "50")
	t.Setenv("APP_DATABASE_PASSWORD", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.TelegramAuth.DebugMode)
	assert.Equal(t, int64(50), cfg.Rewards.ConversionRate)
	assert.Equal(t, "secret", cfg.Database.Password)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 16, cfg.Notifications.WebsocketBuffer)
	assert.Equal(t, service.DefaultCalendarMaxRangeDays, cfg.Rewards.CalendarMaxRangeDays)
	assert.Zero(t, cfg.Rewards.ClaimGraceDays)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_RequiresBotToken(t *testing.T) {
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "telegramBotToken")

	t.Setenv("APP_TELEGRAMAUTH_TELEGRAMBOTTOKEN", "123:abc")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.TelegramAuth.TelegramBotToken)
}
