package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"edu_rewards/internal/repository"
	"edu_rewards/internal/service"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `mapstructure:"database"`
	Server   ServerConfig      `mapstructure:"server"`

	TelegramAuth  TelegramAuthConfig  `mapstructure:"telegramAuth"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Rewards       RewardsConfig       `mapstructure:"rewards"`

	LogLevel string `mapstructure:"logLevel"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type TelegramAuthConfig struct {
	TelegramBotToken string `mapstructure:"telegramBotToken"`
	// DebugMode skips init data signature checks. Never enable in production.
	DebugMode bool `mapstructure:"debugMode"`
}

type NotificationsConfig struct {
	TelegramEnabled bool `mapstructure:"telegramEnabled"`
	WebsocketBuffer int  `mapstructure:"websocketBuffer"`
}

type RewardsConfig struct {
	ConversionRate       int64 `mapstructure:"conversionRate"`
	CalendarMaxRangeDays int   `mapstructure:"calendarMaxRangeDays"`
	// CalendarLeadDays is how many days ahead of today get calendar entries at startup.
	CalendarLeadDays int `mapstructure:"calendarLeadDays"`
	// ClaimGraceDays lets users claim a missed day up to this many days late.
	ClaimGraceDays int `mapstructure:"claimGraceDays"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "rewards")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 20)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("telegramAuth.telegramBotToken", "")
	v.SetDefault("telegramAuth.debugMode", false)

	v.SetDefault("notifications.telegramEnabled", false)
	v.SetDefault("notifications.websocketBuffer", 16)

	v.SetDefault("rewards.conversionRate", service.ConversionRate)
	v.SetDefault("rewards.calendarMaxRangeDays", service.DefaultCalendarMaxRangeDays)
	v.SetDefault("rewards.calendarLeadDays", 30)
	v.SetDefault("rewards.claimGraceDays", 0)

	v.SetDefault("logLevel", "info")
}

// LoadConfig reads config.yaml from the working directory. Every key can be
// overridden from the environment, e.g. APP_DATABASE_PASSWORD.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(configPath)
	v.SetConfigType(configFormat)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.TelegramAuth.TelegramBotToken == "" && !cfg.TelegramAuth.DebugMode {
		return nil, fmt.Errorf("telegramAuth.telegramBotToken is required")
	}

	return &cfg, nil
}
