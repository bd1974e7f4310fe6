package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edu_rewards/internal/api"
	"edu_rewards/internal/middleware"
	"edu_rewards/internal/model"
	"edu_rewards/internal/notify"
	"edu_rewards/internal/repository"
	"edu_rewards/internal/service"
	"edu_rewards/pkg/auth"
	"edu_rewards/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := repo.Migrate(ctx); err != nil {
		zapLogger.Fatal("Failed to apply schema", zap.Error(err))
	}

	var photos api.ProfilePhotos
	var bot *tgbotapi.BotAPI
	if cfg.TelegramAuth.TelegramBotToken != "" {
		bot, err = notify.NewBot(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)
		if err != nil {
			zapLogger.Warn("Telegram bot unavailable", zap.Error(err))
			bot = nil
		} else {
			photos = bot
		}
	}

	hub := notify.NewHub(cfg.Notifications.WebsocketBuffer)
	notifier := notify.Multi{hub}
	if cfg.Notifications.TelegramEnabled {
		if bot == nil {
			zapLogger.Fatal("Telegram notifications are enabled but the bot is unavailable")
		}
		notifier = append(notifier, notify.NewTelegram(bot))
	}

	userService := service.NewUserService(repo)
	calendarService := service.NewCalendarService(repo, notifier, cfg.Rewards.CalendarMaxRangeDays, cfg.Rewards.ClaimGraceDays)
	questService := service.NewQuestService(repo, notifier)
	gemService := service.NewGemService(repo, notifier, cfg.Rewards.ConversionRate)
	chestService := service.NewChestService(repo)

	if created, err := chestService.EnsureDefaultChests(ctx); err != nil {
		zapLogger.Error("Failed to seed default chests", zap.Error(err))
	} else if created > 0 {
		zapLogger.Info("Default chests created", zap.Int("created", created))
	}
	prepareCalendar(ctx, calendarService, cfg.Rewards)

	telegramAuth := auth.NewTelegramAuth(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)
	if cfg.TelegramAuth.DebugMode {
		zapLogger.Warn("Telegram init data validation is disabled")
	}

	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, userService, telegramAuth, photos)
	api.NewCalendarRoutes(a, calendarService, telegramAuth)
	api.NewQuestRoutes(a, questService, telegramAuth)
	api.NewGemRoutes(a, gemService, telegramAuth)
	api.NewChestRoutes(a, chestService, telegramAuth)
	api.NewNotificationRoutes(a, hub, telegramAuth)
	api.NewAdminRoutes(a, api.AdminServices{
		Calendar: calendarService,
		Quests:   questService,
		Chests:   chestService,
		Gems:     gemService,
	}, telegramAuth, middleware.NewAuthorization(userService))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown failed", zap.Error(err))
	}
}

// prepareCalendar makes sure the claimable days and the configured lead after
// today exist. Existing days are left untouched.
func prepareCalendar(ctx context.Context, cs service.CalendarServiceI, cfg RewardsConfig) {
	zapLogger := logger.Logger()

	grace := max(cfg.ClaimGraceDays, 0)
	lead := max(cfg.CalendarLeadDays, 0)
	if limit := cfg.CalendarMaxRangeDays - 1 - grace; limit >= 0 && lead > limit {
		lead = limit
	}

	today := model.DateKey(time.Now())
	created, err := cs.InitializeCalendarPeriod(ctx, today.AddDate(0, 0, -grace), today.AddDate(0, 0, lead))
	if err != nil {
		zapLogger.Error("Failed to prepare calendar", zap.Error(err))
		return
	}
	zapLogger.Info("Calendar prepared", zap.Int64("created", created), zap.Int("lead_days", lead))
}
