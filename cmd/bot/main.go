package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/TwinBot/internal/config"
	"github.com/digkill/TwinBot/internal/database"
	"github.com/digkill/TwinBot/internal/llm"
	"github.com/digkill/TwinBot/internal/observability"
	"github.com/digkill/TwinBot/internal/repository"
	"github.com/digkill/TwinBot/internal/server"
	"github.com/digkill/TwinBot/internal/service"
	"github.com/digkill/TwinBot/internal/telegram"
	"github.com/digkill/TwinBot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		users    service.UserStore
		memories service.MemoryStore
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connect: %v", err)
		}
		defer pool.Close()
		if err := database.MigratePostgres(ctx, pool); err != nil {
			log.Fatalf("database migrate: %v", err)
		}
		users = repository.NewPostgresUserRepository(pool)
		memories = repository.NewPostgresMemoryRepository(pool)
	case config.StoreDriverMySQL:
		db, err := database.ConnectMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("database connect: %v", err)
		}
		defer db.Close()
		if err := database.MigrateMySQL(ctx, db); err != nil {
			log.Fatalf("database migrate: %v", err)
		}
		users = repository.NewUserRepository(db)
		memories = repository.NewMemoryRepository(db)
	case config.StoreDriverSQLite:
		db, err := database.ConnectSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			log.Fatalf("database connect: %v", err)
		}
		defer db.Close()
		if err := database.MigrateSQLite(ctx, db); err != nil {
			log.Fatalf("database migrate: %v", err)
		}
		users = repository.NewSQLiteUserRepository(db)
		memories = repository.NewSQLiteMemoryRepository(db)
	default:
		logr.Warn("using in-process store, data is lost on restart")
		users = repository.NewLocalUserRepository()
		memories = repository.NewLocalMemoryRepository()
	}
	if cfg.SupabaseKey != "" {
		logr.Debug("SUPABASE_KEY is set but unused; the store connects over SUPABASE_DB_URL")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	completions := llm.NewClient(cfg, logr)

	userService := service.NewUserService(users, logr, metrics)
	memoryService := service.NewMemoryService(memories, cfg.MemoryCapChars, cfg.PromptTailChars, logr, metrics)
	limits := service.Limits{WarnAt: cfg.FreeWarnAt, BlockAt: cfg.FreeLimit}
	chatService := service.NewChatService(userService, memoryService, completions, limits, logr, metrics)

	bot := telegram.NewBot(cfg, botAPI, logr, chatService, userService, metrics)
	if cfg.WebhookURL != "" {
		if err := bot.RegisterWebhook(cfg.WebhookURL); err != nil {
			log.Fatalf("register webhook: %v", err)
		}
	}

	srv := server.NewServer(cfg, logr, bot, userService, metrics.Handler())
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("http server stopped", "err", err)
	}
}
