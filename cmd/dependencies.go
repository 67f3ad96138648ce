package cmd

import (
	"context"
	"time"

	"turtle-trading/config"
	"turtle-trading/pkg/cache"
	"turtle-trading/pkg/logger"
	"turtle-trading/pkg/postgres"
	"turtle-trading/pkg/telegram"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gopkg.in/telebot.v3"
)

type AppDependency struct {
	db          *postgres.DB
	cfg         *config.Config
	log         *logger.Logger
	validator   *goValidator.Validate
	echo        *echo.Echo
	cache       cache.Cache
	notifier    *telegram.Notifier
	telegramBot *telebot.Bot
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	var bot *telebot.Bot
	var notifier *telegram.Notifier
	if cfg.Telegram.BotToken != "" {
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.Telegram.BotToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				log.Error("Telegram bot error", zap.Error(err))
			},
		})
		if err != nil {
			log.Error("Failed to create telegram bot", zap.Error(err))
			return nil, err
		}
		notifier = telegram.NewNotifier(&cfg.Telegram, log, bot)
	}

	return &AppDependency{
		cfg:         cfg,
		log:         log,
		validator:   goValidator.New(),
		db:          db,
		echo:        echo.New(),
		cache:       cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		notifier:    notifier,
		telegramBot: bot,
	}, nil
}

// NewAppDependencyLite builds only config, logging, and the in-memory cache.
// Used by one-shot commands that never touch the database or telegram.
func NewAppDependencyLite(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	return &AppDependency{
		cfg:   cfg,
		log:   log,
		cache: cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
	}, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
