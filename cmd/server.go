package cmd

import (
	"context"
	"log"
	httpNet "net/http"
	"os"
	"os/signal"
	"syscall"

	"turtle-trading/internal/delivery/http"
	"turtle-trading/internal/delivery/telegram"
	"turtle-trading/internal/repository"
	"turtle-trading/internal/service"
	"turtle-trading/pkg/utils"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the API server, scheduler, and telegram bot",
	Run:   Start,
}

func Start(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}

	repo := repository.NewRepository(appDep.cfg, appDep.cache, appDep.db.DB, appDep.log)

	services := service.NewService(
		appDep.cfg,
		appDep.log,
		repo,
		appDep.notifier,
	)

	httpHandler := http.NewHttpAPIHandler(appDep.echo, appDep.validator, services)

	apiServer := NewHTTPServer(ctx, appDep, httpHandler)
	go func() {
		if err := apiServer.Start(); err != nil && err != httpNet.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	if err := services.SchedulerService.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	var telegramHandler *telegram.TelegramBotHandler
	if appDep.telegramBot != nil {
		telegramHandler = telegram.NewTelegramBotHandler(
			ctx,
			appDep.cfg,
			appDep.log,
			appDep.telegramBot,
			appDep.notifier,
			services,
		)
		utils.GoSafe(func() {
			telegramHandler.Start()
		})
	}

	<-ctx.Done()
	log.Println("Shutting down gracefully...")

	services.SchedulerService.Stop()

	if telegramHandler != nil {
		telegramHandler.Stop()
	}

	if err := apiServer.Stop(); err != nil {
		log.Fatalf("Failed to stop HTTP server: %v", err)
	}

	if err := appDep.Close(); err != nil {
		log.Fatalf("Failed to close app dependency: %v", err)
	}
}
