package service

import (
	"turtle-trading/config"
	"turtle-trading/internal/repository"
	"turtle-trading/pkg/logger"
	"turtle-trading/pkg/telegram"
)

type Service struct {
	BacktestService  BacktestService
	SignalService    SignalService
	TraderService    TraderService
	SchedulerService SchedulerService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	notifier *telegram.Notifier,
) *Service {
	backtestService := NewBacktestService(cfg, log, repo.MarketDataRepo)
	traderService := NewTraderService(cfg, log, repo.BrokerRepo, repo.OrderLogRepo, repo.PositionRepo)
	signalService := NewSignalService(cfg, log, repo.MarketDataRepo, repo.PositionRepo, notifier)
	schedulerService := NewSchedulerService(cfg, log, signalService, traderService, notifier)

	return &Service{
		BacktestService:  backtestService,
		SignalService:    signalService,
		TraderService:    traderService,
		SchedulerService: schedulerService,
	}
}
