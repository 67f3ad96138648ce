package service

import (
	"context"
	"fmt"

	"turtle-trading/config"
	"turtle-trading/pkg/logger"
	"turtle-trading/pkg/telegram"

	"github.com/robfig/cron/v3"
)

// SchedulerService runs the daily signal check on a cron schedule.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop()
}

type schedulerService struct {
	cfg           *config.Config
	log           *logger.Logger
	signalService SignalService
	traderService TraderService
	notifier      *telegram.Notifier
	cron          *cron.Cron
}

func NewSchedulerService(cfg *config.Config, log *logger.Logger, signalService SignalService, traderService TraderService, notifier *telegram.Notifier) SchedulerService {
	return &schedulerService{
		cfg:           cfg,
		log:           log,
		signalService: signalService,
		traderService: traderService,
		notifier:      notifier,
		cron:          cron.New(),
	}
}

func (s *schedulerService) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.Scheduler.SignalCheckCron, func() {
		runCtx, cancel := context.WithTimeout(ctx, s.cfg.Scheduler.TimeoutDuration)
		defer cancel()

		s.log.InfoContext(runCtx, "Scheduled signal check starting")
		result, err := s.signalService.CheckSignals(runCtx)
		if err != nil {
			s.log.ErrorContext(runCtx, "Scheduled signal check failed", logger.ErrorField(err))
			if s.notifier != nil {
				_ = s.notifier.Send(runCtx, fmt.Sprintf("Signal check failed: %v", err))
			}
			return
		}

		if s.cfg.KIS.AutoTrade {
			if err := s.traderService.ExecuteSignals(runCtx, result); err != nil {
				s.log.ErrorContext(runCtx, "Auto-trade pass failed", logger.ErrorField(err))
			}
		}
	})
	if err != nil {
		return fmt.Errorf("invalid signal check cron %q: %w", s.cfg.Scheduler.SignalCheckCron, err)
	}

	s.cron.Start()
	s.log.Info("Scheduler started", logger.StringField("cron", s.cfg.Scheduler.SignalCheckCron))
	return nil
}

func (s *schedulerService) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info("Scheduler stopped")
}
