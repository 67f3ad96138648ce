package telegram

import (
	"context"
	"fmt"
	"strings"

	"turtle-trading/config"
	"turtle-trading/internal/service"
	"turtle-trading/pkg/logger"
	"turtle-trading/pkg/telegram"

	"gopkg.in/telebot.v3"
)

// TelegramBotHandler exposes the live pipeline over bot commands.
type TelegramBotHandler struct {
	ctx      context.Context
	cfg      *config.Config
	log      *logger.Logger
	bot      *telebot.Bot
	notifier *telegram.Notifier
	service  *service.Service
}

func NewTelegramBotHandler(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	bot *telebot.Bot,
	notifier *telegram.Notifier,
	service *service.Service,
) *TelegramBotHandler {
	return &TelegramBotHandler{
		ctx:      ctx,
		cfg:      cfg,
		log:      log,
		bot:      bot,
		notifier: notifier,
		service:  service,
	}
}

func (h *TelegramBotHandler) Start() {
	h.bot.Handle("/signals", h.handleSignals)
	h.bot.Handle("/positions", h.handlePositions)
	h.bot.Handle("/risk", h.handleRisk)

	h.log.Info("Telegram bot starting")
	h.bot.Start()
}

func (h *TelegramBotHandler) Stop() {
	h.bot.Stop()
}

func (h *TelegramBotHandler) handleSignals(c telebot.Context) error {
	runCtx, cancel := context.WithTimeout(h.ctx, h.cfg.Scheduler.TimeoutDuration)
	defer cancel()

	result, err := h.service.SignalService.CheckSignals(runCtx)
	if err != nil {
		h.log.ErrorContext(runCtx, "Signal check via bot failed", logger.ErrorField(err))
		return h.notifier.Reply(runCtx, c, "Signal check failed")
	}

	total := len(result.Entries) + len(result.Exits) + len(result.Pyramids)
	if total == 0 {
		return h.notifier.Reply(runCtx, c, "No signals today")
	}
	return h.notifier.Reply(runCtx, c, fmt.Sprintf("%d signals found, alert sent", total))
}

func (h *TelegramBotHandler) handlePositions(c telebot.Context) error {
	runCtx, cancel := context.WithTimeout(h.ctx, h.cfg.Telegram.TimeoutDuration)
	defer cancel()

	positions, err := h.service.SignalService.GetOpenPositions(runCtx)
	if err != nil {
		return h.notifier.Reply(runCtx, c, "Failed to load positions")
	}
	if len(positions) == 0 {
		return h.notifier.Reply(runCtx, c, "No open positions")
	}

	var sb strings.Builder
	sb.WriteString("<b>Open positions</b>\n")
	for _, p := range positions {
		sb.WriteString(fmt.Sprintf("%s %s S%d units=%d/%d stop=%.2f\n",
			p.Symbol, p.Direction, p.System, p.Units, p.MaxUnits, p.StopLoss))
	}
	return h.notifier.Reply(runCtx, c, sb.String(), telebot.ModeHTML)
}

func (h *TelegramBotHandler) handleRisk(c telebot.Context) error {
	runCtx, cancel := context.WithTimeout(h.ctx, h.cfg.Telegram.TimeoutDuration)
	defer cancel()

	summary, err := h.service.SignalService.GetRiskSummary(runCtx)
	if err != nil {
		return h.notifier.Reply(runCtx, c, "Failed to build risk summary")
	}
	return h.notifier.Reply(runCtx, c, fmt.Sprintf(
		"Long units: %d\nShort units: %d\nTotal N exposure: %.2f\nPositions: %d",
		summary.LongUnits, summary.ShortUnits, summary.TotalNExposure, summary.PositionsCount))
}
