package telegram

import (
	"context"

	"turtle-trading/config"
	"turtle-trading/pkg/logger"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// Notifier sends alert messages to the configured chat, throttled by a
// global limiter so bursts of signals do not trip Telegram's flood control.
type Notifier struct {
	cfg           *config.TelegramConfig
	log           *logger.Logger
	bot           *telebot.Bot
	globalLimiter *rate.Limiter
}

func NewNotifier(cfg *config.TelegramConfig, log *logger.Logger, bot *telebot.Bot) *Notifier {
	return &Notifier{
		cfg:           cfg,
		log:           log,
		bot:           bot,
		globalLimiter: rate.NewLimiter(rate.Limit(cfg.MaxGlobalRequestPerSecond), cfg.MaxGlobalRequestPerSecond),
	}
}

// Send delivers a message to the default alert chat.
func (n *Notifier) Send(ctx context.Context, message string) error {
	return n.SendTo(ctx, n.cfg.ChatID, message)
}

// SendTo delivers a message to a specific chat.
func (n *Notifier) SendTo(ctx context.Context, chatID int64, message string) error {
	if err := n.globalLimiter.Wait(ctx); err != nil {
		return err
	}

	_, err := n.bot.Send(&telebot.Chat{ID: chatID}, message, &telebot.SendOptions{
		ParseMode: telebot.ModeHTML,
	})
	if err != nil {
		n.log.ErrorContext(ctx, "Failed to send telegram message", logger.ErrorField(err))
	}
	return err
}

// Reply answers an incoming bot update, respecting the global limiter.
func (n *Notifier) Reply(ctx context.Context, c telebot.Context, what interface{}, opts ...interface{}) error {
	if err := n.globalLimiter.Wait(ctx); err != nil {
		return err
	}
	return c.Send(what, opts...)
}
