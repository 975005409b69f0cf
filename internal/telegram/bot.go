package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/digkill/TwinBot/internal/config"
	"github.com/digkill/TwinBot/internal/observability"
	"github.com/digkill/TwinBot/internal/service"
)

const (
	warnFormat   = "Bhai %d messages ho gaye! 🔥"
	upsellText   = "Bas kar bhai! Unlimited chahiye?\n₹99/week (7 din FREE trial)"
	upsellButton = "₹99/week – 7 Days FREE"
)

// Non-text messages (voice notes, stickers) still count as a turn.
const nonTextPlaceholder = "voice"

// API is the subset of *tgbotapi.BotAPI the bot needs.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	cfg     config.Config
	api     API
	log     *slog.Logger
	chat    *service.ChatService
	users   *service.UserService
	metrics *observability.Metrics
}

func NewBot(cfg config.Config, api API, log *slog.Logger, chat *service.ChatService, users *service.UserService, metrics *observability.Metrics) *Bot {
	return &Bot{
		cfg:     cfg,
		api:     api,
		log:     log,
		chat:    chat,
		users:   users,
		metrics: metrics,
	}
}

// RegisterWebhook points Telegram at url so updates arrive as POST requests.
func (b *Bot) RegisterWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	b.log.Info("telegram webhook registered", "url", url)
	return nil
}

// HandleUpdate processes one inbound update. Failures are logged and the
// user gets no reply.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		b.countUpdate("ignored")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	b.countUpdate("message")
	b.handleMessage(ctx, msg)
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.countUpdate("start")
		text := fmt.Sprintf("Arre bhai! Main tera Twin hoon 😎\nJo bolega bilkul waise hi bolunga!\nPehle %d messages FREE 🔥", b.cfg.FreeLimit)
		b.sendText(msg.Chat.ID, text)
	default:
		b.countUpdate("ignored")
		b.log.Debug("ignoring command", "command", msg.Command(), "user_id", msg.From.ID)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := msg.Text
	if text == "" {
		text = nonTextPlaceholder
	}
	turnID := uuid.NewString()
	log := b.log.With("turn_id", turnID, "user_id", msg.From.ID)

	res, err := b.chat.HandleTurn(ctx, service.Turn{UserID: msg.From.ID, Text: text})
	if err != nil {
		log.Error("turn failed", "err", err)
		b.countTurn("error", "failed")
		return
	}

	switch res.Decision {
	case service.DecisionWarn:
		b.sendText(msg.Chat.ID, fmt.Sprintf(warnFormat, res.MessagesUsed))
	case service.DecisionBlock:
		b.sendUpsell(msg.Chat.ID)
	default:
		b.sendText(msg.Chat.ID, res.Reply)
	}
	b.countTurn(string(res.Decision), "ok")
	log.Info("turn done", "decision", res.Decision, "messages_used", res.MessagesUsed, "paid", res.Paid)
}

func (b *Bot) sendUpsell(chatID int64) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(upsellButton, b.cfg.UpsellLink),
		),
	)
	msg := tgbotapi.NewMessage(chatID, upsellText)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send upsell", "err", err)
	}
}

// Broadcast sends text to every known user and returns the delivered and total counts.
func (b *Bot) Broadcast(ctx context.Context, text string) (int, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, 0, fmt.Errorf("message required")
	}
	ids, err := b.users.ListUserIDs(ctx)
	if err != nil {
		return 0, 0, err
	}

	count := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if _, err := b.api.Send(tgbotapi.NewMessage(id, text)); err != nil {
			b.log.Error("send broadcast", "user_id", id, "err", err)
			continue
		}
		count++
	}
	return count, len(ids), nil
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send text", "err", err)
	}
}

func (b *Bot) countUpdate(kind string) {
	if b.metrics != nil {
		b.metrics.WebhookUpdates.WithLabelValues(kind).Inc()
	}
}

func (b *Bot) countTurn(decision, result string) {
	if b.metrics != nil {
		b.metrics.Turns.WithLabelValues(decision, result).Inc()
	}
}
