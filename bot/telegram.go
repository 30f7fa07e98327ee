package bot

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM BOT - Order notifications & status
// ═══════════════════════════════════════════════════════════════════════════════
//
// Features:
//   ✅ Order placed alerts
//   ❌ Order failure alerts
//   🎛️ Commands (/status, /help)
//
// ═══════════════════════════════════════════════════════════════════════════════

// OrderNotice describes a placed order
type OrderNotice struct {
	OrderID   string
	Status    string
	TokenID   string
	Side      string
	OrderType string
	Price     decimal.Decimal
	Size      decimal.Decimal
}

// Notifier receives trading events
type Notifier interface {
	NotifyOrder(n OrderNotice)
	NotifyOrderFailed(kind, message string)
}

// Nop discards every notification
type Nop struct{}

func (Nop) NotifyOrder(OrderNotice)          {}
func (Nop) NotifyOrderFailed(string, string) {}

// sender is the subset of the bot API used here
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBot sends notifications to one chat
type TelegramBot struct {
	mu      sync.Mutex
	api     sender
	updates func() tgbotapi.UpdatesChannel
	chatID  int64
	running bool
	stopCh  chan struct{}
	started time.Time

	placed atomic.Int64
	failed atomic.Int64

	// tradingReady reports whether orders can be placed
	tradingReady func() bool
}

// NewTelegramBot connects to the bot API
func NewTelegramBot(token string, chatID int64, tradingReady func() bool) (*TelegramBot, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID not set")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := newBot(api, chatID, tradingReady)
	b.updates = func() tgbotapi.UpdatesChannel {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 30
		return api.GetUpdatesChan(u)
	}

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot initialized")
	return b, nil
}

func newBot(api sender, chatID int64, tradingReady func() bool) *TelegramBot {
	if tradingReady == nil {
		tradingReady = func() bool { return false }
	}
	return &TelegramBot{
		api:          api,
		chatID:       chatID,
		stopCh:       make(chan struct{}),
		started:      time.Now(),
		tradingReady: tradingReady,
	}
}

// Start begins listening for commands
func (b *TelegramBot) Start() {
	b.mu.Lock()
	if b.running || b.updates == nil {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	go b.commandLoop(b.updates())
	log.Info().Msg("📱 Telegram bot started")
}

// Stop stops the bot
func (b *TelegramBot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}

	b.running = false
	close(b.stopCh)
	log.Info().Msg("Telegram bot stopped")
}

// ═══════════════════════════════════════════════════════════════════════════════
// NOTIFICATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// NotifyOrder sends an order placed alert
func (b *TelegramBot) NotifyOrder(n OrderNotice) {
	b.placed.Add(1)

	emoji := "🟢"
	if n.Side == "SELL" {
		emoji = "🔴"
	}

	msg := fmt.Sprintf(`✅ *ORDER PLACED*

%s %s %s
━━━━━━━━━━━━━━━━
💵 Price: *%s¢*
📦 Size: *%s*
🆔 %s (%s)
🎟️ Token: %s`,
		emoji, n.Side, n.OrderType,
		n.Price.Mul(decimal.NewFromInt(100)).StringFixed(1),
		n.Size.StringFixed(2),
		escape(n.OrderID), escape(n.Status),
		escape(shortToken(n.TokenID)),
	)

	b.sendMarkdown(msg)
}

// NotifyOrderFailed sends an order failure alert
func (b *TelegramBot) NotifyOrderFailed(kind, message string) {
	b.failed.Add(1)
	b.sendMarkdown(fmt.Sprintf("❌ *ORDER FAILED* (%s)\n\n%s", escape(kind), escape(message)))
}

// ═══════════════════════════════════════════════════════════════════════════════
// COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func (b *TelegramBot) commandLoop(updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-b.stopCh:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			// Only respond to authorized chat
			if update.Message.Chat.ID != b.chatID {
				continue
			}
			b.handleCommand(update.Message.Command())
		}
	}
}

func (b *TelegramBot) handleCommand(cmd string) {
	switch cmd {
	case "status":
		b.sendMarkdown(b.statusText())
	case "help", "start":
		b.sendMarkdown("🤖 *Commands*\n\n/status - trading state and order counts\n/help - this message")
	default:
		b.send("Unknown command. Try /help")
	}
}

func (b *TelegramBot) statusText() string {
	trading := "🔴 disabled (missing credentials)"
	if b.tradingReady() {
		trading = "🟢 enabled"
	}
	return fmt.Sprintf(`📊 *STATUS*

Trading: %s
Orders placed: *%d*
Orders failed: *%d*
Uptime: %s`,
		trading,
		b.placed.Load(),
		b.failed.Load(),
		time.Since(b.started).Truncate(time.Second),
	)
}

func (b *TelegramBot) send(text string) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("Failed to send Telegram message")
	}
}

func (b *TelegramBot) sendMarkdown(text string) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("Failed to send Telegram message")
	}
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func shortToken(tokenID string) string {
	if len(tokenID) > 12 {
		return tokenID[:6] + "…" + tokenID[len(tokenID)-6:]
	}
	return tokenID
}
