package bot

import (
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		r.sent = append(r.sent, msg)
	}
	return tgbotapi.Message{}, r.err
}

func TestNotifyOrder(t *testing.T) {
	rec := &recordingSender{}
	b := newBot(rec, 42, nil)

	b.NotifyOrder(OrderNotice{
		OrderID:   "0xabc_def",
		Status:    "live",
		TokenID:   "71321045679252212594626385532706912750332728571942532289631379312455583992563",
		Side:      "BUY",
		OrderType: "GTC",
		Price:     decimal.RequireFromString("0.55"),
		Size:      decimal.NewFromInt(10),
	})

	if len(rec.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(rec.sent))
	}
	msg := rec.sent[0]
	if msg.ChatID != 42 || msg.ParseMode != "Markdown" {
		t.Errorf("msg = chat %d mode %q", msg.ChatID, msg.ParseMode)
	}
	for _, want := range []string{"ORDER PLACED", "55.0¢", "10.00", `0xabc\_def`, "BUY GTC"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("text missing %q:\n%s", want, msg.Text)
		}
	}
}

func TestStatusCounts(t *testing.T) {
	rec := &recordingSender{err: errors.New("telegram down")}
	b := newBot(rec, 1, func() bool { return true })

	b.NotifyOrder(OrderNotice{Side: "SELL"})
	b.NotifyOrderFailed("INSUFFICIENT_FUNDS", "Insufficient funds to place order")
	b.NotifyOrderFailed("UNKNOWN_ERROR", "boom")

	text := b.statusText()
	for _, want := range []string{"🟢 enabled", "Orders placed: *1*", "Orders failed: *2*"} {
		if !strings.Contains(text, want) {
			t.Errorf("status missing %q:\n%s", want, text)
		}
	}
}

func TestHandleCommand(t *testing.T) {
	rec := &recordingSender{}
	b := newBot(rec, 7, nil)

	b.handleCommand("status")
	b.handleCommand("help")
	b.handleCommand("pause")

	if len(rec.sent) != 3 {
		t.Fatalf("sent %d messages", len(rec.sent))
	}
	if !strings.Contains(rec.sent[0].Text, "disabled") {
		t.Errorf("status without trading = %q", rec.sent[0].Text)
	}
	if !strings.Contains(rec.sent[2].Text, "Unknown command") {
		t.Errorf("unknown reply = %q", rec.sent[2].Text)
	}
}

func TestNopNotifier(t *testing.T) {
	var n Notifier = Nop{}
	n.NotifyOrder(OrderNotice{})
	n.NotifyOrderFailed("x", "y")
}
