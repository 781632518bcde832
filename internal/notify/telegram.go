// Package notify reports payment outcomes to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"snippepay/internal/models"
	"snippepay/internal/pkg/utils"
)

// Sender is the telebot method the reporter uses.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramReporter posts a message to the report chat when an order is paid
// or its payment fails. Sends run in the background so webhook replies are
// not held up by Telegram.
type TelegramReporter struct {
	bot    Sender
	chat   tele.ChatID
	logger *zap.Logger
}

// NewTelegramReporter builds a reporter from a bot token. The bot is created
// offline; no updates are polled.
func NewTelegramReporter(token string, chatID int64, logger *zap.Logger) (*TelegramReporter, error) {
	tb, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: true,
		OnError: func(err error, _ tele.Context) {
			logger.Error("telebot error", zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telebot: %w", err)
	}
	return NewReporter(tb, chatID, logger), nil
}

// NewReporter wraps an existing sender.
func NewReporter(bot Sender, chatID int64, logger *zap.Logger) *TelegramReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramReporter{bot: bot, chat: tele.ChatID(chatID), logger: logger}
}

// PaymentSettled sends the report for eventType. detail is the payment
// reference for completions and the failure reason for failures.
func (r *TelegramReporter) PaymentSettled(_ context.Context, order *models.Order, eventType, detail string) {
	text := FormatReport(order, eventType, detail)
	if text == "" {
		return
	}
	go r.send(order.ID, text)
}

func (r *TelegramReporter) send(orderID uint, text string) {
	if _, err := r.bot.Send(r.chat, text, tele.ModeHTML); err != nil {
		r.logger.Warn("Failed to send payment report", zap.Uint("order_id", orderID), zap.Error(err))
	}
}

// FormatReport renders the chat message for an order event.
func FormatReport(order *models.Order, eventType, detail string) string {
	var b strings.Builder
	switch eventType {
	case "payment.completed":
		b.WriteString("💵 <b>Snippe payment received</b>\n\n")
	case "payment.failed":
		b.WriteString("❌ <b>Snippe payment failed</b>\n\n")
	default:
		return ""
	}

	number := order.OrderNumber
	if number == "" {
		number = fmt.Sprintf("%d", order.ID)
	}
	fmt.Fprintf(&b, "Order: #%s\n", html.EscapeString(number))
	fmt.Fprintf(&b, "Amount: %s\n", html.EscapeString(utils.FormatAmount(order.Total, order.Currency)))
	if name := strings.TrimSpace(order.BillingFirstName + " " + order.BillingLastName); name != "" {
		fmt.Fprintf(&b, "Customer: %s\n", html.EscapeString(name))
	}
	fmt.Fprintf(&b, "Reference: <code>%s</code>\n", html.EscapeString(order.Reference()))
	if provider := order.GetMeta(models.MetaChannelProvider); provider != "" {
		fmt.Fprintf(&b, "Channel: %s\n", html.EscapeString(provider))
	}
	if eventType == "payment.failed" {
		if detail == "" {
			detail = "Unknown reason"
		}
		fmt.Fprintf(&b, "Reason: %s\n", html.EscapeString(detail))
	}
	fmt.Fprintf(&b, "Status: %s", order.Status)
	return b.String()
}
