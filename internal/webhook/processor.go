// Package webhook reconciles orders with the payment events Snippe posts back.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"snippepay/internal/metrics"
	"snippepay/internal/models"
	"snippepay/internal/payment"
	"snippepay/internal/repository"
)

// Event types sent by the processor.
const (
	EventCompleted = "payment.completed"
	EventFailed    = "payment.failed"
	EventExpired   = "payment.expired"
	EventVoided    = "payment.voided"
)

// maxAttempts bounds the reload-and-retry loop on concurrent order updates.
const maxAttempts = 3

// Response is the plain text reply to a delivery.
type Response struct {
	Status int
	Body   string
}

// Notifier is told about orders this package moved to paid or failed.
type Notifier interface {
	PaymentSettled(ctx context.Context, order *models.Order, eventType, detail string)
}

// Processor verifies deliveries and applies them to orders.
type Processor struct {
	orders   repository.OrderRepository
	secret   string
	log      *zap.Logger
	notifier Notifier
}

// NewProcessor builds a processor. An empty secret disables signature checks.
func NewProcessor(orders repository.OrderRepository, secret string, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{orders: orders, secret: secret, log: log}
}

// WithNotifier sets the optional payment reporter.
func (p *Processor) WithNotifier(n Notifier) *Processor {
	p.notifier = n
	return p
}

func reply(status int, body string) Response {
	return Response{Status: status, Body: body}
}

// Handle runs one raw delivery through validation and dispatch.
func (p *Processor) Handle(ctx context.Context, raw []byte, header http.Header) Response {
	p.log.Info("Webhook received", zap.ByteString("payload", raw))

	resp, eventType := p.handle(ctx, raw, header)
	metrics.WebhookEvents.WithLabelValues(metricLabel(eventType), strconv.Itoa(resp.Status)).Inc()
	return resp
}

// metricLabel keeps sender controlled strings out of metric labels.
func metricLabel(eventType string) string {
	switch {
	case isKnown(eventType):
		return eventType
	case eventType == "":
		return "none"
	}
	return "other"
}

func (p *Processor) handle(ctx context.Context, raw []byte, header http.Header) (Response, string) {
	contentType := header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		p.log.Warn("Invalid content type", zap.String("content_type", contentType))
		return reply(http.StatusBadRequest, "Invalid content type"), ""
	}

	ev, err := ParseEvent(raw)
	if err != nil {
		p.log.Warn("Invalid JSON payload", zap.Error(err))
		return reply(http.StatusBadRequest, "Invalid JSON"), ""
	}

	signature := header.Get(payment.SignatureHeader)
	switch {
	case p.secret == "":
		p.log.Warn("Webhook secret not configured, signature not verified")
	case signature == "":
		p.log.Warn("Webhook delivered without signature, accepted unverified")
	case !payment.VerifySignature(raw, signature, p.secret):
		p.log.Warn("Invalid webhook signature")
		return reply(http.StatusUnauthorized, "Invalid signature"), ev.Type
	}

	if ev.Type == "" {
		p.log.Warn("Missing event type")
		return reply(http.StatusBadRequest, "Missing event type"), ""
	}
	p.log.Info("Event type", zap.String("type", ev.Type))

	if isKnown(ev.Type) && ev.Data.Reference == "" {
		p.log.Warn("Missing payment reference", zap.String("type", ev.Type))
		return reply(http.StatusBadRequest, "Missing payment reference"), ev.Type
	}

	if err := p.Apply(ctx, ev); err != nil {
		p.log.Error("Error processing webhook",
			zap.String("type", ev.Type),
			zap.String("reference", ev.Data.Reference),
			zap.Error(err),
		)
		return reply(http.StatusInternalServerError, "Error processing webhook"), ev.Type
	}
	return reply(http.StatusOK, "OK"), ev.Type
}

func isKnown(eventType string) bool {
	switch eventType {
	case EventCompleted, EventFailed, EventExpired, EventVoided:
		return true
	}
	return false
}

// Apply moves the referenced order according to ev. It trusts ev: callers
// either verified the signature or fetched the data from the API. Concurrent
// updates are retried against a fresh copy of the order.
func (p *Processor) Apply(ctx context.Context, ev Event) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = p.apply(ctx, ev)
		if !errors.Is(err, repository.ErrStaleOrder) {
			return err
		}
		p.log.Warn("Order changed during update, retrying",
			zap.String("reference", ev.Data.Reference),
			zap.Int("attempt", attempt),
		)
	}
	return fmt.Errorf("apply %s after %d attempts: %w", ev.Type, maxAttempts, err)
}

func (p *Processor) apply(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventCompleted:
		return p.completed(ctx, ev.Data)
	case EventFailed:
		reason := ev.Data.FailureReason
		if reason == "" {
			reason = "Unknown reason"
		}
		return p.transition(ctx, ev, models.StatusFailed, "Snippe payment failed. Reason: "+reason)
	case EventExpired:
		return p.transition(ctx, ev, models.StatusCancelled, "Snippe payment expired.")
	case EventVoided:
		return p.transition(ctx, ev, models.StatusCancelled, "Snippe payment was voided/cancelled.")
	default:
		p.log.Info("Unhandled event type", zap.String("type", ev.Type))
		return nil
	}
}

func (p *Processor) findOrder(ctx context.Context, ref string) (*models.Order, error) {
	orders, err := p.orders.FindByPaymentReference(ctx, ref, 2)
	if err != nil {
		return nil, fmt.Errorf("find order by reference %s: %w", ref, err)
	}
	if len(orders) == 0 {
		p.log.Warn("Order not found for payment reference", zap.String("reference", ref))
		return nil, nil
	}
	if len(orders) > 1 {
		p.log.Error("Payment reference attached to more than one order",
			zap.String("reference", ref),
			zap.Uint("first_order_id", orders[0].ID),
			zap.Uint("second_order_id", orders[1].ID),
		)
	}
	return orders[0], nil
}

func (p *Processor) completed(ctx context.Context, d payment.PaymentData) error {
	ref := d.Reference
	p.log.Info("Processing payment.completed", zap.String("reference", ref))

	order, err := p.findOrder(ctx, ref)
	if err != nil || order == nil {
		return err
	}
	log := p.log.With(zap.Uint("order_id", order.ID), zap.String("reference", ref))
	log.Info("Found order", zap.String("status", order.Status))

	if order.IsPaid() {
		log.Info("Order already marked as paid")
		return nil
	}
	if order.IsTerminal() {
		log.Error("Payment completed for an order in a final status, needs manual review",
			zap.String("status", order.Status))
		return nil
	}

	note := "Snippe payment completed. Reference: " + ref
	if d.ExternalReference != "" {
		order.UpdateMeta(models.MetaExternalReference, d.ExternalReference)
		note += " | External Reference: " + d.ExternalReference
	}
	if s := d.Settlement; s != nil {
		if summary := settlementSummary(order, s); summary != "" {
			note += " | Settlement: " + summary
		}
	}
	if c := d.Channel; c != nil {
		order.UpdateMeta(models.MetaChannelType, c.Type)
		order.UpdateMeta(models.MetaChannelProvider, c.Provider)
	}
	order.AddNote(note)

	now := time.Now()
	order.TransactionID = ref
	order.DatePaid = &now

	status := models.StatusProcessing
	if order.HasOnlyDownloadableItems() {
		status = models.StatusCompleted
	}
	order.UpdateStatus(status, "Payment received via Snippe.")

	if err := p.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("save order %d: %w", order.ID, err)
	}
	log.Info("Payment completed", zap.String("status", order.Status))
	p.notify(ctx, order, EventCompleted, ref)
	return nil
}

// settlementSummary stores the settlement amounts on order and returns the
// note fragment describing them.
func settlementSummary(order *models.Order, s *payment.Settlement) string {
	var (
		parts    []string
		currency string
	)
	add := func(label, key string, m *payment.Money) {
		if m == nil {
			return
		}
		order.UpdateMeta(key, m.String())
		parts = append(parts, label+" "+m.String())
		if currency == "" {
			currency = m.Currency
		}
	}
	add("gross", models.MetaSettlementGross, s.Gross)
	add("fees", models.MetaSettlementFees, s.Fees)
	add("net", models.MetaSettlementNet, s.Net)

	summary := strings.Join(parts, ", ")
	if summary != "" && currency != "" {
		summary += " " + currency
	}
	return summary
}

func (p *Processor) transition(ctx context.Context, ev Event, status, note string) error {
	ref := ev.Data.Reference
	p.log.Info("Processing "+ev.Type, zap.String("reference", ref))

	order, err := p.findOrder(ctx, ref)
	if err != nil || order == nil {
		return err
	}
	log := p.log.With(zap.Uint("order_id", order.ID), zap.String("reference", ref))

	if order.IsTerminal() {
		log.Info("Order already in a final status, event ignored",
			zap.String("status", order.Status),
			zap.String("type", ev.Type),
		)
		return nil
	}

	order.UpdateStatus(status, note)
	if err := p.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("save order %d: %w", order.ID, err)
	}
	log.Info("Order updated", zap.String("type", ev.Type), zap.String("status", status))
	if status == models.StatusFailed {
		p.notify(ctx, order, ev.Type, ev.Data.FailureReason)
	}
	return nil
}

func (p *Processor) notify(ctx context.Context, order *models.Order, eventType, detail string) {
	if p.notifier != nil {
		p.notifier.PaymentSettled(ctx, order, eventType, detail)
	}
}
