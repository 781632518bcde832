package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"snippepay/internal/config"
	"snippepay/internal/metrics"
	"snippepay/internal/payment"
	"snippepay/internal/repository"
	"snippepay/internal/webhook"
)

// StatusAPI looks up a payment at the processor.
type StatusAPI interface {
	GetPaymentStatus(ctx context.Context, reference string) (*payment.Response, error)
}

// EventApplier moves orders the same way a webhook delivery would.
type EventApplier interface {
	Apply(ctx context.Context, ev webhook.Event) error
}

// Scheduler runs the pending payment status sync.
type Scheduler struct {
	cron    *cron.Cron
	cfg     config.SyncConfig
	logger  *zap.Logger
	orders  repository.OrderRepository
	api     StatusAPI
	applier EventApplier
}

// New creates a new cron scheduler.
func New(cfg config.SyncConfig, orders repository.OrderRepository, api StatusAPI, applier EventApplier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		cfg:     cfg,
		logger:  logger,
		orders:  orders,
		api:     api,
		applier: applier,
	}
}

// Start registers the sync job and starts the scheduler. An empty schedule
// leaves it off.
func (s *Scheduler) Start() error {
	if s.cfg.Schedule == "" {
		s.logger.Info("Payment status sync disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.logger.Debug("Running: payment status sync")
		s.syncPendingPayments()
	})
	if err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.cfg.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Cron scheduler started", zap.String("schedule", s.cfg.Schedule))
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) syncPendingPayments() {
	defer s.recoverFromPanic("syncPendingPayments")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := s.SyncPending(ctx)
	if err != nil {
		s.logger.Error("Payment status sync failed", zap.Error(err))
		return
	}
	s.logger.Debug("Payment status sync completed", zap.Int("updated", n))
}

// SyncPending polls the processor for orders still awaiting payment and
// applies any final status it reports. It returns the number of orders
// an event was applied to.
func (s *Scheduler) SyncPending(ctx context.Context) (int, error) {
	olderThan := time.Now().Add(-s.cfg.MinAge)
	orders, err := s.orders.FindAwaitingPayment(ctx, olderThan, s.cfg.Batch)
	if err != nil {
		return 0, fmt.Errorf("find orders awaiting payment: %w", err)
	}

	applied := 0
	for _, order := range orders {
		if ctx.Err() != nil {
			return applied, ctx.Err()
		}
		ref := order.Reference()
		log := s.logger.With(zap.Uint("order_id", order.ID), zap.String("reference", ref))

		resp, err := s.api.GetPaymentStatus(ctx, ref)
		if err != nil {
			log.Debug("Snippe status request failed", zap.Error(err))
			continue
		}

		status := strings.ToLower(resp.Data.Status)
		metrics.SyncedOrders.WithLabelValues(statusLabel(status)).Inc()

		eventType := EventForStatus(status)
		if eventType == "" {
			continue
		}

		data := resp.Data
		if data.Reference == "" {
			data.Reference = ref
		}
		if err := s.applier.Apply(ctx, webhook.Event{Type: eventType, Data: data}); err != nil {
			log.Error("Failed to apply synced payment status", zap.String("status", status), zap.Error(err))
			continue
		}
		log.Info("Payment status synced", zap.String("status", status))
		applied++
	}
	return applied, nil
}

// EventForStatus maps a remote payment status to the webhook event that
// reports it. Non-final statuses map to "".
func EventForStatus(status string) string {
	switch status {
	case "completed", "successful", "success", "paid":
		return webhook.EventCompleted
	case "failed":
		return webhook.EventFailed
	case "expired":
		return webhook.EventExpired
	case "voided", "cancelled", "canceled":
		return webhook.EventVoided
	}
	return ""
}

func statusLabel(status string) string {
	if EventForStatus(status) != "" || status == "pending" {
		return status
	}
	return "other"
}

func (s *Scheduler) recoverFromPanic(jobName string) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", jobName), zap.Any("error", r))
	}
}
