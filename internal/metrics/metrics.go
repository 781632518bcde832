// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snippe_api_requests_total",
		Help: "Requests sent to the Snippe API by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	APIDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snippe_api_request_duration_seconds",
		Help:    "Latency of Snippe API requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snippe_webhook_events_total",
		Help: "Webhook deliveries by event type and HTTP status.",
	}, []string{"type", "status"})

	WebhookDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snippe_webhook_duplicates_total",
		Help: "Webhook deliveries dropped as duplicates.",
	})

	Checkouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snippe_checkouts_total",
		Help: "Checkout attempts by payment type and result.",
	}, []string{"payment_type", "result"})

	SyncedOrders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snippe_sync_orders_total",
		Help: "Orders examined by the status sync job by remote status.",
	}, []string{"status"})
)

// Outcome labels for APIRequests.
const (
	OutcomeOK      = "ok"
	OutcomeRemote  = "remote_error"
	OutcomeNetwork = "network_error"
)
