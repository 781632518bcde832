package webhook

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"snippepay/internal/models"
	"snippepay/internal/payment"
	"snippepay/internal/repository"
)

const testSecret = "whsec_test"

func seedOrder(store *repository.MemoryStore, id uint, ref string, downloadable bool) {
	r := ref
	store.Put(&models.Order{
		ID:               id,
		Status:           models.StatusSnippePending,
		PaymentMethod:    payment.MethodID,
		PaymentReference: &r,
		Total:            decimal.NewFromInt(5000),
		Currency:         "TZS",
		Items:            []models.OrderItem{{ProductID: 10, Quantity: 1, Downloadable: downloadable}},
	})
}

func newTestProcessor(t *testing.T) (*Processor, *repository.MemoryStore, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	store := repository.NewMemoryStore()
	return NewProcessor(store, testSecret, zap.New(core)), store, logs
}

func signedHeader(body string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set(payment.SignatureHeader, payment.Sign([]byte(body), testSecret))
	return h
}

func deliver(p *Processor, body string) Response {
	return p.Handle(context.Background(), []byte(body), signedHeader(body))
}

func getOrder(t *testing.T, store *repository.MemoryStore, id uint) *models.Order {
	t.Helper()
	o, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	return o
}

func countNotes(o *models.Order, prefix string) int {
	n := 0
	for _, note := range o.Notes {
		if strings.HasPrefix(note.Note, prefix) {
			n++
		}
	}
	return n
}

const completedBody = `{"type":"payment.completed","data":{"reference":"PMT123","external_reference":"MPESA-889","settlement":{"gross":{"value":5000,"currency":"TZS"},"fees":{"value":150,"currency":"TZS"},"net":{"value":4850,"currency":"TZS"}},"channel":{"type":"mobile_money","provider":"vodacom"}}}`

func TestProcessor_CompletedPhysicalOrderGoesProcessing(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seedOrder(store, 1, "PMT123", false)

	resp := deliver(p, completedBody)
	assert.Equal(t, Response{Status: http.StatusOK, Body: "OK"}, resp)

	o := getOrder(t, store, 1)
	assert.Equal(t, models.StatusProcessing, o.Status)
	assert.True(t, o.IsPaid())
	assert.Equal(t, "PMT123", o.TransactionID)
	require.NotNil(t, o.DatePaid)
	assert.Equal(t, "MPESA-889", o.GetMeta(models.MetaExternalReference))
	assert.Equal(t, "5000", o.GetMeta(models.MetaSettlementGross))
	assert.Equal(t, "150", o.GetMeta(models.MetaSettlementFees))
	assert.Equal(t, "4850", o.GetMeta(models.MetaSettlementNet))
	assert.Equal(t, "mobile_money", o.GetMeta(models.MetaChannelType))
	assert.Equal(t, "vodacom", o.GetMeta(models.MetaChannelProvider))

	require.Len(t, o.Notes, 2)
	assert.Equal(t,
		"Snippe payment completed. Reference: PMT123 | External Reference: MPESA-889 | Settlement: gross 5000, fees 150, net 4850 TZS",
		o.Notes[0].Note)
	assert.Contains(t, o.Notes[1].Note, "Payment received via Snippe.")
}

func TestProcessor_CompletedDownloadableOrderGoesCompleted(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seedOrder(store, 1, "PMT1", true)

	resp := deliver(p, `{"type":"payment.completed","data":{"reference":"PMT1"}}`)
	assert.Equal(t, http.StatusOK, resp.Status)

	o := getOrder(t, store, 1)
	assert.Equal(t, models.StatusCompleted, o.Status)
	assert.Equal(t, "Snippe payment completed. Reference: PMT1", o.Notes[0].Note)
}

func TestProcessor_DuplicateCompletedAppliesOnce(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seedOrder(store, 1, "PMT123", false)

	assert.Equal(t, http.StatusOK, deliver(p, completedBody).Status)
	first := getOrder(t, store, 1)

	assert.Equal(t, http.StatusOK, deliver(p, completedBody).Status)
	second := getOrder(t, store, 1)

	assert.Equal(t, 1, countNotes(second, "Snippe payment completed."))
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.DatePaid, second.DatePaid)
	assert.Equal(t, first.Version, second.Version)
}

func TestProcessor_ConcurrentDeliveriesApplyOnce(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seedOrder(store, 1, "PMT123", false)

	var wg sync.WaitGroup
	statuses := make([]int, 8)
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i] = deliver(p, completedBody).Status
		}(i)
	}
	wg.Wait()

	for _, s := range statuses {
		assert.Equal(t, http.StatusOK, s)
	}
	o := getOrder(t, store, 1)
	assert.Equal(t, models.StatusProcessing, o.Status)
	assert.Equal(t, 1, countNotes(o, "Snippe payment completed."))
}

// Scenario: a tampered signature leaves the order untouched.
func TestProcessor_InvalidSignature(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seedOrder(store, 1, "PMT123", false)

	h := signedHeader(completedBody)
	h.Set(payment.SignatureHeader, strings.Repeat("0", 64))
	resp := p.Handle(context.Background(), []byte(completedBody), h)

	assert.Equal(t, Response{Status: http.StatusUnauthorized, Body: "Invalid signature"}, resp)
	o := getOrder(t, store, 1)
	assert.Equal(t, models.StatusSnippePending, o.Status)
	assert.Empty(t, o.Notes)
}

func TestProcessor_UnsignedDeliveryAccepted(t *testing.T) {
	p, store, logs := newTestProcessor(t)
	seedOrder(store, 1, "PMT123", false)

	h := http.Header{}
	h.Set("Content-Type", "application/json")
	resp := p.Handle(context.Background(), []byte(completedBody), h)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, 1, logs.FilterMessage("Webhook delivered without signature, accepted unverified").Len())
}

// Scenario: an unknown reference is acknowledged and logged.
func TestProcessor_UnknownReference(t *testing.T) {
	p, _, logs := newTestProcessor(t)

	resp := deliver(p, `{"type":"payment.completed","data":{"reference":"NOPE"}}`)
	assert.Equal(t, Response{Status: http.StatusOK, Body: "OK"}, resp)

	entries := logs.FilterMessage("Order not found for payment reference").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "NOPE", entries[0].ContextMap()["reference"])
}

func TestProcessor_CompletedWithLooselyShapedFields(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seedOrder(store, 1, "PMT123", false)

	body := `{"type":"payment.completed","data":{"reference":"PMT123","amount":5000,"status":["completed"],"settlement":{"gross":5000,"fees":"150","net":4850,"currency":"TZS"},"channel":"mpesa"}}`
	resp := deliver(p, body)
	assert.Equal(t, Response{Status: http.StatusOK, Body: "OK"}, resp)

	o := getOrder(t, store, 1)
	assert.Equal(t, models.StatusProcessing, o.Status)
	assert.Equal(t, "5000", o.GetMeta(models.MetaSettlementGross))
	assert.Equal(t, "150", o.GetMeta(models.MetaSettlementFees))
	assert.Equal(t, "4850", o.GetMeta(models.MetaSettlementNet))
	assert.Empty(t, o.GetMeta(models.MetaChannelType))
	assert.Equal(t,
		"Snippe payment completed. Reference: PMT123 | Settlement: gross 5000, fees 150, net 4850 TZS",
		o.Notes[0].Note)
}

func TestProcessor_BoundaryErrors(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	tests := []struct {
		name        string
		body        string
		contentType string
		want        Response
	}{
		{"content type", `{}`, "text/plain", Response{http.StatusBadRequest, "Invalid content type"}},
		{"bad json", `{"type":`, "application/json", Response{http.StatusBadRequest, "Invalid JSON"}},
		{"array body", `[1,2]`, "application/json", Response{http.StatusBadRequest, "Missing event type"}},
		{"no type", `{"data":{"reference":"PMT1"}}`, "application/json", Response{http.StatusBadRequest, "Missing event type"}},
		{"no reference", `{"type":"payment.failed","data":{}}`, "application/json", Response{http.StatusBadRequest, "Missing payment reference"}},
		{"unknown type", `{"type":"payout.completed","data":{}}`, "application/json", Response{http.StatusOK, "OK"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := signedHeader(tt.body)
			h.Set("Content-Type", tt.contentType)
			assert.Equal(t, tt.want, p.Handle(context.Background(), []byte(tt.body), h))
		})
	}
}

func TestProcessor_FailureEvents(t *testing.T) {
	tests := []struct {
		body   string
		status string
		note   string
	}{
		{`{"type":"payment.failed","data":{"reference":"R","failure_reason":"Insufficient funds"}}`, models.StatusFailed, "Snippe payment failed. Reason: Insufficient funds"},
		{`{"type":"payment.failed","data":{"reference":"R"}}`, models.StatusFailed, "Snippe payment failed. Reason: Unknown reason"},
		{`{"type":"payment.expired","data":{"reference":"R"}}`, models.StatusCancelled, "Snippe payment expired."},
		{`{"type":"payment.voided","data":{"reference":"R"}}`, models.StatusCancelled, "Snippe payment was voided/cancelled."},
	}
	for _, tt := range tests {
		t.Run(tt.note, func(t *testing.T) {
			p, store, _ := newTestProcessor(t)
			seedOrder(store, 1, "R", false)

			assert.Equal(t, http.StatusOK, deliver(p, tt.body).Status)
			o := getOrder(t, store, 1)
			assert.Equal(t, tt.status, o.Status)
			require.Len(t, o.Notes, 1)
			assert.True(t, strings.HasPrefix(o.Notes[0].Note, tt.note))
		})
	}
}

func TestProcessor_PaidOrderIgnoresLaterEvents(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seedOrder(store, 1, "PMT123", false)
	require.Equal(t, http.StatusOK, deliver(p, completedBody).Status)

	for _, typ := range []string{EventFailed, EventExpired, EventVoided} {
		assert.Equal(t, http.StatusOK, deliver(p, `{"type":"`+typ+`","data":{"reference":"PMT123"}}`).Status)
	}
	o := getOrder(t, store, 1)
	assert.Equal(t, models.StatusProcessing, o.Status)
	assert.Len(t, o.Notes, 2)
}

func TestProcessor_LateCompletionOnCancelledOrder(t *testing.T) {
	p, store, logs := newTestProcessor(t)
	seedOrder(store, 1, "PMT123", false)
	require.Equal(t, http.StatusOK, deliver(p, `{"type":"payment.expired","data":{"reference":"PMT123"}}`).Status)

	assert.Equal(t, http.StatusOK, deliver(p, completedBody).Status)
	o := getOrder(t, store, 1)
	assert.Equal(t, models.StatusCancelled, o.Status)
	assert.Empty(t, o.TransactionID)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestProcessor_DuplicateReferenceLogged(t *testing.T) {
	p, store, logs := newTestProcessor(t)
	seedOrder(store, 1, "DUP", false)
	seedOrder(store, 2, "DUP", false)

	assert.Equal(t, http.StatusOK, deliver(p, `{"type":"payment.completed","data":{"reference":"DUP"}}`).Status)
	assert.Equal(t, 1, logs.FilterMessage("Payment reference attached to more than one order").Len())
	assert.Equal(t, models.StatusProcessing, getOrder(t, store, 1).Status)
	assert.Equal(t, models.StatusSnippePending, getOrder(t, store, 2).Status)
}

type staleStore struct {
	*repository.MemoryStore
	mu    sync.Mutex
	stale int
}

func (s *staleStore) Save(ctx context.Context, o *models.Order) error {
	s.mu.Lock()
	if s.stale > 0 {
		s.stale--
		s.mu.Unlock()
		return repository.ErrStaleOrder
	}
	s.mu.Unlock()
	return s.MemoryStore.Save(ctx, o)
}

func TestProcessor_RetriesStaleSaves(t *testing.T) {
	mem := repository.NewMemoryStore()
	seedOrder(mem, 1, "PMT123", false)
	store := &staleStore{MemoryStore: mem, stale: 2}
	p := NewProcessor(store, testSecret, zap.NewNop())

	assert.Equal(t, http.StatusOK, deliver(p, completedBody).Status)
	assert.Equal(t, models.StatusProcessing, getOrder(t, mem, 1).Status)
}

func TestProcessor_GivesUpAfterRepeatedStaleSaves(t *testing.T) {
	mem := repository.NewMemoryStore()
	seedOrder(mem, 1, "PMT123", false)
	store := &staleStore{MemoryStore: mem, stale: maxAttempts}
	p := NewProcessor(store, testSecret, zap.NewNop())

	assert.Equal(t, Response{Status: http.StatusInternalServerError, Body: "Error processing webhook"}, deliver(p, completedBody))
	assert.Equal(t, models.StatusSnippePending, getOrder(t, mem, 1).Status)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) PaymentSettled(ctx context.Context, order *models.Order, eventType, detail string) {
	m.Called(ctx, order, eventType, detail)
}

func TestProcessor_NotifiesOnCompletionAndFailure(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seedOrder(store, 1, "PMT123", false)
	seedOrder(store, 2, "PMT456", false)

	n := &mockNotifier{}
	n.On("PaymentSettled", mock.Anything, mock.MatchedBy(func(o *models.Order) bool { return o.ID == 1 }), EventCompleted, "PMT123").Once()
	n.On("PaymentSettled", mock.Anything, mock.MatchedBy(func(o *models.Order) bool { return o.ID == 2 }), EventFailed, "Declined").Once()
	p.WithNotifier(n)

	deliver(p, completedBody)
	deliver(p, completedBody)
	deliver(p, `{"type":"payment.failed","data":{"reference":"PMT456","failure_reason":"Declined"}}`)

	n.AssertExpectations(t)
}

func TestProcessor_ApplyFromStatusSync(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	seedOrder(store, 1, "PMT123", false)

	err := p.Apply(context.Background(), Event{Type: EventCompleted, Data: payment.PaymentData{Reference: "PMT123"}})
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, getOrder(t, store, 1).Status)
}
