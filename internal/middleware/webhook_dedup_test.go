package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEventDeduper_ClaimRelease(t *testing.T) {
	ctx := context.Background()
	d := newMemoryEventDeduper(time.Minute)

	ok, err := d.Claim(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = d.Claim(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, d.Release(ctx, "a"))
	ok, _ = d.Claim(ctx, "a")
	assert.True(t, ok)
}

func TestMemoryEventDeduper_Expires(t *testing.T) {
	ctx := context.Background()
	d := newMemoryEventDeduper(10 * time.Millisecond)

	ok, _ := d.Claim(ctx, "a")
	require.True(t, ok)
	time.Sleep(20 * time.Millisecond)

	ok, _ = d.Claim(ctx, "a")
	assert.True(t, ok)
}

func TestNewEventDeduper_NoAddrUsesMemory(t *testing.T) {
	d, err := NewEventDeduper("", "", 0, 0)
	require.NoError(t, err)
	assert.IsType(t, &memoryEventDeduper{}, d)
}

func serveDedup(t *testing.T, e *echo.Echo, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWebhookDedup(t *testing.T) {
	calls := 0

	e := echo.New()
	e.POST("/hook", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "handled")
	}, WebhookDedup(newMemoryEventDeduper(time.Hour), nil))

	rec := serveDedup(t, e, `{"type":"payment.completed"}`)
	assert.Equal(t, "handled", rec.Body.String())

	rec = serveDedup(t, e, `{"type":"payment.completed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, 1, calls)

	serveDedup(t, e, `{"type":"payment.failed"}`)
	assert.Equal(t, 2, calls)
}

func TestWebhookDedup_RejectsOversizedBody(t *testing.T) {
	calls := 0

	e := echo.New()
	e.POST("/hook", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "handled")
	}, WebhookDedup(newMemoryEventDeduper(time.Hour), nil))

	rec := serveDedup(t, e, `{"pad":"`+strings.Repeat("x", MaxWebhookBody)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, calls)
}

func TestWebhookDedup_ReleasesOnFailure(t *testing.T) {
	calls := 0

	e := echo.New()
	e.POST("/hook", func(c echo.Context) error {
		calls++
		if calls == 1 {
			return c.String(http.StatusInternalServerError, "Error processing webhook")
		}
		return c.String(http.StatusOK, "OK")
	}, WebhookDedup(newMemoryEventDeduper(time.Hour), nil))

	rec := serveDedup(t, e, `{"type":"payment.completed"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serveDedup(t, e, `{"type":"payment.completed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestAPIAuth(t *testing.T) {
	e := echo.New()
	e.GET("/api/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, APIAuth("secret"))

	for _, tc := range []struct {
		token string
		code  int
	}{
		{"", http.StatusUnauthorized},
		{"wrong", http.StatusUnauthorized},
		{"secret", http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
		if tc.token != "" {
			req.Header.Set("Token", tc.token)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tc.code, rec.Code, "token %q", tc.token)
	}
}
