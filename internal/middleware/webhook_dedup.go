package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"snippepay/internal/metrics"
)

// MaxWebhookBody caps the size of a webhook delivery.
const MaxWebhookBody = 1 << 20

// EventDeduper tracks webhook deliveries that are being or have been processed.
type EventDeduper interface {
	// Claim marks key as taken. It reports false when key was already claimed.
	Claim(ctx context.Context, key string) (bool, error)
	// Release frees key so a redelivery is processed again.
	Release(ctx context.Context, key string) error
}

type redisEventDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (d *redisEventDeduper) Claim(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, d.prefix+":"+key, "1", d.ttl).Result()
}

func (d *redisEventDeduper) Release(ctx context.Context, key string) error {
	return d.client.Del(ctx, d.prefix+":"+key).Err()
}

type memoryEventDeduper struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	ttl    time.Duration
	nextGC time.Time
}

func newMemoryEventDeduper(ttl time.Duration) *memoryEventDeduper {
	return &memoryEventDeduper{
		seen:   make(map[string]time.Time),
		ttl:    ttl,
		nextGC: time.Now().Add(ttl),
	}
}

func (d *memoryEventDeduper) Claim(_ context.Context, key string) (bool, error) {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.seen[key]; ok && exp.After(now) {
		return false, nil
	}

	d.seen[key] = now.Add(d.ttl)
	if now.After(d.nextGC) {
		for k, exp := range d.seen {
			if exp.Before(now) {
				delete(d.seen, k)
			}
		}
		d.nextGC = now.Add(d.ttl)
	}

	return true, nil
}

func (d *memoryEventDeduper) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
	return nil
}

// NewEventDeduper builds a Redis deduper and falls back to in-memory on failure.
func NewEventDeduper(addr, pass string, db int, ttl time.Duration) (EventDeduper, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if addr == "" {
		return newMemoryEventDeduper(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return newMemoryEventDeduper(ttl), err
	}

	return &redisEventDeduper{
		client: client,
		prefix: "snippe:webhook",
		ttl:    ttl,
	}, nil
}

// WebhookDedup answers repeated deliveries of an identical body with 200
// without running the handler. A delivery that does not end in 2xx releases
// its claim so the sender's retry is processed.
func WebhookDedup(deduper EventDeduper, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if deduper == nil {
				return next(c)
			}

			req := c.Request()
			if req.Body == nil {
				return next(c)
			}

			rawBody, err := io.ReadAll(io.LimitReader(req.Body, MaxWebhookBody+1))
			if err != nil {
				return err
			}
			if len(rawBody) > MaxWebhookBody {
				log.Warn("Webhook body too large", zap.Int64("content_length", req.ContentLength))
				return echo.ErrStatusRequestEntityTooLarge
			}
			req.Body = io.NopCloser(bytes.NewBuffer(rawBody))
			if len(rawBody) == 0 {
				return next(c)
			}

			sum := sha256.Sum256(rawBody)
			key := hex.EncodeToString(sum[:])

			claimed, err := deduper.Claim(req.Context(), key)
			if err != nil {
				log.Warn("Webhook dedup unavailable", zap.Error(err))
				return next(c)
			}
			if !claimed {
				metrics.WebhookDuplicates.Inc()
				log.Info("Duplicate webhook delivery dropped", zap.String("key", key))
				return c.String(http.StatusOK, "OK")
			}

			err = next(c)
			if err != nil || c.Response().Status < 200 || c.Response().Status >= 300 {
				if rerr := deduper.Release(context.WithoutCancel(req.Context()), key); rerr != nil {
					log.Warn("Failed to release webhook claim", zap.Error(rerr))
				}
			}
			return err
		}
	}
}
