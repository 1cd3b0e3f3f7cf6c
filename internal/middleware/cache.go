package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-management/internal/config"
)

// HeaderCache reports HIT or MISS on cached routes.
const HeaderCache = "X-Cache"

// captureWriter tees the response body into buf, up to limit bytes.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.truncated = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Cache serves repeated reads from Redis.  Only successful responses
// of the configured methods are stored, and a body larger than
// MaxBodyBytes is never cached.  With Redis unavailable it is a no-op.
type Cache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *logrus.Logger
}

func NewCache(cfg config.CacheConfig, rdb *redis.Client, log *logrus.Logger) *Cache {
	return &Cache{cfg: cfg, rdb: rdb, log: log}
}

func (ch *Cache) enabled() bool { return ch.cfg.Enabled && ch.rdb != nil }

// Middleware caches the wrapped route.
func (ch *Cache) Middleware() echo.MiddlewareFunc {
	if !ch.enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !ch.cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := ch.key(c)

			if bs, err := ch.rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(bs, &hit) == nil {
					c.Response().Header().Set(HeaderCache, "HIT")
					return c.Blob(hit.Status, hit.ContentType, hit.Body)
				}
			} else if err != redis.Nil {
				ch.log.WithError(err).WithField("key", key).Warn("cache read failed")
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: ch.cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set(HeaderCache, "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated {
				return nil
			}
			payload, err := json.Marshal(cachedResponse{
				Status:      cw.status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        cw.buf.Bytes(),
			})
			if err != nil {
				return nil
			}
			// the request context may already be done once the body is written
			if err := ch.rdb.Set(context.Background(), key, payload, ch.cfg.TTL).Err(); err != nil {
				ch.log.WithError(err).WithField("key", key).Warn("cache write failed")
			}
			return nil
		}
	}
}

// Purge drops every entry cached under the configured prefix.  Writers
// call it after changing data a cached route returns.
func (ch *Cache) Purge(ctx context.Context) error {
	if !ch.enabled() {
		return nil
	}
	iter := ch.rdb.Scan(ctx, 0, ch.cfg.Prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return ch.rdb.Del(ctx, keys...).Err()
}

// key hashes the parts of the request named by KeyStrategy.
func (ch *Cache) key(c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(ch.cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route":
		parts = []string{"method", r.Method, "route", c.Path()}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
	default:
		parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", ch.cfg.Prefix, sum)
}
