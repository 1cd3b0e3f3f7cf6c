package middleware

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/config"
)

// MsgTooManyRequests is returned when a client runs out of tokens.
const MsgTooManyRequests = "Too many requests, try again later."

// tokenBucket refills `refill` tokens every `interval_ms` up to
// `capacity` and takes one token per request.  State lives in a hash
// that expires after ttl so idle clients cost nothing.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
	tokens = capacity
	last = now_ms
end

local elapsed = math.max(0, now_ms - last)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
	tokens = math.min(capacity, tokens + intervals * refill)
	last = last + intervals * interval_ms
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_ms = math.max(0, interval_ms - (now_ms - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', key, ttl)
return { allowed, tokens, retry_ms }
`)

// RateLimit limits requests per client with a Redis token bucket shared
// by every instance.  Without Redis it falls back to echo's in-memory
// limiter with the same steady rate and burst.  Redis errors let the
// request through.  The limiter runs before any route authenticates, so
// the ip_user_route strategy resolves the caller's token with ids itself.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client, ids Identifier, log *logrus.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if rdb == nil {
		return memoryRateLimit(cfg, ids)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, ids, c)
			res, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				log.WithError(err).WithField("key", key).Warn("rate limiter unavailable, allowing request")
				return next(c)
			}
			allowed, remaining, retryMs := res[0] == 1, res[1], res[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !allowed {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(float64(retryMs)/1000))))
				log.WithFields(logrus.Fields{"key": key, "retry_ms": retryMs}).Debug("rate limited")
				return apperr.RateLimited(MsgTooManyRequests)
			}
			return next(c)
		}
	}
}

func memoryRateLimit(cfg config.RateLimitConfig, ids Identifier) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.PerSecond()),
		Burst:     cfg.Capacity,
		ExpiresIn: cfg.TTL,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return rateKey(cfg, ids, c), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperr.Forbidden("Unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return apperr.RateLimited(MsgTooManyRequests)
		},
	})
}

func rateKey(cfg config.RateLimitConfig, ids Identifier, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip_route":
		return fmt.Sprintf("%s:ip:%s:route:%s", cfg.Prefix, ip, route)
	case "ip_user_route":
		return fmt.Sprintf("%s:ip:%s:user:%s:route:%s", cfg.Prefix, ip, callerID(c, ids), route)
	default:
		return fmt.Sprintf("%s:ip:%s", cfg.Prefix, ip)
	}
}

// callerID is the user id behind the request's access token, or "guest"
// when there is no valid token.
func callerID(c echo.Context, ids Identifier) string {
	if id, ok := IdentityFrom(c); ok && id.UserID != "" {
		return id.UserID
	}
	if ids == nil {
		return "guest"
	}
	tok := accessToken(c)
	if tok == "" {
		return "guest"
	}
	id, err := ids.Identify(tok)
	if err != nil || id.UserID == "" {
		return "guest"
	}
	return id.UserID
}
