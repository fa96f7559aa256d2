package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisStore "palmpay/internal/adapter/storage/redis"
	"palmpay/pkg/apperror"
	"palmpay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitStore counts requests per key and window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the rate limits per endpoint group. Scan-pay
// and PIN check groups are tight to slow down brute-force guessing.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"scan_pay":           {Limit: 30, Window: time.Minute},
		"mall_scan_pay":      {Limit: 10, Window: time.Minute},
		"palm_enroll":        {Limit: 5, Window: time.Minute},
		"wallets":            {Limit: 60, Window: time.Minute},
		"wallets_topup":      {Limit: 20, Window: time.Minute},
		"wallets_pin_verify": {Limit: 10, Window: time.Minute},
		"gateway_webhook":    {Limit: 300, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// A store failure lets the request through.
func RateLimiter(store RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := extractIdentifier(c)
		key := fmt.Sprintf("%s:%s", identifier, group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier determines the rate limit key source: the terminal, then
// the authenticated identity, then the client address.
func extractIdentifier(c *gin.Context) string {
	if tid := c.GetHeader(HeaderTerminalID); tid != "" {
		return "terminal:" + tid
	}
	if id, ok := IdentityID(c); ok {
		return "identity:" + id.String()
	}
	return "ip:" + c.ClientIP()
}
