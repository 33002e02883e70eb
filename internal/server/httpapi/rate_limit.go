package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
)

// loginPaths get their own, stricter bucket.
var loginPaths = regexp.MustCompile(`^/v1/auth/(login|validate-login.*|register)$`)

// fingerprint identifies a client for the general bucket without storing
// anything that would identify it outside the limiter.
func fingerprint(c *gin.Context) string {
	all := fmt.Sprintf("%s%s%s%s", c.ClientIP(), c.GetHeader("User-Agent"),
		c.GetHeader("Accept-Language"), c.GetHeader("Referer"))
	for _, cookie := range c.Request.Cookies() {
		all = fmt.Sprintf("%s%s%s", all, cookie.Name, cookie.Value)
	}
	return all
}

// loginKey is the bucket of credential-guessing endpoints. It only depends
// on the client address, so changing headers or cookies does not reset it.
func loginKey(c *gin.Context) string {
	return "login_" + c.ClientIP()
}

// RateLimitMiddleware limits each client fingerprint to perSecond requests.
// Login endpoints are limited per client address to a fifth of that, at
// least one per second.
func RateLimitMiddleware(limiter *redis_rate.Limiter, perSecond int) gin.HandlerFunc {
	loginLimit := max(perSecond/5, 1)

	return func(c *gin.Context) {
		var all string
		limit := perSecond
		if loginPaths.MatchString(c.Request.URL.Path) {
			limit = loginLimit
			all = loginKey(c)
		} else {
			all = fingerprint(c)
		}
		hash := xxhash.Sum64String(all)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := limiter.Allow(ctx, strconv.FormatUint(hash, 10), redis_rate.PerSecond(limit))
		if err != nil {
			ApiErrorf(c, http.StatusInternalServerError, "failed to perform rate limit check")
			return
		}

		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit.Rate))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Writer.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(result.ResetAfter.Milliseconds())))

		if result.Allowed <= 0 {
			c.Writer.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			ApiErrorf(c, http.StatusTooManyRequests, "too many requests")
			return
		}
		c.Next()
	}
}
