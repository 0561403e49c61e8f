// internal/router/ratelimit.go
package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/pkg/response"
)

// RateLimit caps requests per client IP within a fixed window, counted in
// redis so multiple gateway replicas share the budget. Redis trouble fails
// open; throttling is protection, not a correctness requirement.
func RateLimit(rdb *redis.Client, limit int64, window time.Duration, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("admin_gateway:ratelimit:%s", r.RemoteAddr)

			count, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				logger.Warn("rate limit counter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				_ = rdb.Expire(r.Context(), key, window).Err()
			}

			if count > limit {
				response.Error(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
