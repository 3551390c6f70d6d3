package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"medcontent-subscription/internal/infra/logging"
	"medcontent-subscription/internal/infra/metrics"
	red "medcontent-subscription/internal/infra/redis"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit throttles each authenticated user per route. Limiter errors let
// the request through.
func RateLimit(l Limiter, route string, limit int, window time.Duration, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserID(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			allowed, err := l.Allow(r.Context(), red.UserRouteKey(userID, route), limit, window)
			if err != nil {
				lg := logging.With(r.Context(), logger)
				lg.Warn().Err(err).Str("route", route).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				metrics.IncRateLimited(route)
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many requests", Kind: "rate_limited"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
