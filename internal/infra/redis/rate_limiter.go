package redis

import (
	"context"
	"fmt"
	"time"

	"medcontent-subscription/internal/domain"
)

// RateLimiter counts requests per key in fixed windows that start on the
// first hit.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if window <= 0 {
		return false, fmt.Errorf("%w: rate limit window must be positive", domain.ErrInvalidArgument)
	}
	n, err := r.client.IncrWindow(ctx, key, window)
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return n <= int64(limit), nil
}

// UserRouteKey scopes a counter to one user on one route.
func UserRouteKey(userID int64, route string) string {
	return fmt.Sprintf("rate_limit:%d:%s", userID, route)
}
