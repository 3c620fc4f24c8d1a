// Package store holds sliding-window counters keyed by an opaque string.
package store

import (
	"context"
	"time"

	"kycgate/internal/ratelimit/models"
)

// Store consumes capacity from a sliding window.
type Store interface {
	// AllowN records cost events for key if they fit within limit over the
	// trailing window. A denied call records nothing.
	AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.Result, error)
	Reset(ctx context.Context, key string) error
}
