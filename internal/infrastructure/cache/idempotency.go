// Package cache keeps short-lived request state outside the database:
// responses of commands sent with an Idempotency-Key, so a client retrying
// after a timeout gets the original answer instead of a second receipt.
package cache

import (
	"context"
	"time"
)

// Response is a finished command response as it was sent
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// IdempotencyStore tracks idempotency keys through two states: reserved
// while the first request runs, then completed with its response.
type IdempotencyStore interface {
	// Reserve claims key for ttl. It returns false when the key is already
	// reserved or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Complete stores the response of a reserved key for ttl
	Complete(ctx context.Context, key string, resp Response, ttl time.Duration) error
	// Lookup returns the stored response, or nil while the key is unknown
	// or still reserved
	Lookup(ctx context.Context, key string) (*Response, error)
	// Release forgets a reservation so the request can be retried
	Release(ctx context.Context, key string) error
	Close() error
}
