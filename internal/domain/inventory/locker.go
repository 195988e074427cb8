package inventory

import "context"

// KeyLocker serializes work on a named key across goroutines or processes.
// The returned release func must be called exactly once.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
