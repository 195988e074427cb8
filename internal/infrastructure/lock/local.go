// Package lock provides inventory.KeyLocker implementations: an in-process
// locker for single instance deployments and a Redis locker for several.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/domain/shared"
)

// slot is a one-token semaphore shared by every waiter on a key
type slot struct {
	token chan struct{}
	refs  int
}

// LocalLocker serializes work on a key within one process. Keys nobody
// holds or waits on are dropped, so the map stays small.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

// NewLocalLocker creates a locker. A positive wait bounds how long Lock
// blocks before failing transiently; zero waits until ctx is done.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		slots: make(map[string]*slot),
		wait:  wait,
	}
}

// Lock blocks until key is free, ctx ends or the wait elapses
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	s := l.acquireSlot(key)

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case s.token <- struct{}{}:
	case <-ctx.Done():
		l.releaseSlot(key, s)
		return nil, ctx.Err()
	case <-timeout:
		l.releaseSlot(key, s)
		return nil, errors.Join(shared.ErrTransient, fmt.Errorf("lock %q not acquired within %s", key, l.wait))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.token
			l.releaseSlot(key, s)
		})
	}, nil
}

func (l *LocalLocker) acquireSlot(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{token: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) releaseSlot(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// held reports how many keys have holders or waiters
func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

var _ inventory.KeyLocker = (*LocalLocker)(nil)
