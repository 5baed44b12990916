package billing

import (
	"context"
	"sync"
)

// Locker serializes lifecycle transitions per remote subscription ID so a
// cancel and a webhook-driven expiry arriving together cannot interleave
// their read-modify-write cycles.
type Locker interface {
	// Lock acquires the lock for key, blocking until it is available or ctx
	// is done. The returned function releases the lock.
	Lock(ctx context.Context, key string) (func(), error)
}

// KeyedMutex is an in-process Locker. It is sufficient for single-instance
// deployments; use RedisLocker when several instances share the store.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an in-process keyed lock.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the per-key lock, honoring context cancellation while
// waiting.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			m.release(key, l)
		}, nil
	case <-ctx.Done():
		m.release(key, l)
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) release(key string, l *keyedLock) {
	m.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}
