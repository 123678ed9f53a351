package services

import (
	"context"
	"sync"

	"sandbox-svc/app/domains"
)

// sessionLocks serializes work per session id. Each session gets a
// one-slot channel; blocked acquirers are woken in FIFO order, so
// queued requests run in arrival order. The workspace is only ever
// mutated by whoever holds the slot.
type sessionLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{slots: make(map[string]chan struct{})}
}

func (l *sessionLocks) slot(sessionID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[sessionID]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[sessionID] = slot
	}
	return slot
}

// acquire takes the session's slot. With queue set it waits until the
// slot frees or ctx is done; without it a held slot fails immediately
// with ErrSessionBusy. The returned release function is tied to the
// acquired slot, so a concurrent drop cannot strand the holder.
//
// A teardown may replace the slot while a waiter is queued on the old
// one. Holding a defunct slot guards nothing, so after every
// acquisition the slot is revalidated against the table and a stale
// hold is released and retried on the current slot. Whatever the
// interleaving, only one caller per session holds the live slot.
func (l *sessionLocks) acquire(ctx context.Context, sessionID string, queue bool) (func(), error) {
	for {
		slot := l.slot(sessionID)

		if queue {
			select {
			case slot <- struct{}{}:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		} else {
			select {
			case slot <- struct{}{}:
			default:
				return nil, domains.ErrSessionBusy
			}
		}

		l.mu.Lock()
		current := l.slots[sessionID]
		l.mu.Unlock()
		if current == slot {
			var once sync.Once
			return func() { once.Do(func() { <-slot }) }, nil
		}
		<-slot
	}
}

// drop forgets the session's slot. Called on teardown so the table does
// not grow without bound; an in-flight holder still releases through
// its own reference.
func (l *sessionLocks) drop(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.slots, sessionID)
}
