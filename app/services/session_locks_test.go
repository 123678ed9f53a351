package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sandbox-svc/app/domains"
)

func TestAcquireSerializesHolders(t *testing.T) {
	locks := newSessionLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "s1", true)
	require.NoError(t, err)

	_, err = locks.acquire(ctx, "s1", false)
	assert.ErrorIs(t, err, domains.ErrSessionBusy)

	release()
	release2, err := locks.acquire(ctx, "s1", false)
	require.NoError(t, err)
	release2()
}

func TestDropWithQueuedWaiterKeepsExclusivity(t *testing.T) {
	locks := newSessionLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "s1", true)
	require.NoError(t, err)

	// Queue a waiter on the slot, then drop the slot while it waits,
	// the way a teardown does with a request still in flight behind it.
	waiterHolds := make(chan func(), 1)
	go func() {
		r, err := locks.acquire(ctx, "s1", true)
		if err == nil {
			waiterHolds <- r
		}
	}()
	time.Sleep(50 * time.Millisecond)

	locks.drop("s1")
	release()

	var waiterRelease func()
	select {
	case waiterRelease = <-waiterHolds:
	case <-time.After(time.Second):
		t.Fatal("queued waiter never acquired the slot")
	}

	// While the waiter holds the slot, a fresh acquirer must block;
	// before the revalidation step it would acquire a second, newly
	// created slot immediately.
	shortCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(shortCtx, "s1", true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	waiterRelease()
	release2, err := locks.acquire(ctx, "s1", true)
	require.NoError(t, err)
	release2()
}

func TestDropWithQueuedWaiterRejectsNonQueuedAcquire(t *testing.T) {
	locks := newSessionLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "s1", true)
	require.NoError(t, err)

	waiterHolds := make(chan func(), 1)
	go func() {
		r, err := locks.acquire(ctx, "s1", true)
		if err == nil {
			waiterHolds <- r
		}
	}()
	time.Sleep(50 * time.Millisecond)

	locks.drop("s1")
	release()

	var waiterRelease func()
	select {
	case waiterRelease = <-waiterHolds:
	case <-time.After(time.Second):
		t.Fatal("queued waiter never acquired the slot")
	}

	_, err = locks.acquire(ctx, "s1", false)
	assert.ErrorIs(t, err, domains.ErrSessionBusy)

	waiterRelease()
}
