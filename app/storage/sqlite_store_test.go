package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sandbox-svc/app/domains"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "sandbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	got, err := store.GetSession(ctx, "user-123")
	require.NoError(t, err)
	assert.Nil(t, got, "unknown session should be nil, not error")

	require.NoError(t, store.UpsertSession(ctx, "user-123", "sandbox_session_user-123"))

	got, err = store.GetSession(ctx, "user-123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "user-123", got.SessionID)
	assert.Equal(t, "sandbox_session_user-123", got.VolumeName)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.LastUsedAt.IsZero())

	// Upsert of an existing id keeps the row and refreshes last_used_at.
	require.NoError(t, store.UpsertSession(ctx, "user-123", "sandbox_session_user-123"))
	require.NoError(t, store.TouchSession(ctx, "user-123"))

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	require.NoError(t, store.DeleteSession(ctx, "user-123"))
	got, err = store.GetSession(ctx, "user-123")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListIdleSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertSession(ctx, "fresh", "sandbox_session_fresh"))

	// Backdate one session two days into the past.
	require.NoError(t, store.UpsertSession(ctx, "stale", "sandbox_session_stale"))
	_, err := store.db.ExecContext(ctx,
		`UPDATE sessions SET last_used_at = datetime('now', '-48 hours') WHERE session_id = ?`, "stale")
	require.NoError(t, err)

	idle, err := store.ListIdleSessions(ctx, 24)
	require.NoError(t, err)
	require.Len(t, idle, 1)
	assert.Equal(t, "stale", idle[0].SessionID)
}

func TestExecutionHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	code := 0
	rec := domains.ExecutionRecord{
		ExecutionID: "exec-1",
		SessionID:   "user-123",
		Kind:        string(domains.KindShell),
		Command:     "cat a.txt",
		ExitCode:    &code,
		TimedOut:    false,
		DurationMs:  42,
	}
	require.NoError(t, store.RecordExecution(ctx, rec))

	// Duplicate execution ids are ignored, not errors.
	require.NoError(t, store.RecordExecution(ctx, rec))

	timedOut := domains.ExecutionRecord{
		ExecutionID: "exec-2",
		SessionID:   "user-123",
		Kind:        string(domains.KindShell),
		Command:     "sleep 300",
		ExitCode:    nil,
		TimedOut:    true,
		DurationMs:  1000,
	}
	require.NoError(t, store.RecordExecution(ctx, timedOut))

	records, err := store.ListExecutions(ctx, "user-123", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Most recent first.
	assert.Equal(t, "exec-2", records[0].ExecutionID)
	assert.Nil(t, records[0].ExitCode)
	assert.True(t, records[0].TimedOut)

	assert.Equal(t, "exec-1", records[1].ExecutionID)
	require.NotNil(t, records[1].ExitCode)
	assert.Equal(t, 0, *records[1].ExitCode)
	assert.False(t, records[1].TimedOut)

	other, err := store.ListExecutions(ctx, "someone-else", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCleanupOldExecutions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := domains.ExecutionRecord{
		ExecutionID: "exec-old",
		SessionID:   "user-123",
		Kind:        string(domains.KindScript),
		Command:     "print('hi')",
		DurationMs:  5,
	}
	require.NoError(t, store.RecordExecution(ctx, rec))
	_, err := store.db.ExecContext(ctx,
		`UPDATE executions SET created_at = datetime('now', '-100 hours') WHERE execution_id = ?`, "exec-old")
	require.NoError(t, err)

	require.NoError(t, store.CleanupOldExecutions(ctx, 72))

	records, err := store.ListExecutions(ctx, "user-123", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
