package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening must not re-apply migrations.
	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRecordAndListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordRun(ctx, Run{
		StartedAt:      base,
		FinishedAt:     base.Add(2 * time.Second),
		Status:         RunOK,
		NewAttachments: 3,
	}))
	require.NoError(t, s.RecordRun(ctx, Run{
		StartedAt:  base.Add(10 * time.Minute),
		FinishedAt: base.Add(10*time.Minute + time.Second),
		Status:     RunFailed,
		Error:      "connection refused",
	}))

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Most recent first.
	assert.Equal(t, RunFailed, runs[0].Status)
	assert.Equal(t, "connection refused", runs[0].Error)
	assert.Equal(t, RunOK, runs[1].Status)
	assert.Equal(t, 3, runs[1].NewAttachments)
	assert.NotEmpty(t, runs[0].ID)
}

func TestRecentRunsHonorsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordRun(ctx, Run{
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
			Status:     RunOK,
		}))
	}

	runs, err := s.RecentRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRecordAndListEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordEvent(ctx, Event{
		Kind:      EventDownload,
		Message:   "alice@x.com_Invoice_20240315_55_receipt.pdf",
		CreatedAt: base,
	}))
	require.NoError(t, s.RecordEvent(ctx, Event{
		Kind:      EventMove,
		Message:   "moved alice@x.com_Invoice_20240315_55_receipt.pdf -> Alice-1.pdf",
		CreatedAt: base.Add(time.Minute),
	}))

	events, err := s.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, EventMove, events[0].Kind)
	assert.Equal(t, EventDownload, events[1].Kind)
}

func TestRecordEventFillsTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordEvent(ctx, Event{Kind: EventError, Message: "boom"}))

	events, err := s.RecentEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].CreatedAt.IsZero())
	assert.NotEmpty(t, events[0].ID)
}
