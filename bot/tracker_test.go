package bot

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := NewTracker(filepath.Join(t.TempDir(), "tracker.db"), discard())
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestTrackerAddListDone(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	id1, err := tr.Add(ctx, "u1", "rotate the nginx logs")
	require.NoError(t, err)
	id2, err := tr.Add(ctx, "u1", "check disk alerts")
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	items, err := tr.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "rotate the nginx logs", items[0].Text)
	assert.Equal(t, "check disk alerts", items[1].Text)

	ok, err := tr.Done(ctx, "u1", id1)
	require.NoError(t, err)
	assert.True(t, ok)

	items, err = tr.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id2, items[0].ID)
}

func TestTrackerScopedPerUser(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	id, err := tr.Add(ctx, "alice", "private note")
	require.NoError(t, err)

	items, err := tr.List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, items)

	// Another user cannot complete someone else's item.
	ok, err := tr.Done(ctx, "bob", id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrackerDoneUnknownID(t *testing.T) {
	tr := newTestTracker(t)

	ok, err := tr.Done(context.Background(), "u1", 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrackerDoneIsIdempotentGuarded(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	id, err := tr.Add(ctx, "u1", "one-shot")
	require.NoError(t, err)

	ok, err := tr.Done(ctx, "u1", id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tr.Done(ctx, "u1", id)
	require.NoError(t, err)
	assert.False(t, ok, "an already-completed item reports not found")
}
