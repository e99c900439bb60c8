package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsclaw/opsclaw/config"
	"github.com/opsclaw/opsclaw/session"
	"github.com/opsclaw/opsclaw/tools"
)

type staticCatalog struct{}

func (staticCatalog) Specs(disabled []string) []tools.Spec {
	all := []tools.Spec{
		{Name: "get_disk_usage", Description: "Reports filesystem usage."},
		{Name: "read_log", Description: "Reads the tail of an allowed log file."},
	}
	skip := make(map[string]bool, len(disabled))
	for _, d := range disabled {
		skip[d] = true
	}
	var out []tools.Spec
	for _, s := range all {
		if !skip[s.Name] {
			out = append(out, s)
		}
	}
	return out
}

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	cfg := &config.Config{
		Users: map[string]config.UserConfig{
			"restricted": {DisabledTools: []string{"read_log"}},
		},
	}
	return New(cfg, nil, staticCatalog{}, store, newTestTracker(t), discard())
}

func TestHandleCommandNonCommandPassesThrough(t *testing.T) {
	b := newTestBot(t)
	_, handled := b.handleCommand(context.Background(), "u1", "c1", "how full is the disk?")
	assert.False(t, handled)
}

func TestHandleCommandUnknownSlashPassesThrough(t *testing.T) {
	b := newTestBot(t)
	_, handled := b.handleCommand(context.Background(), "u1", "c1", "/restart nginx please")
	assert.False(t, handled)
}

func TestHandleCommandHelp(t *testing.T) {
	b := newTestBot(t)
	reply, handled := b.handleCommand(context.Background(), "u1", "c1", "/help")
	assert.True(t, handled)
	assert.Contains(t, reply, "/calc")
	assert.Contains(t, reply, "/track")
}

func TestHandleCommandTools(t *testing.T) {
	b := newTestBot(t)
	reply, handled := b.handleCommand(context.Background(), "u1", "c1", "/tools")
	assert.True(t, handled)
	assert.Contains(t, reply, "get_disk_usage")
	assert.Contains(t, reply, "read_log")
}

func TestHandleCommandToolsHonorsDisabled(t *testing.T) {
	b := newTestBot(t)
	reply, _ := b.handleCommand(context.Background(), "restricted", "c1", "/tools")
	assert.Contains(t, reply, "get_disk_usage")
	assert.NotContains(t, reply, "read_log")
}

func TestHandleCommandReset(t *testing.T) {
	b := newTestBot(t)
	require.NoError(t, b.store.Append("c1",
		session.Message{Role: session.RoleUser, Content: "hi"},
	))

	reply, handled := b.handleCommand(context.Background(), "u1", "c1", "/reset")
	assert.True(t, handled)
	assert.Contains(t, reply, "cleared")

	history, err := b.store.History("c1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHandleCommandCalc(t *testing.T) {
	b := newTestBot(t)

	reply, handled := b.handleCommand(context.Background(), "u1", "c1", "/calc (2+3)*4")
	assert.True(t, handled)
	assert.Equal(t, "(2+3)*4 = 20", reply)

	reply, _ = b.handleCommand(context.Background(), "u1", "c1", "/calc 1/0")
	assert.Contains(t, reply, "division by zero")

	reply, _ = b.handleCommand(context.Background(), "u1", "c1", "/calc")
	assert.Contains(t, reply, "Usage")
}

func TestHandleCommandTrackFlow(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()

	reply, handled := b.handleCommand(ctx, "u1", "c1", "/track add check the backup job")
	assert.True(t, handled)
	assert.Contains(t, reply, "Tracked #1")

	reply, _ = b.handleCommand(ctx, "u1", "c1", "/track list")
	assert.Contains(t, reply, "#1 check the backup job")

	reply, _ = b.handleCommand(ctx, "u1", "c1", "/track done 1")
	assert.Equal(t, "Done: #1", reply)

	reply, _ = b.handleCommand(ctx, "u1", "c1", "/track list")
	assert.Contains(t, reply, "Nothing tracked")

	reply, _ = b.handleCommand(ctx, "u1", "c1", "/track done nope")
	assert.Contains(t, reply, "doesn't look like")
}

func TestSplitMessageShort(t *testing.T) {
	chunks := splitMessage("hello", 2000)
	assert.Equal(t, []string{"hello"}, chunks)
}

func TestSplitMessagePrefersNewlines(t *testing.T) {
	text := strings.Repeat("line one\n", 5) + "tail"
	chunks := splitMessage(text, 20)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 20)
		assert.NotEmpty(t, c)
	}
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "tail"))
}

func TestSplitMessageHardCut(t *testing.T) {
	text := strings.Repeat("x", 45)
	chunks := splitMessage(text, 20)
	assert.Equal(t, []string{
		strings.Repeat("x", 20),
		strings.Repeat("x", 20),
		strings.Repeat("x", 5),
	}, chunks)
}

func TestSplitMessageRuneBoundary(t *testing.T) {
	text := strings.Repeat("日", 30) // 3 bytes each
	for _, c := range splitMessage(text, 20) {
		assert.True(t, strings.HasPrefix(c, "日"))
		assert.LessOrEqual(t, len(c), 20)
	}
}
