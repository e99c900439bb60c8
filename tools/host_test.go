package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateOutput(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, truncateOutput(short))

	long := strings.Repeat("x", maxToolOutput+100)
	got := truncateOutput(long)
	assert.Contains(t, got, "[output truncated")
	assert.True(t, len(got) < len(long))
}

func TestTailFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var b strings.Builder
	for i := 1; i <= 100; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	out, err := tailFile(path, 3)
	require.NoError(t, err)
	assert.Equal(t, "line 98\nline 99\nline 100", out)
}

func TestTailFileShorterThanRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("only\n"), 0o644))

	out, err := tailFile(path, 50)
	require.NoError(t, err)
	assert.Equal(t, "only", out)
}

func TestTailFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	out, err := tailFile(path, 10)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReadLogToolDeniesUnlistedPath(t *testing.T) {
	tool := &ReadLogTool{allowedPaths: []string{"/var/log/**"}}

	_, err := tool.Execute(context.Background(), map[string]any{"path": "/etc/shadow"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestReadLogToolReadsAllowedPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svc.log")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\n"), 0o644))

	tool := &ReadLogTool{allowedPaths: []string{filepath.Join(dir, "*.log")}}
	out, err := tool.Execute(context.Background(), map[string]any{"path": path, "lines": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, "b\nc", out)
}

func TestServiceStatusToolRejectsBadName(t *testing.T) {
	tool := &ServiceStatusTool{allowedCommands: []string{".*"}}

	_, err := tool.Execute(context.Background(), map[string]any{"service": "nginx; rm -rf /"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid service name")
}

func TestServiceStatusToolRequiresAllowlist(t *testing.T) {
	tool := &ServiceStatusTool{}

	_, err := tool.Execute(context.Background(), map[string]any{"service": "nginx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the list of allowed commands")
}

func TestLoadTool(t *testing.T) {
	if _, err := os.Stat("/proc/loadavg"); err != nil {
		t.Skip("requires /proc/loadavg")
	}
	out, err := (&LoadTool{}).Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
