package tools

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsclaw/opsclaw/config"
)

// echoTool is a trivial tool for exercising the registry.
type echoTool struct{}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "Echoes the text argument." }
func (t *echoTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required":             []any{"text"},
		"additionalProperties": false,
	}
}
func (t *echoTool) Execute(_ context.Context, input map[string]any) (string, error) {
	return input["text"].(string), nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(&config.Config{}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.NoError(t, r.Register(&echoTool{}))
	return r
}

func TestSpecsOrderAndFiltering(t *testing.T) {
	r := newTestRegistry(t)

	all := r.Specs(nil)
	require.NotEmpty(t, all)
	assert.Equal(t, "get_disk_usage", all[0].Name, "registration order must be preserved")

	filtered := r.Specs([]string{"get_disk_usage", "echo"})
	for _, s := range filtered {
		assert.NotEqual(t, "get_disk_usage", s.Name)
		assert.NotEqual(t, "echo", s.Name)
	}
	assert.Len(t, filtered, len(all)-2)
}

func TestExecuteSuccess(t *testing.T) {
	r := newTestRegistry(t)

	content, isErr := r.Execute(context.Background(), "echo", map[string]any{"text": "hi"}, config.UserConfig{})
	assert.False(t, isErr)
	assert.Equal(t, "hi", content)
}

func TestExecuteUnknownTool(t *testing.T) {
	r := newTestRegistry(t)

	content, isErr := r.Execute(context.Background(), "nope", nil, config.UserConfig{})
	assert.True(t, isErr)
	assert.Contains(t, content, "unknown tool")
}

func TestExecuteDisabledForUser(t *testing.T) {
	r := newTestRegistry(t)

	user := config.UserConfig{DisabledTools: []string{"echo"}}
	content, isErr := r.Execute(context.Background(), "echo", map[string]any{"text": "hi"}, user)
	assert.True(t, isErr)
	assert.Contains(t, content, "disabled")
}

func TestExecuteSchemaRejection(t *testing.T) {
	r := newTestRegistry(t)

	// Missing required property.
	content, isErr := r.Execute(context.Background(), "echo", map[string]any{}, config.UserConfig{})
	assert.True(t, isErr)
	assert.Contains(t, content, "invalid input")

	// Wrong type.
	content, isErr = r.Execute(context.Background(), "echo", map[string]any{"text": 7}, config.UserConfig{})
	assert.True(t, isErr)
	assert.Contains(t, content, "invalid input")

	// Unknown extra property.
	content, isErr = r.Execute(context.Background(), "echo", map[string]any{"text": "x", "bogus": true}, config.UserConfig{})
	assert.True(t, isErr)
	assert.Contains(t, content, "invalid input")
}

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRegistry(t)
	assert.Error(t, r.Register(&echoTool{}))
}

func TestIsCommandAllowed(t *testing.T) {
	allowed := []string{`^systemctl status \S+$`}

	assert.True(t, isCommandAllowed("systemctl status nginx", allowed))
	assert.False(t, isCommandAllowed("systemctl restart nginx", allowed))
	assert.False(t, isCommandAllowed("", allowed))
	assert.False(t, isCommandAllowed("systemctl status nginx", nil))
}

func TestIsPathAllowed(t *testing.T) {
	patterns := []string{"/var/log/**/*.log", "/var/log/syslog"}

	ok, err := isPathAllowed("/var/log/nginx/access.log", patterns)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = isPathAllowed("/etc/shadow", patterns)
	require.NoError(t, err)
	assert.False(t, ok)
}
