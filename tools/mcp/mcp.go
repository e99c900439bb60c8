// Package mcp bridges tools served by external MCP server subprocesses into
// the agent's catalog. Each configured server contributes its tools under
// their own names, alongside the built-in host diagnostics.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opsclaw/opsclaw/errors"
)

// Client manages the connection to a single MCP server subprocess.
type Client struct {
	Name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	tools []*ServerTool
}

// NewClient starts the server subprocess, connects, and discovers the tools
// it provides.
func NewClient(ctx context.Context, name, command string, args []string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr
	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "opsclaw", Version: "v1.0.0"}, nil)
	conn, err := mcpClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		cmd.Process.Kill()
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", name)
	}
	client := &Client{
		Name: name,
		cmd:  cmd,
		conn: conn,
	}

	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			cmd.Process.Kill()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", name)
		}
		for _, t := range list.Tools {
			client.tools = append(client.tools, &ServerTool{
				name:        t.Name,
				description: t.Description,
				schema:      schemaAsMap(t.InputSchema),
				client:      client,
			})
		}
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	logger.Info("mcp server connected",
		"server", name,
		"tools", len(client.tools),
	)
	return client, nil
}

// Tools returns the discovered tools in server order.
func (c *Client) Tools() []*ServerTool {
	return c.tools
}

// Stop terminates the server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}

// schemaAsMap converts the SDK's schema representation into the loose map
// form the catalog serializes. A missing or unconvertible schema becomes the
// permissive empty object schema.
func schemaAsMap(schema any) map[string]any {
	fallback := map[string]any{"type": "object"}
	if schema == nil {
		return fallback
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return fallback
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return fallback
	}
	return m
}

// ServerTool adapts one MCP-provided tool to the catalog's Tool interface.
type ServerTool struct {
	name        string
	description string
	schema      map[string]any
	client      *Client
}

func (t *ServerTool) Name() string                { return t.name }
func (t *ServerTool) Description() string         { return t.description }
func (t *ServerTool) InputSchema() map[string]any { return t.schema }

// Execute forwards the call to the MCP server and concatenates the text
// content of the result.
func (t *ServerTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.name,
		Arguments: input,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call tool '%s'", t.name)
	}
	var out string
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			out += tc.Text
		}
	}
	return out, nil
}
