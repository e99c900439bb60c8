package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// toolCallBlockRe matches fenced blocks tagged tool_call anywhere in the
// response. Matching is deliberately not line-anchored; models wrap these
// blocks in prose, indentation, and the occasional stray whitespace.
var toolCallBlockRe = regexp.MustCompile("(?s)```tool_call[ \t]*\n(.*?)\n?```")

// parseResponse separates human-readable text from embedded tool-call
// requests. A block whose body fails to decode is logged and skipped; the
// rest of the response still parses. Request ids are synthesized as
// cli-<epoch-millis>-<index> with the index counting surviving blocks in
// source order, so ids are unique within one response but not globally.
func parseResponse(raw string, logger *slog.Logger) (string, []ToolCallRequest) {
	matches := toolCallBlockRe.FindAllStringSubmatch(raw, -1)
	millis := time.Now().UnixMilli()

	var calls []ToolCallRequest
	for _, m := range matches {
		var payload struct {
			Tool  string         `json:"tool"`
			Input map[string]any `json:"input"`
		}
		if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
			logger.Warn("skipping malformed tool_call block", "error", err)
			continue
		}
		if payload.Tool == "" {
			logger.Warn("skipping tool_call block with no tool name")
			continue
		}
		calls = append(calls, ToolCallRequest{
			ID:    fmt.Sprintf("cli-%d-%d", millis, len(calls)),
			Name:  payload.Tool,
			Input: payload.Input,
		})
	}

	visible := strings.TrimSpace(toolCallBlockRe.ReplaceAllString(raw, ""))
	return visible, calls
}
