package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opsclaw/opsclaw/config"
	"github.com/opsclaw/opsclaw/llm"
	"github.com/opsclaw/opsclaw/session"
	"github.com/opsclaw/opsclaw/tools"
)

// ToolCatalog lists the tool specs serialized into the system instructions.
// The disabled set comes from per-user configuration.
type ToolCatalog interface {
	Specs(disabled []string) []tools.Spec
}

// ToolExecutor runs one tool call. The boolean is true when content
// describes a failure; executors never fail the loop itself. Implementations
// must tolerate concurrent use from unrelated ask invocations.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, input map[string]any, user config.UserConfig) (content string, isError bool)
}

// ToolCallRequest is one decoded tool_call block.
type ToolCallRequest struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolExecutionResult is consumed immediately to build the next iteration's
// prompt and the audit log; it is never persisted.
type ToolExecutionResult struct {
	ID      string
	Name    string
	Result  string
	IsError bool
}

// ToolCallLog is the audit record of one executed call, returned to the
// caller with the final answer.
type ToolCallLog struct {
	Name          string         `json:"name"`
	Input         map[string]any `json:"input"`
	OutputPreview string         `json:"output_preview"`
}

// Usage mirrors token accounting from structured backends. The CLI backend
// cannot observe true token usage, so these are always zero.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AskResult is the terminal output of one Ask invocation.
type AskResult struct {
	Response  string
	ToolCalls []ToolCallLog
	Usage     Usage
}

// Options carries backend-specific extras. The text-only backend ignores
// attachments with a logged warning rather than failing.
type Options struct {
	Attachments []string
}

const (
	// fallbackMaxIterations is returned when the loop hits its iteration
	// ceiling without the model producing a final answer.
	fallbackMaxIterations = "I was unable to complete the request: maximum iterations reached."

	// apologyEmptyResponse stands in for a final answer the model left blank.
	apologyEmptyResponse = "I'm sorry, I wasn't able to produce an answer. Please try rephrasing the question."

	// outputPreviewLimit truncates tool output in the audit log.
	outputPreviewLimit = 200
)

// Agent orchestrates the bounded model/tool loop over a text-only backend.
type Agent struct {
	invoker        llm.Invoker
	catalog        ToolCatalog
	executor       ToolExecutor
	composer       *Composer
	maxIterations  int
	maxToolCalls   int
	maxContextSize int
	logger         *slog.Logger
}

// New creates an agent. Zero limits fall back to the config defaults.
func New(invoker llm.Invoker, catalog ToolCatalog, executor ToolExecutor, composer *Composer, cfg config.AgentConfig, logger *slog.Logger) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 10
	}
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = 20
	}
	if cfg.MaxContextSize <= 0 {
		cfg.MaxContextSize = 100000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		invoker:        invoker,
		catalog:        catalog,
		executor:       executor,
		composer:       composer,
		maxIterations:  cfg.MaxIterations,
		maxToolCalls:   cfg.MaxToolCalls,
		maxContextSize: cfg.MaxContextSize,
		logger:         logger,
	}
}

// Ask answers one question against the given conversation history. History
// is consumed read-only; each call rebuilds its transcript from scratch and
// shares no state with other calls, so concurrent Asks for different
// conversations are safe.
//
// A returned error always means the backend process failed. Hitting the
// iteration or tool-call ceiling is a normal, documented termination path
// that produces an explanatory response instead.
func (a *Agent) Ask(ctx context.Context, question string, history []session.Message, user config.UserConfig, opts Options) (*AskResult, error) {
	if len(opts.Attachments) > 0 {
		a.logger.Warn("attachments are not supported by the text-only backend, ignoring",
			"count", len(opts.Attachments),
		)
	}

	// The system instructions are built once per ask and reused unchanged
	// across every iteration.
	system := buildSystemPrompt(a.composer.Compose(), a.catalog.Specs(user.DisabledTools))
	transcript := buildTranscript(history, question)

	var callLog []ToolCallLog
	tally := 0

	for iteration := 1; ; iteration++ {
		if iteration > a.maxIterations {
			a.logger.Error("iteration limit reached without a final answer",
				"max_iterations", a.maxIterations,
				"tool_calls", tally,
			)
			return &AskResult{Response: fallbackMaxIterations, ToolCalls: callLog}, nil
		}

		// Tool results appended mid-loop can push the buffer back over the
		// ceiling, so the governor runs before every invocation.
		transcript = truncateContext(transcript, a.maxContextSize)

		raw, err := a.invoker.Invoke(ctx, system, transcript)
		if err != nil {
			return nil, err
		}

		visible, calls := parseResponse(raw, a.logger)
		a.logger.Debug("model response parsed",
			"iteration", iteration,
			"tool_calls", len(calls),
			"visible_bytes", len(visible),
		)

		// No tool calls means this is the final answer.
		if len(calls) == 0 {
			if visible == "" {
				visible = apologyEmptyResponse
			}
			return &AskResult{Response: visible, ToolCalls: callLog}, nil
		}

		tally += len(calls)

		// Sequential, source order: later calls in the same response may
		// depend on earlier ones appearing first in the transcript.
		results := make([]ToolExecutionResult, 0, len(calls))
		for _, call := range calls {
			content, isErr := a.executor.Execute(ctx, call.Name, call.Input, user)
			results = append(results, ToolExecutionResult{
				ID:      call.ID,
				Name:    call.Name,
				Result:  content,
				IsError: isErr,
			})
			callLog = append(callLog, ToolCallLog{
				Name:          call.Name,
				Input:         call.Input,
				OutputPreview: preview(content),
			})
		}

		// Soft limit: the tally is checked after the whole batch has run, so
		// the call log can overshoot the configured maximum by at most one
		// batch. Stopping mid-batch would leave the model's interleaved
		// calls half-executed.
		if tally > a.maxToolCalls {
			a.logger.Warn("tool call limit reached",
				"max_tool_calls", a.maxToolCalls,
				"executed", tally,
			)
			framed := fmt.Sprintf("%s\n\n[stopped: the configured tool call limit of %d was reached]", visible, a.maxToolCalls)
			return &AskResult{Response: strings.TrimSpace(framed), ToolCalls: callLog}, nil
		}

		transcript += "\n\n" + formatToolResults(results)
	}
}

// formatToolResults renders one iteration's results as the Tool Results
// section appended to the transcript, one fenced block per result.
func formatToolResults(results []ToolExecutionResult) string {
	var b strings.Builder
	b.WriteString("Tool Results:")
	for _, r := range results {
		tag := "tool_result"
		if r.IsError {
			tag = "tool_result error"
		}
		fmt.Fprintf(&b, "\n\n```%s\n[%s] %s\n%s\n```", tag, r.ID, r.Name, r.Result)
	}
	return b.String()
}

func preview(s string) string {
	if len(s) <= outputPreviewLimit {
		return s
	}
	return s[:outputPreviewLimit] + "..."
}
