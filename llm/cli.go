package llm

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/opsclaw/opsclaw/errors"
)

// DefaultTimeout bounds a single backend invocation.
const DefaultTimeout = 2 * time.Minute

// CLIInvoker spawns the backend binary once per call. The backend's own
// built-in tool abilities are disabled with an empty tool allowlist; the
// agent supplies tool access exclusively through its text protocol.
type CLIInvoker struct {
	binary  string
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCLIInvoker creates an invoker for the given backend binary and model.
// A non-positive timeout falls back to DefaultTimeout.
func NewCLIInvoker(binary, model string, timeout time.Duration, logger *slog.Logger) *CLIInvoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIInvoker{binary: binary, model: model, timeout: timeout, logger: logger}
}

// args builds the backend argv: prompt text first, then the model
// identifier, single-shot print mode, the system instructions, and an
// explicit empty tool allowlist.
func (c *CLIInvoker) args(system, prompt string) []string {
	return []string{
		prompt,
		"--model", c.model,
		"--print",
		"--system-prompt", system,
		"--allowed-tools", "",
	}
}

// Invoke runs the backend and returns its trimmed stdout. On timeout or
// non-zero exit the captured stderr is redacted and returned as the error;
// the call is never retried here.
func (c *CLIInvoker) Invoke(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary, c.args(system, prompt)...)
	// Stdin stays nil: the child sees an empty, immediately closed input.
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		c.logger.Error("backend timed out",
			"binary", c.binary,
			"timeout", c.timeout,
		)
		return "", errors.New("model backend timed out after %s", c.timeout)
	}
	if err != nil {
		detail := Redact(strings.TrimSpace(stderr.String()))
		if detail == "" {
			detail = Redact(err.Error())
		}
		c.logger.Error("backend invocation failed",
			"binary", c.binary,
			"elapsed", time.Since(start),
			"error", detail,
		)
		return "", errors.New("model backend failed: %s", detail)
	}

	c.logger.Debug("backend invocation complete",
		"elapsed", time.Since(start),
		"output_bytes", stdout.Len(),
	)
	return strings.TrimSpace(stdout.String()), nil
}
