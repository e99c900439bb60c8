// Package llm invokes the external model backend. The backend is an opaque
// text-in/text-out command-line program; there is no structured API and no
// native tool calling. Tool access is simulated by the agent package's text
// protocol layered on top of this invoker.
package llm

import "context"

// Invoker runs one model call. Implementations must be safe for concurrent
// use by unrelated ask invocations.
type Invoker interface {
	// Invoke sends the system instructions and prompt to the backend and
	// returns the raw model response. A non-nil error means the backend
	// process failed or timed out; the caller must not retry.
	Invoke(ctx context.Context, system, prompt string) (string, error)
}

// InvokerFunc adapts a function to the Invoker interface, mainly for tests.
type InvokerFunc func(ctx context.Context, system, prompt string) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}
