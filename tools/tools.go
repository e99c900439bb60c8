// Package tools implements the read-only diagnostic tool catalog the agent
// exposes to the model. Tool failures are data, not errors: Execute returns
// the failure text with isError=true so the loop can feed it back to the
// model instead of aborting.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/opsclaw/opsclaw/config"
	"github.com/opsclaw/opsclaw/errors"
)

// Spec is the catalog entry serialized into the model's system instructions.
type Spec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Tool defines a single diagnostic action the agent can take. Implementations
// must be safe for concurrent use and must not mutate host state.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, input map[string]any) (string, error)
}

// Registry holds the catalog. The registry itself is read-only after
// construction and may be shared by concurrent ask invocations.
type Registry struct {
	tools      map[string]Tool
	order      []string
	validators map[string]*jsonschema.Schema
	logger     *slog.Logger
}

// NewRegistry builds the default host diagnostics catalog.
func NewRegistry(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:      make(map[string]Tool),
		validators: make(map[string]*jsonschema.Schema),
		logger:     logger,
	}

	defaults := []Tool{
		&DiskUsageTool{},
		&MemoryUsageTool{},
		&LoadTool{},
		&UptimeTool{},
		&ProcessListTool{},
		&NetworkInfoTool{},
		&ServiceStatusTool{allowedCommands: cfg.Tools.AllowedCommands},
		&ReadLogTool{allowedPaths: cfg.Tools.LogPaths},
	}
	for _, t := range defaults {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool, compiling its declared input schema so Execute can
// reject malformed model-supplied input at the boundary.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if _, dup := r.tools[name]; dup {
		return errors.New("tool %q registered twice", name)
	}

	if schema := t.InputSchema(); schema != nil {
		raw, err := json.Marshal(schema)
		if err != nil {
			return errors.Wrapf(err, "tool %q has an unserializable schema", name)
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
			return errors.Wrapf(err, "add schema resource for %q", name)
		}
		compiled, err := compiler.Compile("schema.json")
		if err != nil {
			return errors.Wrapf(err, "compile schema for %q", name)
		}
		r.validators[name] = compiled
	}

	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Specs returns the catalog in registration order, minus the disabled set.
func (r *Registry) Specs(disabled []string) []Spec {
	off := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		off[name] = true
	}

	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		if off[name] {
			continue
		}
		t := r.tools[name]
		specs = append(specs, Spec{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return specs
}

// Execute runs one tool call. The boolean is true when the content describes
// a failure: unknown tool, user-disabled tool, schema mismatch, or the tool's
// own error. Execute never returns a Go error; the agent loop treats these
// outcomes as transcript data.
func (r *Registry) Execute(ctx context.Context, name string, input map[string]any, user config.UserConfig) (string, bool) {
	t, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("unknown tool %q", name), true
	}

	for _, d := range user.DisabledTools {
		if d == name {
			return fmt.Sprintf("tool %q is disabled for this user", name), true
		}
	}

	if v, hasSchema := r.validators[name]; hasSchema {
		if input == nil {
			input = map[string]any{}
		}
		if err := v.Validate(normalizeForSchema(input)); err != nil {
			r.logger.Warn("tool input rejected by schema",
				"tool", name,
				"error", err,
			)
			return fmt.Sprintf("invalid input for tool %q: %v", name, err), true
		}
	}

	content, err := t.Execute(ctx, input)
	if err != nil {
		return err.Error(), true
	}
	return content, false
}

// normalizeForSchema round-trips input through JSON so validation sees the
// exact value shapes the schema library expects (json.Number free, float64
// numbers, map[string]any everywhere).
func normalizeForSchema(input map[string]any) any {
	raw, err := json.Marshal(input)
	if err != nil {
		return input
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return input
	}
	return v
}

// isPathAllowed reports whether path matches any of the doublestar patterns.
func isPathAllowed(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, errors.Wrapf(err, "invalid glob pattern '%s'", pattern)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// isCommandAllowed reports whether a command line matches the allowlist.
// Patterns are regular expressions; an invalid pattern falls back to exact
// string comparison.
func isCommandAllowed(command string, allowed []string) bool {
	if len(strings.Fields(command)) == 0 {
		return false
	}
	for _, pattern := range allowed {
		re, err := regexp.Compile(pattern)
		if err != nil {
			if command == pattern {
				return true
			}
			continue
		}
		if re.MatchString(command) {
			return true
		}
	}
	return false
}
