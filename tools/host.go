package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/opsclaw/opsclaw/errors"
)

// maxToolOutput caps what a single tool feeds back into the transcript.
// Larger outputs are truncated with a notice so one verbose command cannot
// blow the context budget.
const maxToolOutput = 8192

// runCommand executes a host command and returns its combined output,
// truncated to maxToolOutput.
func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	text := truncateOutput(string(output))
	if err != nil {
		return "", errors.Wrapf(err, "command failed. Output:\n%s", text)
	}
	return text, nil
}

func truncateOutput(s string) string {
	if len(s) <= maxToolOutput {
		return s
	}
	return s[:maxToolOutput] + fmt.Sprintf("\n[output truncated: %d bytes total]", len(s))
}

// stringArg extracts an optional string argument.
func stringArg(input map[string]any, key string) string {
	v, _ := input[key].(string)
	return v
}

// intArg extracts an optional numeric argument; JSON decoding yields float64.
func intArg(input map[string]any, key string, def int) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// DiskUsageTool reports filesystem usage via df.
type DiskUsageTool struct{}

func (t *DiskUsageTool) Name() string { return "get_disk_usage" }
func (t *DiskUsageTool) Description() string {
	return "Reports filesystem disk usage. Optionally restrict to a single mount point."
}
func (t *DiskUsageTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mount": map[string]any{
				"type":        "string",
				"description": "Mount point to inspect, e.g. \"/\". Omit for all filesystems.",
			},
		},
		"additionalProperties": false,
	}
}
func (t *DiskUsageTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	args := []string{"-h"}
	if mount := stringArg(input, "mount"); mount != "" {
		args = append(args, mount)
	}
	return runCommand(ctx, "df", args...)
}

// MemoryUsageTool reports RAM and swap usage.
type MemoryUsageTool struct{}

func (t *MemoryUsageTool) Name() string { return "get_memory_usage" }
func (t *MemoryUsageTool) Description() string {
	return "Reports RAM and swap usage in megabytes."
}
func (t *MemoryUsageTool) InputSchema() map[string]any {
	return map[string]any{"type": "object", "additionalProperties": false}
}
func (t *MemoryUsageTool) Execute(ctx context.Context, _ map[string]any) (string, error) {
	return runCommand(ctx, "free", "-m")
}

// LoadTool reports the load averages.
type LoadTool struct{}

func (t *LoadTool) Name() string { return "get_load" }
func (t *LoadTool) Description() string {
	return "Reports the 1, 5 and 15 minute load averages."
}
func (t *LoadTool) InputSchema() map[string]any {
	return map[string]any{"type": "object", "additionalProperties": false}
}
func (t *LoadTool) Execute(_ context.Context, _ map[string]any) (string, error) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return "", errors.Wrapf(err, "could not read load averages")
	}
	return strings.TrimSpace(string(data)), nil
}

// UptimeTool reports how long the host has been up.
type UptimeTool struct{}

func (t *UptimeTool) Name() string { return "get_uptime" }
func (t *UptimeTool) Description() string {
	return "Reports system uptime and logged-in user count."
}
func (t *UptimeTool) InputSchema() map[string]any {
	return map[string]any{"type": "object", "additionalProperties": false}
}
func (t *UptimeTool) Execute(ctx context.Context, _ map[string]any) (string, error) {
	return runCommand(ctx, "uptime")
}

// ProcessListTool lists the heaviest processes.
type ProcessListTool struct{}

func (t *ProcessListTool) Name() string { return "list_processes" }
func (t *ProcessListTool) Description() string {
	return "Lists the top processes sorted by CPU or memory usage."
}
func (t *ProcessListTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sort": map[string]any{
				"type": "string",
				"enum": []any{"cpu", "memory"},
			},
			"limit": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": 50,
			},
		},
		"additionalProperties": false,
	}
}
func (t *ProcessListTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	sortKey := "-%cpu"
	if stringArg(input, "sort") == "memory" {
		sortKey = "-%mem"
	}
	out, err := runCommand(ctx, "ps", "aux", "--sort="+sortKey)
	if err != nil {
		return "", err
	}
	limit := intArg(input, "limit", 15)
	lines := strings.Split(out, "\n")
	if len(lines) > limit+1 { // keep the header row
		lines = lines[:limit+1]
	}
	return strings.Join(lines, "\n"), nil
}

// NetworkInfoTool summarizes interfaces and addresses.
type NetworkInfoTool struct{}

func (t *NetworkInfoTool) Name() string { return "get_network_info" }
func (t *NetworkInfoTool) Description() string {
	return "Lists network interfaces with their state and addresses."
}
func (t *NetworkInfoTool) InputSchema() map[string]any {
	return map[string]any{"type": "object", "additionalProperties": false}
}
func (t *NetworkInfoTool) Execute(ctx context.Context, _ map[string]any) (string, error) {
	return runCommand(ctx, "ip", "-brief", "addr")
}

// serviceNamePattern rejects anything that is not a plain unit name before
// it reaches systemctl.
var serviceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.@-]+$`)

// ServiceStatusTool queries systemd unit status. The composed command must
// also pass the configured allowlist.
type ServiceStatusTool struct {
	allowedCommands []string
}

func (t *ServiceStatusTool) Name() string { return "get_service_status" }
func (t *ServiceStatusTool) Description() string {
	return "Reports the systemd status of a named service unit."
}
func (t *ServiceStatusTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"service": map[string]any{
				"type":        "string",
				"description": "Unit name, e.g. \"nginx\" or \"sshd.service\".",
			},
		},
		"required":             []any{"service"},
		"additionalProperties": false,
	}
}
func (t *ServiceStatusTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	service := stringArg(input, "service")
	if !serviceNamePattern.MatchString(service) {
		return "", errors.New("invalid service name %q", service)
	}
	command := "systemctl status " + service
	if !isCommandAllowed(command, t.allowedCommands) {
		return "", errors.New("command %q is not in the list of allowed commands", command)
	}
	return runCommand(ctx, "systemctl", "status", service, "--no-pager", "--lines=10")
}

// ReadLogTool tails a log file. Only paths matching the configured globs are
// readable.
type ReadLogTool struct {
	allowedPaths []string
}

func (t *ReadLogTool) Name() string { return "read_log" }
func (t *ReadLogTool) Description() string {
	return "Reads the last lines of an allowlisted log file."
}
func (t *ReadLogTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Absolute path of the log file.",
			},
			"lines": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": 500,
			},
		},
		"required":             []any{"path"},
		"additionalProperties": false,
	}
}
func (t *ReadLogTool) Execute(_ context.Context, input map[string]any) (string, error) {
	path := stringArg(input, "path")
	allowed, err := isPathAllowed(path, t.allowedPaths)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", errors.New("access denied: path %q is not an allowed log file", path)
	}
	return tailFile(path, intArg(input, "lines", 50))
}

// tailReadBytes bounds how much of the file is read to find the tail.
const tailReadBytes = 256 * 1024

// tailFile returns the last n lines of a file without reading it whole.
func tailFile(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %q", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrapf(err, "failed to stat %q", path)
	}

	offset := info.Size() - tailReadBytes
	if offset < 0 {
		offset = 0
	}
	buf := make([]byte, info.Size()-offset)
	if len(buf) == 0 {
		return "", nil
	}
	if _, err := f.ReadAt(buf, offset); err != nil {
		return "", errors.Wrapf(err, "failed to read %q", path)
	}

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return truncateOutput(strings.Join(lines, "\n")), nil
}
