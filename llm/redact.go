package llm

import "regexp"

const redactedMarker = "[redacted]"

// Backend stderr can echo environment details, including credentials the
// process was launched with. Anything matching a known secret shape is
// replaced before the text is logged or surfaced to a caller.
var secretPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	// API keys in the OpenAI/Anthropic "sk-" family.
	{regexp.MustCompile(`sk-[A-Za-z0-9_-]{16,}`), redactedMarker},
	// GitHub tokens.
	{regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{20,}`), redactedMarker},
	{regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`), redactedMarker},
	// AWS access key ids.
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), redactedMarker},
	// Slack tokens.
	{regexp.MustCompile(`xox[abprs]-[A-Za-z0-9-]{10,}`), redactedMarker},
	// Authorization header values.
	{regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]{8,}`), redactedMarker},
	// key=value style assignments; the key survives so the message stays
	// readable.
	{regexp.MustCompile(`(?i)(api[_-]?key|secret|token|password)(["']?\s*[:=]\s*["']?)[^\s"',;]+`), "${1}${2}" + redactedMarker},
}

// Redact replaces secret-shaped substrings in s with a fixed marker.
func Redact(s string) string {
	for _, p := range secretPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}
