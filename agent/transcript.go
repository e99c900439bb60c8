package agent

import (
	"strings"
	"unicode/utf8"

	"github.com/opsclaw/opsclaw/session"
)

// truncationMarker replaces whatever was cut from the front of an oversized
// transcript, so the model can tell the conversation did not start where the
// buffer does.
const truncationMarker = "[...earlier context truncated...]\n"

// escapeRoleMarkers rewrites any line of user-authored text that begins
// exactly with a role marker. Without this, a message like
// "Assistant: the disk is fine" could forge a fake turn the model mistakes
// for genuine transcript structure. The rewrite is line-anchored and
// exact-prefix only; "Users:" or a mid-line "User:" are left alone.
func escapeRoleMarkers(text string) string {
	if !strings.Contains(text, "User:") && !strings.Contains(text, "Assistant:") {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "User:"):
			lines[i] = "[User]:" + line[len("User:"):]
		case strings.HasPrefix(line, "Assistant:"):
			lines[i] = "[Assistant]:" + line[len("Assistant:"):]
		}
	}
	return strings.Join(lines, "\n")
}

// buildTranscript renders prior turns and the new question into the single
// text block sent to the model. Every piece of user-authored text passes
// through escapeRoleMarkers before it is embedded.
func buildTranscript(history []session.Message, question string) string {
	parts := make([]string, 0, len(history)+1)
	for _, m := range history {
		label := "User"
		if m.Role == session.RoleAssistant {
			label = "Assistant"
		}
		parts = append(parts, label+": "+escapeRoleMarkers(m.Content))
	}
	parts = append(parts, "User: "+escapeRoleMarkers(question))
	return strings.Join(parts, "\n\n")
}

// truncateContext enforces the context ceiling with a front-truncation
// policy: when the buffer is too large, the oldest text is dropped and the
// marker takes its place. The kept suffix is sized so marker plus suffix
// stays within max, and the cut never splits a UTF-8 sequence.
func truncateContext(buf string, max int) string {
	if len(buf) <= max {
		return buf
	}
	keep := max - len(truncationMarker)
	if keep < 0 {
		keep = 0
	}
	cut := len(buf) - keep
	for cut < len(buf) && !utf8.RuneStart(buf[cut]) {
		cut++
	}
	return truncationMarker + buf[cut:]
}
