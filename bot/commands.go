package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const helpText = `I'm opsclaw, an operations assistant for this host.

Ask me anything in natural language, for example "how full is the root disk?"
or "show the last errors from the nginx log".

Commands:
  /help           this message
  /tools          list the diagnostic tools I can use
  /reset          forget this channel's conversation history
  /calc <expr>    evaluate an arithmetic expression
  /track add <text>   remember an item
  /track list         show your open items
  /track done <id>    mark an item completed`

// handleCommand processes slash commands locally, without involving the
// model. It returns the reply text and whether the message was a command.
func (b *Bot) handleCommand(ctx context.Context, userID, channelID, content string) (string, bool) {
	fields := strings.Fields(content)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false
	}

	switch fields[0] {
	case "/help":
		return helpText, true

	case "/tools":
		return b.toolsReply(userID), true

	case "/reset":
		if err := b.store.Reset(channelID); err != nil {
			b.logger.Error("session reset failed", "channel", channelID, "error", err)
			return "Could not reset the conversation, see the logs.", true
		}
		return "Conversation history cleared.", true

	case "/calc":
		expr := strings.TrimSpace(strings.TrimPrefix(content, "/calc"))
		if expr == "" {
			return "Usage: /calc <expression>", true
		}
		v, err := evalExpr(expr)
		if err != nil {
			return "Can't evaluate that: " + err.Error(), true
		}
		return fmt.Sprintf("%s = %s", expr, formatCalcResult(v)), true

	case "/track":
		return b.trackReply(ctx, userID, fields[1:]), true

	default:
		// Unknown slash commands go to the model, it may still make sense
		// of them.
		return "", false
	}
}

func (b *Bot) toolsReply(userID string) string {
	specs := b.catalog.Specs(b.cfg.UserFor(userID).DisabledTools)
	if len(specs) == 0 {
		return "No tools are available to you."
	}
	var sb strings.Builder
	sb.WriteString("Available tools:\n")
	for _, s := range specs {
		fmt.Fprintf(&sb, "  %s - %s\n", s.Name, s.Description)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) trackReply(ctx context.Context, userID string, args []string) string {
	if b.tracker == nil {
		return "The tracker is not configured."
	}
	if len(args) == 0 {
		return "Usage: /track add <text> | list | done <id>"
	}

	switch args[0] {
	case "add":
		text := strings.TrimSpace(strings.Join(args[1:], " "))
		if text == "" {
			return "Usage: /track add <text>"
		}
		id, err := b.tracker.Add(ctx, userID, text)
		if err != nil {
			b.logger.Error("tracker add failed", "user", userID, "error", err)
			return "Could not save that item."
		}
		return fmt.Sprintf("Tracked #%d: %s", id, text)

	case "list":
		items, err := b.tracker.List(ctx, userID)
		if err != nil {
			b.logger.Error("tracker list failed", "user", userID, "error", err)
			return "Could not read your items."
		}
		if len(items) == 0 {
			return "Nothing tracked. Add one with /track add <text>."
		}
		var sb strings.Builder
		sb.WriteString("Your open items:\n")
		for _, it := range items {
			fmt.Fprintf(&sb, "  #%d %s\n", it.ID, it.Text)
		}
		return strings.TrimRight(sb.String(), "\n")

	case "done":
		if len(args) != 2 {
			return "Usage: /track done <id>"
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return "That doesn't look like an item id."
		}
		ok, err := b.tracker.Done(ctx, userID, id)
		if err != nil {
			b.logger.Error("tracker done failed", "user", userID, "error", err)
			return "Could not update that item."
		}
		if !ok {
			return fmt.Sprintf("No open item #%d found for you.", id)
		}
		return fmt.Sprintf("Done: #%d", id)

	default:
		return "Usage: /track add <text> | list | done <id>"
	}
}
