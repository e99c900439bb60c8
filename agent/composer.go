package agent

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/opsclaw/opsclaw/config"
)

// basePrompt is the built-in persona. Operators extend it through the
// prompt.addition config key and reference documents.
const basePrompt = `You are opsclaw, an operations assistant for this host. You answer questions about the system's state. Use the available tools to gather real data before answering; never guess at command output. Keep answers short and factual.`

// Composer builds the base instruction text from the built-in prompt, the
// operator's addition, and any configured reference documents.
type Composer struct {
	addition string
	docPaths []string
	logger   *slog.Logger
}

func NewComposer(cfg config.PromptConfig, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		addition: cfg.Addition,
		docPaths: cfg.ReferenceDocs,
		logger:   logger,
	}
}

// Compose returns the base prompt. Unreadable reference documents are
// skipped with a warning rather than failing the ask.
func (c *Composer) Compose() string {
	parts := []string{basePrompt}
	if c.addition != "" {
		parts = append(parts, c.addition)
	}
	for _, path := range c.docPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			c.logger.Warn("reference document unreadable, skipping",
				"path", path,
				"error", err,
			)
			continue
		}
		parts = append(parts, fmt.Sprintf("Reference document (%s):\n%s", path, strings.TrimSpace(string(data))))
	}
	return strings.Join(parts, "\n\n")
}
