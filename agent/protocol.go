package agent

import (
	"encoding/json"

	"github.com/opsclaw/opsclaw/tools"
)

// toolProtocolContract tells the model how to request tool execution over
// plain text. The backend has no native tool calling; this contract is the
// whole mechanism.
const toolProtocolContract = `To use a tool, emit a fenced code block tagged tool_call containing a JSON object with the tool name and its input:

` + "```tool_call" + `
{"tool": "<tool name>", "input": {"<arg>": "<value>"}}
` + "```" + `

You may emit several tool_call blocks in a single response; they run in order and their results are returned to you before you answer. A response containing no tool_call blocks is treated as your final answer to the user.

Available tools:
`

// buildSystemPrompt prepends the tool-usage contract and the serialized
// catalog to the base prompt. The result is built once per ask invocation
// and reused unchanged across every iteration of that call's loop.
func buildSystemPrompt(base string, specs []tools.Spec) string {
	catalog, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		// Specs are plain maps and strings; this cannot fail in practice.
		catalog = []byte("[]")
	}
	return toolProtocolContract + string(catalog) + "\n\n" + base
}
