// Package agent implements the text-protocol loop at the heart of opsclaw.
//
// The model backend is an opaque text-in/text-out command-line process with
// no native tool calling. This package simulates tool calling on top of it:
// the system instructions teach the model to request tools through fenced
// tool_call blocks, and the loop alternates model invocations with tool
// executions until the model answers without requesting any.
//
// # The loop
//
// One Ask invocation runs a single sequential control flow:
//
//	build prompt -> invoke model -> parse -> done (no tool calls)
//	                                      -> execute calls -> append results -> build prompt
//
// Two independent ceilings bound the loop. The iteration counter caps how
// many times the model is invoked; exceeding it yields a fixed fallback
// answer, not an error. The tool-call tally caps how many tool executions
// one ask may spend in total; it is a soft limit, checked after each
// response's whole batch has run.
//
// # Defenses
//
// User-authored text is escaped before it enters the transcript so a message
// cannot forge "User:" or "Assistant:" turns. The transcript is front
// truncated to a hard ceiling before every model call. Malformed tool_call
// blocks are skipped, never fatal. Backend stderr is secret-redacted by the
// llm package before it reaches a log or a caller.
//
// # Concurrency
//
// Ask holds no shared mutable state; concurrent asks for different
// conversations only share the read-only catalog and the executor, both of
// which tolerate concurrent use.
package agent
