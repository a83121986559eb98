// Package orchestrator drives one user query through the tool-calling protocol:
// it lists the tools of an MCP session, offers them to the completion model,
// invokes the tools the model requests, and asks the model for the final answer
// with tool calls disabled.
package orchestrator
