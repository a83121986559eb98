package tools

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/metricskey"
	"github.com/effective-security/toolchat/pkg/schema"
	"github.com/effective-security/xlog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "tools")

// ErrEmptyResult is returned by Register handlers when a tool produced no output.
var ErrEmptyResult = errors.New("tool returned empty result")

// Tool is a typed function exposed to MCP clients.
type Tool[I any] interface {
	// Name returns the name of the Tool, unique within a server.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Run executes the tool and returns its textual result.
	Run(context.Context, *I) (string, error)
}

// Descriptor returns the MCP descriptor of the tool,
// with the input schema reflected from I.
func Descriptor[I any](tool Tool[I]) (*mcp.Tool, error) {
	sc, err := schema.For[I]()
	if err != nil {
		return nil, errors.WithMessagef(err, "tool %s", tool.Name())
	}
	params, err := sc.Map()
	if err != nil {
		return nil, errors.WithMessagef(err, "tool %s", tool.Name())
	}
	return &mcp.Tool{
		Name:        tool.Name(),
		Description: tool.Description(),
		InputSchema: params,
	}, nil
}

// Register adds the tool to the server.
// A tool error is reported to the client as a result with IsError set.
func Register[I any](server *mcp.Server, tool Tool[I]) error {
	desc, err := Descriptor(tool)
	if err != nil {
		return err
	}

	name := tool.Name()
	mcp.AddTool(server, desc, func(ctx context.Context, _ *mcp.CallToolRequest, in I) (*mcp.CallToolResult, any, error) {
		metricskey.StatsServerToolCalls.IncrCounter(1, name)

		out, err := tool.Run(ctx, &in)
		if err != nil {
			logger.ContextKV(ctx, xlog.DEBUG,
				"status", "tool_failed",
				"tool", name,
				"err", err.Error())
			return nil, nil, err
		}
		if out == "" {
			return nil, nil, ErrEmptyResult
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
		}, nil, nil
	})

	logger.KV(xlog.DEBUG, "status", "registered", "tool", name)
	return nil
}
