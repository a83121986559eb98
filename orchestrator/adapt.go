package orchestrator

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/mcp/session"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llmutils"
)

// ToolTypeFunction is the type of the tools offered to the model
const ToolTypeFunction = "function"

// Adapt converts the tool descriptors of an MCP server to the function tools of
// the completion API. The order and the values are preserved as is: the schema
// is not validated and the descriptors are not filtered.
func Adapt(tools []session.ToolDescriptor) []llms.Tool {
	specs := make([]llms.Tool, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, llms.Tool{
			Type: ToolTypeFunction,
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return specs
}

// DecodeArguments decodes the arguments of a tool call.
// Empty and null arguments decode to an empty map.
// Text around the JSON object, such as markdown fences, is ignored.
// Numbers are decoded as json.Number to keep their precision.
func DecodeArguments(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(llmutils.CleanJSON([]byte(trimmed))))
	dec.UseNumber()

	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "arguments are not a JSON object"), ErrInvalidArguments)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.Mark(errors.New("arguments have trailing data"), ErrInvalidArguments)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
