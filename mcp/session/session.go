// Package session provides the client side of the MCP channel: a Session lists
// and invokes the tools of a server, and lists and reads its resources.
package session

import (
	"context"
)

//go:generate mockgen -source=session.go -destination=../../mocks/mocksession/session_mock.gen.go -package mocksession

// ToolDescriptor describes a tool exposed by the server.
type ToolDescriptor struct {
	// Name is unique within a server.
	Name        string `json:"name" yaml:"name" toml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	// InputSchema is the JSON schema of the tool arguments, as sent by the server.
	InputSchema any `json:"input_schema,omitempty" yaml:"input_schema,omitempty" toml:"input_schema,omitempty"`
}

// ToolCallResult is the result of a tool invocation.
// The first element of Content is authoritative.
type ToolCallResult struct {
	Content []string `json:"content" yaml:"content" toml:"content"`
	// IsError is set when the tool reported a failure.
	IsError bool `json:"is_error,omitempty" yaml:"is_error,omitempty" toml:"is_error,omitempty"`
}

// Text returns the first content element, or empty string.
func (r *ToolCallResult) Text() string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	return r.Content[0]
}

// ResourceDescriptor describes a resource or a resource template exposed by the server.
type ResourceDescriptor struct {
	// URI is the URI of the resource, or the URI template when Template is set.
	URI         string `json:"uri" yaml:"uri" toml:"uri"`
	Name        string `json:"name" yaml:"name" toml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	MIMEType    string `json:"mime_type,omitempty" yaml:"mime_type,omitempty" toml:"mime_type,omitempty"`
	Template    bool   `json:"template,omitempty" yaml:"template,omitempty" toml:"template,omitempty"`
}

// Session is an initialized channel to an MCP server.
type Session interface {
	// ListTools returns the tools of the server, in the server order.
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	// CallTool invokes the tool with the arguments.
	CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error)
	// ListResources returns the resources and resource templates of the server.
	ListResources(ctx context.Context) ([]ResourceDescriptor, error)
	// ReadResource returns the text content of the resource.
	ReadResource(ctx context.Context, uri string) (string, error)
	// Close releases the session.
	Close() error
}
