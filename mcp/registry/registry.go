// Package registry provides the MCP server with the demo tools and resources:
// the `sum` and `say_hello` tools, the optional `web_search` tool,
// and the `greeting://{name}` resource template.
package registry

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/toolchat/tools/tavily"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat/mcp", "registry")

const (
	// DefaultName is the implementation name reported to clients.
	DefaultName = "Demo"
	// DefaultVersion is the implementation version reported to clients.
	DefaultVersion = "1.0.0"

	// GreetingURITemplate is the URI template of the greeting resource.
	GreetingURITemplate = "greeting://{name}"

	greetingScheme = "greeting://"
)

// Option configures the Registry.
type Option func(*options)

type options struct {
	name      string
	version   string
	webSearch *tavily.Tool
	noTools   bool
}

// WithImplementation sets the name and version reported to clients.
func WithImplementation(name, version string) Option {
	return func(o *options) {
		o.name = name
		o.version = version
	}
}

// WithWebSearch registers the web_search tool.
func WithWebSearch(tool *tavily.Tool) Option {
	return func(o *options) {
		o.webSearch = tool
	}
}

// WithoutTools creates a registry that exposes only resources.
func WithoutTools() Option {
	return func(o *options) {
		o.noTools = true
	}
}

// Registry holds the MCP server and the names of the registered tools.
type Registry struct {
	server *mcp.Server
	tools  []string
}

// New creates the MCP server and registers the tools and resources.
func New(opts ...Option) (*Registry, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	impl := &mcp.Implementation{
		Name:    values.StringsCoalesce(o.name, DefaultName),
		Version: values.StringsCoalesce(o.version, DefaultVersion),
	}
	r := &Registry{
		server: mcp.NewServer(impl, nil),
	}

	if !o.noTools {
		if err := register[SumInput](r, SumTool{}); err != nil {
			return nil, err
		}
		if err := register[SayHelloInput](r, SayHelloTool{}); err != nil {
			return nil, err
		}
		if o.webSearch != nil {
			if err := register[tavily.SearchRequest](r, o.webSearch); err != nil {
				return nil, err
			}
		}
	}

	r.server.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "greeting",
		Description: "Get a personalized greeting",
		URITemplate: GreetingURITemplate,
		MIMEType:    "text/plain",
	}, readGreeting)

	logger.KV(xlog.INFO,
		"status", "created",
		"name", impl.Name,
		"tools", r.tools)

	return r, nil
}

func register[I any](r *Registry, tool tools.Tool[I]) error {
	if slices.Contains(r.tools, tool.Name()) {
		return errors.Newf("tool already registered: %s", tool.Name())
	}
	if err := tools.Register(r.server, tool); err != nil {
		return err
	}
	r.tools = append(r.tools, tool.Name())
	return nil
}

// Server returns the MCP server.
func (r *Registry) Server() *mcp.Server {
	return r.server
}

// Tools returns the names of the registered tools, in registration order.
func (r *Registry) Tools() []string {
	return slices.Clone(r.tools)
}

// SumInput is the input of the sum tool.
type SumInput struct {
	A int `json:"a" yaml:"a" jsonschema:"title=A,description=First number to add" fake:"{number:-100000,100000}"`
	B int `json:"b" yaml:"b" jsonschema:"title=B,description=Second number to add" fake:"{number:-100000,100000}"`
}

// SumTool adds two numbers.
type SumTool struct{}

func (SumTool) Name() string {
	return "sum"
}

func (SumTool) Description() string {
	return "Add two numbers"
}

func (SumTool) Run(_ context.Context, in *SumInput) (string, error) {
	return strconv.Itoa(in.A + in.B), nil
}

// SayHelloInput is the input of the say_hello tool.
type SayHelloInput struct {
	Name string `json:"name" yaml:"name" jsonschema:"title=Name,description=Name of the person to greet" fake:"{firstname}"`
}

// SayHelloTool returns a greeting message.
type SayHelloTool struct{}

func (SayHelloTool) Name() string {
	return "say_hello"
}

func (SayHelloTool) Description() string {
	return "Return a greeting message"
}

func (SayHelloTool) Run(_ context.Context, in *SayHelloInput) (string, error) {
	return Greeting(in.Name), nil
}

// Greeting returns the personalized greeting.
func Greeting(name string) string {
	return fmt.Sprintf("Hello, %s!", name)
}

func readGreeting(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	name, ok := strings.CutPrefix(uri, greetingScheme)
	if !ok || name == "" {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "text/plain", Text: Greeting(name)},
		},
	}, nil
}
