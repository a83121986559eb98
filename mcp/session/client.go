package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat/mcp", "session")

const (
	// TransportInMemory connects to a server running in the same process
	TransportInMemory = "inmemory"
	// TransportStdio starts the server as a subprocess and talks over its stdin/stdout
	TransportStdio = "stdio"
	// TransportHTTP connects to the streamable HTTP endpoint of the server
	TransportHTTP = "http"

	// DefaultURL is the default endpoint of the HTTP transport
	DefaultURL = "http://localhost:8000/mcp"

	clientName    = "toolchat"
	clientVersion = "1.0.0"
)

var (
	// ErrClosed is returned when the session is used after Close,
	// or marks the errors of a channel dropped by the server
	ErrClosed = errors.New("session: closed")
	// ErrTransportRequired is returned when the in-memory transport is not provided
	ErrTransportRequired = errors.New("session: in-memory transport requires a server transport")
)

// Config specifies the channel to the MCP server
type Config struct {
	// Transport is one of inmemory, stdio, http.
	// Default is http.
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty" validate:"omitempty,oneof=inmemory stdio http"`
	// URL of the streamable HTTP endpoint
	URL string `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,url"`
	// Command starts the server for the stdio transport
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`
}

// Option configures Connect
type Option func(*connectOptions)

type connectOptions struct {
	transport  mcp.Transport
	name       string
	version    string
	httpClient *http.Client
}

// WithTransport uses the transport instead of the one described by Config.
// It is required for the in-memory transport.
func WithTransport(t mcp.Transport) Option {
	return func(o *connectOptions) {
		o.transport = t
	}
}

// WithImplementation sets the client name and version reported to the server
func WithImplementation(name, version string) Option {
	return func(o *connectOptions) {
		o.name = name
		o.version = version
	}
}

// WithHTTPClient sets the HTTP client of the HTTP transport
func WithHTTPClient(client *http.Client) Option {
	return func(o *connectOptions) {
		o.httpClient = client
	}
}

// NewTransport returns the client transport described by the config
func NewTransport(cfg Config, httpClient *http.Client) (mcp.Transport, error) {
	switch strings.ToLower(cfg.Transport) {
	case TransportHTTP, "":
		return &mcp.StreamableClientTransport{
			Endpoint:   values.StringsCoalesce(cfg.URL, DefaultURL),
			HTTPClient: httpClient,
		}, nil
	case TransportStdio:
		if len(cfg.Command) == 0 || cfg.Command[0] == "" {
			return nil, errors.New("session: stdio transport requires a command")
		}
		// #nosec G204 -- the command comes from the trusted configuration
		cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
		return &mcp.CommandTransport{Command: cmd}, nil
	case TransportInMemory:
		return nil, ErrTransportRequired
	default:
		return nil, errors.Newf("session: unsupported transport %q", cfg.Transport)
	}
}

// Connect opens the channel and performs the MCP initialization handshake
func Connect(ctx context.Context, cfg Config, opts ...Option) (*ClientSession, error) {
	o := &connectOptions{}
	for _, opt := range opts {
		opt(o)
	}

	transport := o.transport
	if transport == nil {
		var err error
		transport, err = NewTransport(cfg, o.httpClient)
		if err != nil {
			return nil, err
		}
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    values.StringsCoalesce(o.name, clientName),
		Version: values.StringsCoalesce(o.version, clientVersion),
	}, nil)

	cs, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to MCP server")
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "connected",
		"transport", values.StringsCoalesce(cfg.Transport, TransportHTTP),
		"session", cs.ID())

	return &ClientSession{cs: cs}, nil
}

// ClientSession is the Session over an MCP client session
type ClientSession struct {
	cs     *mcp.ClientSession
	closed atomic.Bool
}

var _ Session = (*ClientSession)(nil)

// ListTools implements Session
func (s *ClientSession) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var list []ToolDescriptor
	for tool, err := range s.cs.Tools(ctx, nil) {
		if err != nil {
			return nil, errors.Wrap(markClosed(err), "failed to list tools")
		}
		list = append(list, ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	return list, nil
}

// CallTool implements Session
func (s *ClientSession) CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if args == nil {
		args = map[string]any{}
	}

	res, err := s.cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, errors.Wrapf(markClosed(err), "failed to call tool %s", name)
	}

	result := &ToolCallResult{
		IsError: res.IsError,
	}
	for _, c := range res.Content {
		result.Content = append(result.Content, contentText(c))
	}
	return result, nil
}

// ListResources implements Session.
// Resource templates are returned after the resources, with Template set.
func (s *ClientSession) ListResources(ctx context.Context) ([]ResourceDescriptor, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var list []ResourceDescriptor
	for res, err := range s.cs.Resources(ctx, nil) {
		if err != nil {
			return nil, errors.Wrap(markClosed(err), "failed to list resources")
		}
		list = append(list, ResourceDescriptor{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MIMEType,
		})
	}
	for tmpl, err := range s.cs.ResourceTemplates(ctx, nil) {
		if err != nil {
			return nil, errors.Wrap(markClosed(err), "failed to list resource templates")
		}
		list = append(list, ResourceDescriptor{
			URI:         tmpl.URITemplate,
			Name:        tmpl.Name,
			Description: tmpl.Description,
			MIMEType:    tmpl.MIMEType,
			Template:    true,
		})
	}
	return list, nil
}

// ReadResource implements Session
func (s *ClientSession) ReadResource(ctx context.Context, uri string) (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}

	res, err := s.cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return "", errors.Wrapf(markClosed(err), "failed to read resource %s", uri)
	}

	texts := make([]string, 0, len(res.Contents))
	for _, c := range res.Contents {
		if c != nil {
			texts = append(texts, c.Text)
		}
	}
	return strings.Join(texts, "\n"), nil
}

// markClosed marks the errors of a channel dropped by the server with ErrClosed
func markClosed(err error) error {
	if errors.Is(err, mcp.ErrConnectionClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, io.EOF) {
		return errors.Mark(err, ErrClosed)
	}
	return err
}

// Close implements Session. Close is idempotent.
func (s *ClientSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.cs.Close()
}

func contentText(c mcp.Content) string {
	if tc, ok := c.(*mcp.TextContent); ok {
		return tc.Text
	}
	js, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(js)
}
