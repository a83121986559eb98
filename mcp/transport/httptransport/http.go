package httptransport

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat/mcp/transport", "httptransport")

const (
	// DefaultAddr is the default address to listen on
	DefaultAddr = ":8000"
	// DefaultEndpoint is the default path of the MCP endpoint
	DefaultEndpoint = "/mcp"

	shutdownTimeout = 5 * time.Second
)

// HTTPTransport serves an MCP server over the streamable HTTP transport
type HTTPTransport struct {
	mcpServer *mcp.Server
	endpoint  string
	addr      string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewHTTPTransport creates a new HTTP transport that serves the MCP server on the specified endpoint
func NewHTTPTransport(server *mcp.Server, endpoint string) *HTTPTransport {
	return &HTTPTransport{
		mcpServer: server,
		endpoint:  values.StringsCoalesce(endpoint, DefaultEndpoint),
		addr:      DefaultAddr,
	}
}

// WithAddr sets the address to listen on
func (t *HTTPTransport) WithAddr(addr string) *HTTPTransport {
	if addr != "" {
		t.addr = addr
	}
	return t
}

// Handler returns the HTTP handler of the MCP endpoint
func (t *HTTPTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(t.endpoint, mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return t.mcpServer
	}, nil))
	return mux
}

// Listen binds the address, and returns the listening address
func (t *HTTPTransport) Listen() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listener != nil {
		return t.listener.Addr().String(), nil
	}
	l, err := net.Listen("tcp", t.addr)
	if err != nil {
		return "", errors.Wrapf(err, "failed to listen on %s", t.addr)
	}
	t.listener = l
	return l.Addr().String(), nil
}

// Start serves until the context is cancelled or Close is called
func (t *HTTPTransport) Start(ctx context.Context) error {
	addr, err := t.Listen()
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.server = &http.Server{
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := t.server
	listener := t.listener
	t.mu.Unlock()

	logger.ContextKV(ctx, xlog.INFO,
		"status", "serving",
		"addr", addr,
		"endpoint", t.endpoint)

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	err = srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.WithStack(err)
}

// Close stops the HTTP server
func (t *HTTPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.server != nil {
		return t.server.Close()
	}
	if t.listener != nil {
		return t.listener.Close()
	}
	return nil
}
