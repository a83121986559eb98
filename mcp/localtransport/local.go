package localtransport

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat/mcp", "localtransport")

// ErrClosed is returned by Connect after the transport is closed.
var ErrClosed = errors.New("localtransport: closed")

// Transport is an in-process MCP transport.
// Every Connect starts a new session of the wrapped server over an in-memory
// pipe and returns the client end of the pipe.
type Transport struct {
	server *mcp.Server

	lock     sync.Mutex
	sessions []*mcp.ServerSession
	closed   bool
}

var _ mcp.Transport = (*Transport)(nil)

// New returns a transport connected to the server.
func New(server *mcp.Server) *Transport {
	return &Transport{
		server: server,
	}
}

// Connect implements mcp.Transport
func (t *Transport) Connect(ctx context.Context) (mcp.Connection, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if t.server == nil {
		return nil, errors.New("localtransport: server is not set")
	}

	serverEnd, clientEnd := mcp.NewInMemoryTransports()
	ss, err := t.server.Connect(ctx, serverEnd, nil)
	if err != nil {
		return nil, errors.Wrap(err, "localtransport: failed to start server session")
	}

	conn, err := clientEnd.Connect(ctx)
	if err != nil {
		_ = ss.Close()
		return nil, errors.Wrap(err, "localtransport: failed to connect client")
	}

	t.sessions = append(t.sessions, ss)
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "connected",
		"sessions", len(t.sessions))

	return conn, nil
}

// Sessions returns the number of server sessions started by the transport.
func (t *Transport) Sessions() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.sessions)
}

// Close closes all server sessions. Close is idempotent.
// Sessions already closed by their clients are skipped.
func (t *Transport) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	for _, ss := range t.sessions {
		if err := ss.Close(); err != nil {
			logger.KV(xlog.DEBUG, "status", "session_close", "err", err.Error())
		}
	}
	t.sessions = nil
	return nil
}
