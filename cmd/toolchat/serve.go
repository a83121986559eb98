package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/mcp/session"
	"github.com/effective-security/toolchat/mcp/transport/httptransport"
	"github.com/effective-security/xlog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr      string
		endpoint  string
		webSearch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sum and say_hello tools, and the greeting resource over MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if endpoint != "" {
				a.cfg.Server.Endpoint = endpoint
			}
			if webSearch {
				a.cfg.Server.WebSearch = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address of the HTTP transport")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Path of the MCP endpoint")
	cmd.Flags().BoolVar(&webSearch, "web-search", false, "Register the web_search tool, requires TAVILY_API_KEY")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	reg, err := a.newRegistry()
	if err != nil {
		return err
	}

	transport := strings.ToLower(a.cfg.Server.Transport)
	logger.ContextKV(ctx, xlog.INFO,
		"status", "starting",
		"transport", transport,
		"tools", reg.Tools())

	switch transport {
	case session.TransportStdio:
		return reg.Server().Run(ctx, &mcp.StdioTransport{})
	case session.TransportHTTP:
		t := httptransport.NewHTTPTransport(reg.Server(), a.cfg.Server.Endpoint).
			WithAddr(a.cfg.Server.Addr)
		return t.Start(ctx)
	}
	return errors.Newf("serve: unsupported transport %q", a.cfg.Server.Transport)
}
