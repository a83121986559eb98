package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/config"
	"github.com/effective-security/toolchat/encoding"
	"github.com/effective-security/toolchat/mcp/localtransport"
	"github.com/effective-security/toolchat/mcp/registry"
	"github.com/effective-security/toolchat/mcp/session"
	"github.com/effective-security/toolchat/pkg/llmfactory"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/store"
	"github.com/effective-security/toolchat/tools/tavily"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat/cmd", "toolchat")

const version = "1.0.0"

var logLevels = map[string]xlog.LogLevel{
	"TRACE":    xlog.TRACE,
	"DEBUG":    xlog.DEBUG,
	"INFO":     xlog.INFO,
	"NOTICE":   xlog.NOTICE,
	"WARNING":  xlog.WARNING,
	"ERROR":    xlog.ERROR,
	"CRITICAL": xlog.CRITICAL,
}

// app holds the flags and the dependencies shared by the commands
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfgFile   string
	logLevel  string
	transport string
	url       string
	format    string

	cfg *config.Config

	// newModel returns the completion model of the provider,
	// empty provider returns the default model
	newModel func(cfg *config.Config, provider string) (llms.Model, error)
	// openHistory returns the transcript store, nil when the history is disabled
	openHistory func(ctx context.Context, cfg *config.HistoryConfig) (store.TranscriptStore, func(), error)
	// httpClient is used by the HTTP transport
	httpClient *http.Client
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:          in,
		out:         out,
		errOut:      errOut,
		newModel:    newModel,
		openHistory: openHistory,
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "toolchat",
		Short:         "Answer queries with the tools of an MCP server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	cmd.SetIn(a.in)
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "cfg", os.Getenv("TOOLCHAT_CONFIG"), "Location of the config file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: TRACE, DEBUG, INFO, NOTICE, WARNING, ERROR, CRITICAL")
	flags.StringVar(&a.transport, "transport", "", "MCP transport: inmemory, stdio, http")
	flags.StringVar(&a.url, "url", "", "URL of the MCP streamable HTTP endpoint")
	flags.StringVarP(&a.format, "output", "o", encoding.FormatYAML, "Output format: json, yaml, toml")

	cmd.AddCommand(
		newServeCmd(a),
		newQueryCmd(a),
		newToolsCmd(a),
		newResourcesCmd(a),
		newHistoryCmd(a),
	)
	return cmd
}

// load reads the config and applies the flags
func (a *app) load() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.transport != "" {
		cfg.Server.Transport = a.transport
	}
	if a.url != "" {
		cfg.Server.URL = a.url
	}
	if a.logLevel != "" {
		cfg.LogLevel = strings.ToUpper(a.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, ok := logLevels[cfg.LogLevel]
	if !ok {
		return errors.Newf("unsupported log level: %s", cfg.LogLevel)
	}
	xlog.SetFormatter(xlog.NewStringFormatter(a.errOut))
	xlog.SetGlobalLogLevel(level)

	a.cfg = cfg
	return nil
}

// newRegistry returns the tools and resources of the server
func (a *app) newRegistry() (*registry.Registry, error) {
	var opts []registry.Option
	if a.cfg.Server.WebSearch {
		ws, err := tavily.New()
		if err != nil {
			return nil, errors.WithMessage(err, "web search")
		}
		opts = append(opts, registry.WithWebSearch(ws))
	}
	return registry.New(opts...)
}

// connect opens the session to the configured server.
// The in-memory transport serves the registry in this process.
func (a *app) connect(ctx context.Context) (session.Session, error) {
	sc := a.cfg.Server.Session()
	opts := []session.Option{
		session.WithImplementation("toolchat", version),
		session.WithHTTPClient(a.httpClient),
	}

	var local *localtransport.Transport
	if strings.EqualFold(sc.Transport, session.TransportInMemory) {
		reg, err := a.newRegistry()
		if err != nil {
			return nil, err
		}
		local = localtransport.New(reg.Server())
		opts = append(opts, session.WithTransport(local))
	}

	sess, err := session.Connect(ctx, sc, opts...)
	if err != nil {
		if local != nil {
			_ = local.Close()
		}
		return nil, err
	}
	if local != nil {
		return &localSession{Session: sess, transport: local}, nil
	}
	return sess, nil
}

// localSession closes the in-process server with the session
type localSession struct {
	session.Session
	transport *localtransport.Transport
}

func (s *localSession) Close() error {
	err := s.Session.Close()
	_ = s.transport.Close()
	return err
}

// print writes the value in the output format
func (a *app) print(v any) error {
	enc, err := encoding.NewEncoder(a.format)
	if err != nil {
		return err
	}

	// the values are normalized to their JSON form,
	// so the custom JSON marshalers apply to every format
	js, err := json.Marshal(v)
	if err != nil {
		return errors.WithStack(err)
	}
	var generic any
	if err := json.Unmarshal(js, &generic); err != nil {
		return errors.WithStack(err)
	}

	bs, err := enc.Marshal(generic)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", a.format)
	}
	_, err = a.out.Write(bs)
	return err
}

func newModel(cfg *config.Config, provider string) (llms.Model, error) {
	f := llmfactory.New(&cfg.LLM)
	if provider != "" {
		return f.ModelByType(strings.ToUpper(provider))
	}
	return f.DefaultModel()
}
