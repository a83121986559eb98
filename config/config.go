// Package config provides the configuration of the toolchat binary:
// the MCP server channel, the query settings, the transcript history
// and the completion providers.
package config

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/mcp/session"
	"github.com/effective-security/toolchat/mcp/transport/httptransport"
	"github.com/effective-security/toolchat/orchestrator"
	"github.com/effective-security/toolchat/pkg/llmfactory"
	"github.com/effective-security/toolchat/store"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultModel is the model used when neither the config nor the command specify one
	DefaultModel = "gpt-4o-mini"
	// DefaultHistoryPrefix is the key prefix of the transcripts in Redis
	DefaultHistoryPrefix = "toolchat"
)

// Config of the toolchat binary
type Config struct {
	Server  ServerConfig      `json:"server" yaml:"server"`
	Chat    ChatConfig        `json:"chat" yaml:"chat"`
	History HistoryConfig     `json:"history" yaml:"history"`
	LLM     llmfactory.Config `json:"llm" yaml:"llm"`
	// LogLevel is the level of the package loggers
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=TRACE DEBUG INFO NOTICE WARNING ERROR CRITICAL"`
}

// ServerConfig specifies the MCP server: the channel of the client,
// and the listener of the `serve` command
type ServerConfig struct {
	// Transport is one of inmemory, stdio, http
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty" validate:"omitempty,oneof=inmemory stdio http"`
	// URL of the streamable HTTP endpoint
	URL string `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,url"`
	// Command starts the server for the stdio transport
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`
	// Addr is the listen address of the HTTP server
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// Endpoint is the path of the streamable HTTP endpoint
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// WebSearch registers the web_search tool, it requires TAVILY_API_KEY
	WebSearch bool `json:"web_search,omitempty" yaml:"web_search,omitempty"`
}

// Session returns the client channel config.
// The stdio transport without a command starts this binary as the server.
func (c *ServerConfig) Session() session.Config {
	cfg := session.Config{
		Transport: c.Transport,
		URL:       c.URL,
		Command:   c.Command,
	}
	if strings.EqualFold(cfg.Transport, session.TransportStdio) && len(cfg.Command) == 0 {
		cfg.Command = []string{os.Args[0], "serve", "--transport", session.TransportStdio}
	}
	return cfg
}

// ChatConfig specifies the queries
type ChatConfig struct {
	// Provider is the name of the completion provider, default is the LLM default provider
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	// Model overrides the default model of the provider
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// CompletionTimeout is the deadline of each completion call, as duration string
	CompletionTimeout string `json:"completion_timeout,omitempty" yaml:"completion_timeout,omitempty"`
	// ToolTimeout is the deadline of each tool invocation, as duration string
	ToolTimeout string `json:"tool_timeout,omitempty" yaml:"tool_timeout,omitempty"`
	// ToolErrorPolicy is report or abort
	ToolErrorPolicy string `json:"tool_error_policy,omitempty" yaml:"tool_error_policy,omitempty" validate:"omitempty,oneof=report abort"`
	// MaxConcurrentTools bounds the tool calls of a round running concurrently
	MaxConcurrentTools int `json:"max_concurrent_tools,omitempty" yaml:"max_concurrent_tools,omitempty" validate:"gte=0"`
}

// Orchestrator returns the orchestrator config
func (c *ChatConfig) Orchestrator() (orchestrator.Config, error) {
	cfg := orchestrator.Config{
		MaxConcurrentTools: c.MaxConcurrentTools,
	}

	var err error
	if cfg.CompletionTimeout, err = parseDuration(c.CompletionTimeout); err != nil {
		return cfg, errors.WithMessage(err, "completion_timeout")
	}
	if cfg.ToolTimeout, err = parseDuration(c.ToolTimeout); err != nil {
		return cfg, errors.WithMessage(err, "tool_timeout")
	}
	if cfg.ToolErrorPolicy, err = orchestrator.ParseToolErrorPolicy(c.ToolErrorPolicy); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// OrchestratorOptions returns the options of the orchestrator
func (c *ChatConfig) OrchestratorOptions() ([]orchestrator.Option, error) {
	cfg, err := c.Orchestrator()
	if err != nil {
		return nil, err
	}
	return []orchestrator.Option{orchestrator.WithConfig(cfg)}, nil
}

// HistoryConfig specifies the transcript history.
// The history is disabled when RedisURL is empty.
type HistoryConfig struct {
	// RedisURL is the redis:// URL of the server
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" validate:"omitempty,url"`
	// Prefix of the keys
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// MaxEntries evicts the oldest transcripts above the limit, zero means no limit
	MaxEntries int `json:"max_entries,omitempty" yaml:"max_entries,omitempty" validate:"gte=0"`
}

// Enabled returns true when the history is configured
func (c *HistoryConfig) Enabled() bool {
	return c.RedisURL != ""
}

// Open returns the transcript store and the Redis client backing it,
// the caller must close the client.
func (c *HistoryConfig) Open(ctx context.Context) (store.TranscriptStore, *redis.Client, error) {
	if !c.Enabled() {
		return nil, nil, errors.New("history is not configured")
	}
	opts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid redis_url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrapf(err, "unable to connect to redis at %s", opts.Addr)
	}
	return store.NewRedisStore(client, c.Prefix, c.MaxEntries), client, nil
}

// Load returns the config from the file, with defaults applied.
// Empty file name returns the default config.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, errors.WithMessagef(err, "failed to load config %s", file)
		}
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error if the config is invalid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.WithMessage(err, "invalid config")
	}
	if _, err := c.Chat.Orchestrator(); err != nil {
		return errors.WithMessage(err, "invalid config")
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Server.Transport = values.StringsCoalesce(c.Server.Transport, session.TransportHTTP)
	c.Server.URL = values.StringsCoalesce(c.Server.URL, session.DefaultURL)
	c.Server.Addr = values.StringsCoalesce(c.Server.Addr, httptransport.DefaultAddr)
	c.Server.Endpoint = values.StringsCoalesce(c.Server.Endpoint, httptransport.DefaultEndpoint)
	c.Chat.ToolErrorPolicy = values.StringsCoalesce(c.Chat.ToolErrorPolicy, string(orchestrator.ToolErrorPolicyReport))
	c.History.Prefix = values.StringsCoalesce(c.History.Prefix, DefaultHistoryPrefix)
	c.LogLevel = strings.ToUpper(values.StringsCoalesce(c.LogLevel, "INFO"))

	if len(c.LLM.Providers) == 0 {
		c.LLM = DefaultLLM()
	}
}

// DefaultLLM returns the OpenAI provider with the key from OPENAI_API_KEY
func DefaultLLM() llmfactory.Config {
	return llmfactory.Config{
		DefaultProvider: "OPENAI",
		Providers: []*llmfactory.ProviderConfig{
			{
				Name:         "OPENAI",
				Token:        os.Getenv("OPENAI_API_KEY"),
				DefaultModel: DefaultModel,
				OpenAI: llmfactory.OpenAIConfig{
					APIType: "OPENAI",
				},
			},
		},
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration %q", s)
	}
	if d < 0 {
		return 0, errors.Newf("negative duration %q", s)
	}
	return d, nil
}
