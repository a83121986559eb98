package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/callbacks"
	"github.com/effective-security/toolchat/orchestrator"
	"github.com/effective-security/toolchat/store"
	"github.com/effective-security/x/values"
	"github.com/spf13/cobra"
)

type queryFlags struct {
	provider string
	model    string
	verbose  bool
	quiet    bool
	stats    bool
}

func newQueryCmd(a *app) *cobra.Command {
	f := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Answer the query with the tools of the MCP server",
		Long:  "Answer the query with the tools of the MCP server. Without arguments, the query is read from the input.",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := a.readQuery(args)
			if err != nil {
				return err
			}
			return a.query(cmd.Context(), f, query)
		},
	}

	cmd.Flags().StringVar(&f.provider, "provider", "", "Completion provider: OPENAI, AZURE, ANTHROPIC, PERPLEXITY")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Completion model, overrides the default model of the provider")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print the tools, the messages and the tool outputs")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "Do not print the progress")
	cmd.Flags().BoolVar(&f.stats, "stats", false, "Print the scratchpad and the stats of the query")
	return cmd
}

func (a *app) readQuery(args []string) (string, error) {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		fmt.Fprint(a.out, "Enter query to send: ")
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil && line == "" {
			return "", errors.Wrap(err, "failed to read query")
		}
		query = strings.TrimSpace(line)
	}
	if query == "" {
		return "", errors.New("query is required")
	}
	return query, nil
}

func (a *app) query(ctx context.Context, f *queryFlags, query string) error {
	mode := callbacks.ModeDefault
	if f.verbose {
		mode = callbacks.ModeVerbose
	}

	fanout := callbacks.NewFanout(callbacks.NewPackageLogger(logger))
	if !f.quiet {
		fanout.Add(callbacks.NewPrinter(a.errOut, mode))
	}

	var sp *callbacks.Scratchpad
	if f.stats {
		sp = callbacks.NewScratchpad(mode)
		fanout.Add(sp)
	}

	ts, done, err := a.openHistory(ctx, &a.cfg.History)
	if err != nil {
		return err
	}
	defer done()
	if ts != nil {
		fanout.Add(store.NewRecorder(ts))
	}

	llm, err := a.newModel(a.cfg, values.StringsCoalesce(f.provider, a.cfg.Chat.Provider))
	if err != nil {
		return errors.WithMessage(err, "failed to create completion model")
	}

	opts, err := a.cfg.Chat.OrchestratorOptions()
	if err != nil {
		return err
	}
	opts = append(opts, orchestrator.WithCallback(fanout))

	sess, err := a.connect(ctx)
	if err != nil {
		return errors.WithMessage(err, "Error connecting to MCP server, check that the server is running")
	}
	defer sess.Close()

	if !f.quiet {
		fmt.Fprintln(a.errOut, "Connected to MCP server successfully...")
	}

	res, err := orchestrator.New(llm, opts...).Run(ctx, sess, query, values.StringsCoalesce(f.model, a.cfg.Chat.Model))
	if sp != nil {
		if _, log := sp.Last(); len(log) > 0 {
			_, _ = a.errOut.Write(log)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, res.Answer)
	return nil
}
