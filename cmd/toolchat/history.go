package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/config"
	"github.com/effective-security/toolchat/store"
	"github.com/spf13/cobra"
)

// openHistory returns the transcript store backed by Redis,
// or nil store when the history is not configured
func openHistory(ctx context.Context, cfg *config.HistoryConfig) (store.TranscriptStore, func(), error) {
	if !cfg.Enabled() {
		return nil, func() {}, nil
	}
	ts, client, err := cfg.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ts, func() { _ = client.Close() }, nil
}

func (a *app) history(ctx context.Context) (store.TranscriptStore, func(), error) {
	ts, done, err := a.openHistory(ctx, &a.cfg.History)
	if err != nil {
		return nil, nil, err
	}
	if ts == nil {
		return nil, nil, errors.New("history is not configured, set history.redis_url in the config")
	}
	return ts, done, nil
}

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the transcripts of the queries",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the transcripts, the most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, done, err := a.history(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			items, err := ts.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			// the list shows the summary, `show` prints the conversation
			for _, t := range items {
				t.Messages = nil
			}
			return a.print(items)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 10, "Number of transcripts, 0 lists all")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, params []string) error {
			ts, done, err := a.history(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			t, err := ts.Get(cmd.Context(), params[0])
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return errors.Newf("transcript not found: %s", params[0])
				}
				return err
			}
			return a.print(t)
		},
	}

	var olderThan time.Duration
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove the old transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, done, err := a.history(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			count, err := ts.Cleanup(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "removed %d transcripts\n", count)
			return nil
		},
	}
	cleanup.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of the transcripts to remove")

	cmd.AddCommand(list, show, cleanup)
	return cmd
}
