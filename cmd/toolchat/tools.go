package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/encoding"
	"github.com/spf13/cobra"
)

func newToolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools of the MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			list, err := sess.ListTools(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(list)
		},
	}
	cmd.AddCommand(newCallCmd(a))
	return cmd
}

func newCallCmd(a *app) *cobra.Command {
	var (
		args       string
		argsFile   string
		argsFormat string
	)

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke the tool with the arguments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, params []string) error {
			raw := []byte(args)
			if argsFile != "" {
				var err error
				if raw, err = readFile(a.in, argsFile); err != nil {
					return err
				}
			}
			decoded, err := encoding.DecodeArguments(argsFormat, raw)
			if err != nil {
				return err
			}

			sess, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			name := params[0]
			res, err := sess.CallTool(cmd.Context(), name, decoded)
			if err != nil {
				return err
			}
			if res.IsError {
				return errors.Newf("tool %s failed: %s", name, res.Text())
			}
			fmt.Fprintln(a.out, strings.Join(res.Content, "\n"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&args, "args", "a", "", "Tool arguments")
	cmd.Flags().StringVar(&argsFile, "args-file", "", "File with the tool arguments, - reads the input")
	cmd.Flags().StringVar(&argsFormat, "args-format", encoding.FormatJSON, "Format of the arguments: json, yaml, toml")
	return cmd
}

func readFile(in io.Reader, file string) ([]byte, error) {
	if file == "-" {
		bs, err := io.ReadAll(in)
		return bs, errors.WithStack(err)
	}
	bs, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return bs, nil
}

func newResourcesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List the resources and the resource templates of the MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			list, err := sess.ListResources(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(list)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "read <uri>",
		Short: "Print the text content of the resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, params []string) error {
			sess, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			text, err := sess.ReadResource(cmd.Context(), params[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, text)
			return nil
		},
	})
	return cmd
}
