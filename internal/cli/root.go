// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	verbose    bool
	configPath string
	baseURL    string
	format     string
}

// NewRootCmd builds the petalmind command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "petalmind",
		Short: "Terminal chat client for PetalMind",
		Long: `PetalMind is a terminal chat client. It streams replies from a chat
server into a conversation and keeps every thread of the session in memory.

On a terminal it opens the full-screen chat. When input or output is
redirected it falls back to the plain line REPL.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout()) {
				return runTUI(cmd.Context(), flags)
			}
			return runChat(cmd.Context(), flags, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default ~/.petalmind/config.toml)")
	root.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "chat server origin, overrides api.base_url")
	root.PersistentFlags().StringVar(&flags.format, "format", "", "stream format: text, ndjson or sse")

	root.AddCommand(newChatCmd(flags))
	root.AddCommand(newAskCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context,
// which ends any stream in flight.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
