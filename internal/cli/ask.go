// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/petalmind/internal/assembler"
	"github.com/jeranaias/petalmind/internal/chatapi"
)

func newAskCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask one question and stream the reply to stdout",
		Example: `  petalmind ask "Explain recursion"
  petalmind ask --format sse "What is a goroutine?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), flags, strings.Join(args, " "), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

// runAsk sends question as the first message of a new thread and writes
// the reply to out as it streams.
func runAsk(ctx context.Context, flags *globalFlags, question string, out, errOut io.Writer) error {
	a, err := newApp(ctx, flags, errOut)
	if err != nil {
		return err
	}
	defer a.Close()

	wrote := false
	asm := a.newAssembler(nil, nil, func(_, _, fragment string) {
		wrote = true
		fmt.Fprint(out, fragment)
	})

	err = asm.Send(ctx, question)
	if wrote {
		fmt.Fprintln(out)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, assembler.ErrEmptyInput):
		return errors.New("question is empty")
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%s: %w", chatapi.Describe(err), err)
	}
}
