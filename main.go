// PetalMind - a terminal chat client with streaming replies.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/petalmind/internal/cli"
	"github.com/jeranaias/petalmind/internal/ui/styles"
)

// Build with:
//
//	go build -ldflags "-X github.com/jeranaias/petalmind/internal/cli.Version=1.0.0 \
//	  -X github.com/jeranaias/petalmind/internal/cli.GitCommit=$(git rev-parse --short HEAD)"
func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.RenderError(err.Error()))
		os.Exit(1)
	}
}
