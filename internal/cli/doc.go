// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cli implements the petalmind command line.

Commands:

	petalmind            TUI on a terminal, plain REPL otherwise
	petalmind chat       line-edited REPL with input history
	petalmind ask TEXT   one question, reply streamed to stdout
	petalmind config     show | path | get KEY | init
	petalmind version    build information

Every mode shares the same wiring: configuration is loaded once, a
conversation store and a streaming assembler are created, and the chat
endpoint is reached through chatapi with the session token attached.
*/
package cli
