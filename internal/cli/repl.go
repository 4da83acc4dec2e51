// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/petalmind/internal/assembler"
	"github.com/jeranaias/petalmind/internal/config"
	"github.com/jeranaias/petalmind/internal/export"
	"github.com/jeranaias/petalmind/internal/model"
	"github.com/jeranaias/petalmind/internal/ui/styles"
	"github.com/jeranaias/petalmind/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Petal).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// =============================================================================
// COMMAND
// =============================================================================

func newChatCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the line REPL",
		Long: `Start an interactive chat in plain line mode.

Replies are printed as they stream in. Commands:
  /new            start a new chat
  /threads        list chats
  /switch N       switch to chat N
  /export PATH    export the current chat (.md, .json, .yaml)
  /help           show commands
  /quit           exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), flags, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

// runChat runs the REPL until /quit, EOF or Ctrl+C.
func runChat(ctx context.Context, flags *globalFlags, in io.Reader, out, errOut io.Writer) error {
	a, err := newApp(ctx, flags, errOut)
	if err != nil {
		return err
	}
	defer a.Close()

	var input lineReader
	if f, ok := in.(*os.File); ok && f == os.Stdin && isTerminal(f) {
		input = NewChatCLI()
	} else {
		input = newScanReader(in)
	}
	defer input.Close()

	r := newREPL(ctx, a, out)
	r.printWelcome()

	for {
		line, err := input.ReadLine(promptStyle.Render("petalmind> "))
		if err != nil {
			// Ctrl+C, Ctrl+D and EOF all end the session.
			fmt.Fprintln(out)
			return nil
		}
		if r.handleLine(line) {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line per prompt.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close()
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadLine reads a line of input with the given prompt. Arrow keys walk
// the history.
func (c *ChatCLI) ReadLine(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes the history file, readable by the owner only.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// scanReader reads lines from redirected input. Prompts are not echoed.
type scanReader struct {
	sc *bufio.Scanner
}

func newScanReader(r io.Reader) *scanReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &scanReader{sc: sc}
}

func (s *scanReader) ReadLine(string) (string, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.sc.Text(), nil
}

func (s *scanReader) Close() {}

// =============================================================================
// REPL
// =============================================================================

// repl executes one input line at a time against the shared store.
type repl struct {
	ctx context.Context
	app *app
	asm *assembler.Assembler
	out io.Writer

	notified bool
}

func newREPL(ctx context.Context, a *app, out io.Writer) *repl {
	r := &repl{ctx: ctx, app: a, out: out}
	r.asm = a.newAssembler(assembler.NotifierFunc(r.notify), nil, r.printFragment)
	return r
}

func (r *repl) notify(message string) {
	r.notified = true
	fmt.Fprintf(r.out, "\n%s %s\n", errorStyle.Render("[Error]"), message)
}

func (r *repl) printFragment(_, _, fragment string) {
	fmt.Fprint(r.out, fragment)
}

func (r *repl) printWelcome() {
	name := r.app.identity(r.ctx, false).DisplayName()
	fmt.Fprintf(r.out, "%s %s\n", promptStyle.Render("PetalMind"), dimStyle.Render("v"+Version))
	fmt.Fprintf(r.out, "%s\n", dimStyle.Render(fmt.Sprintf("Signed in as %s. Connected to %s", name, r.app.client.URL())))
	fmt.Fprintf(r.out, "%s\n\n", dimStyle.Render("Type /help for commands, /quit to exit."))
}

// handleLine runs one line of input. It returns true when the REPL should
// exit.
func (r *repl) handleLine(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}
	if strings.HasPrefix(input, "/") {
		quit, err := r.handleCommand(input)
		if err != nil {
			fmt.Fprintf(r.out, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
		return quit
	}
	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return true
	}
	r.send(input)
	return false
}

// send streams the reply to input, printing fragments as they arrive.
func (r *repl) send(input string) {
	r.notified = false
	fmt.Fprintf(r.out, "%s ", assistantStyle.Render(model.RoleAssistant.DisplayName()+":"))

	err := r.asm.Send(r.ctx, input)
	fmt.Fprintln(r.out)
	if err == nil || r.notified || r.ctx.Err() != nil {
		return
	}
	if errors.Is(err, assembler.ErrBusy) {
		fmt.Fprintf(r.out, "%s %s\n", errorStyle.Render("[Error]"), "A response is still streaming")
		return
	}
	fmt.Fprintf(r.out, "%s %v\n", errorStyle.Render("[Error]"), err)
}

// handleCommand processes slash commands.
func (r *repl) handleCommand(input string) (bool, error) {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		r.printHelp()
	case "/quit", "/q", "/exit":
		return true, nil
	case "/new", "/n":
		if err := r.app.store.NewThread(); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, commandStyle.Render("[New chat]"))
	case "/threads", "/t":
		r.printThreads()
	case "/switch", "/s":
		return false, r.switchThread(args)
	case "/export", "/e":
		return false, r.exportThread(args)
	default:
		return false, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
	return false, nil
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.out, commandStyle.Render("Commands:"))
	for _, row := range [][2]string{
		{"/new", "start a new chat"},
		{"/threads", "list chats"},
		{"/switch N", "switch to chat N"},
		{"/export PATH", "export the current chat (.md, .json, .yaml)"},
		{"/help", "show this help"},
		{"/quit", "exit"},
	} {
		fmt.Fprintf(r.out, "  %s %s\n", util.PadWidth(row[0], 14), dimStyle.Render(row[1]))
	}
}

func (r *repl) printThreads() {
	threads := r.app.store.Threads()
	if len(threads) == 0 {
		fmt.Fprintln(r.out, dimStyle.Render("No chats yet"))
		return
	}
	currentID := r.app.store.CurrentID()
	for i, t := range threads {
		marker := " "
		if t.ID == currentID {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %2d. %s %s\n", marker, i+1,
			util.TruncateWidth(util.FirstLine(t.GetTitle()), 40),
			dimStyle.Render(fmt.Sprintf("(%d messages)", t.MessageCount())))
	}
}

func (r *repl) switchThread(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: /switch N")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid chat number %q", args[0])
	}
	threads := r.app.store.Threads()
	if n < 1 || n > len(threads) {
		return fmt.Errorf("no chat %d (have %d)", n, len(threads))
	}
	t := threads[n-1]
	if err := r.app.store.SelectThread(t.ID); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s %s\n", commandStyle.Render("[Switched]"), t.GetTitle())
	if last := t.LastMessage(); last != nil {
		fmt.Fprintf(r.out, "  %s\n", dimStyle.Render(last.Preview(72)))
	}
	return nil
}

func (r *repl) exportThread(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: /export PATH")
	}
	thread := r.app.store.Current()
	if thread == nil {
		return errors.New("no current chat to export")
	}
	path, err := export.ToFile(thread, args[0], export.DefaultOptions())
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s %s\n", commandStyle.Render("[Exported]"), path)
	return nil
}
