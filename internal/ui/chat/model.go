// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/petalmind/internal/assembler"
	"github.com/jeranaias/petalmind/internal/config"
	"github.com/jeranaias/petalmind/internal/render"
	"github.com/jeranaias/petalmind/internal/store"
	"github.com/jeranaias/petalmind/internal/ui/components"
	"github.com/jeranaias/petalmind/internal/ui/styles"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Sender submits user input and streams the reply into the store.
type Sender interface {
	Send(ctx context.Context, text string) error
	Busy() bool
}

// Options configures a chat Model. Store and Sender are required.
type Options struct {
	Store   *store.Store
	Sender  Sender
	Context context.Context
	Theme   *styles.Theme
	Logger  *slog.Logger

	UserName  string
	Endpoint  string
	UI        config.UIConfig
	ExportDir string

	// Clipboard writes text to the system clipboard; nil uses atotto/clipboard.
	Clipboard func(string) error
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// inputHeight is the textarea height in rows.
const inputHeight = 3

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	store     *store.Store
	sender    Sender
	ctx       context.Context
	logger    *slog.Logger
	exportDir string
	clipboard func(string) error

	// Styling
	theme    *styles.Theme
	renderer *render.Renderer
	ui       config.UIConfig
	cache    map[string]renderedMessage

	// Dimensions
	width  int
	height int
	ready  bool

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	header   *components.Header
	sidebar  *components.Sidebar
	status   *components.StatusBar
	toasts   *components.ToastManager
	keys     KeyMap

	// Store subscription and redraw control
	events       <-chan store.Event
	throttle     *renderThrottle
	shownThread  string
	streaming    bool
	toastTicking bool
}

// New creates the chat model and subscribes it to the store.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}

	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Message PetalMind"
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	header := components.NewHeader(theme)
	if opts.UserName != "" {
		header.User = opts.UserName
	}
	header.Endpoint = opts.Endpoint

	return Model{
		store:     opts.Store,
		sender:    opts.Sender,
		ctx:       ctx,
		logger:    logger.With("component", "tui"),
		exportDir: exportDir,
		clipboard: copyFn,
		theme:     theme,
		renderer:  render.NewRenderer(opts.UI.MarkdownStyle, 80),
		ui:        opts.UI,
		cache:     make(map[string]renderedMessage),
		input:     ta,
		spinner:   sp,
		header:    header,
		sidebar:   components.NewSidebar(theme),
		status:    components.NewStatusBar(theme),
		toasts:    components.NewToastManager(),
		keys:      keys,
		events:    opts.Store.Subscribe(),
		throttle:  newRenderThrottle(),
	}
}

// Init starts the cursor blink and the store listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForEvent(m.events))
}

// waitForEvent blocks for the next store event. A closed channel ends the
// listener.
func waitForEvent(ch <-chan store.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return storeEventMsg{event: ev}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case storeEventMsg:
		now, tick := m.throttle.mark(time.Now())
		if now {
			m.refresh()
		}
		return m, tea.Batch(waitForEvent(m.events), tick)

	case renderTickMsg:
		if m.throttle.tick(msg.Time) {
			m.refresh()
		}
		return m, nil

	case streamDoneMsg:
		m.streaming = false
		m.status.Streaming = false
		if msg.err != nil && !errors.Is(msg.err, assembler.ErrBusy) && !errors.Is(msg.err, assembler.ErrEmptyInput) {
			m.logger.Debug("submission finished with error", "error", msg.err)
		}
		m.refresh()
		return m, nil

	case ScrollBottomMsg:
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case NotifyMsg:
		cmd := m.toast(msg.Message, components.ToastKindError)
		return m, cmd

	case components.ToastTickMsg:
		if m.toasts.Tick() {
			return m, components.ToastTickCmd()
		}
		m.toastTicking = false
		return m, nil

	case ConfigChangedMsg:
		if msg.Config != nil {
			m.applyUI(msg.Config.UI)
		}
		return m, nil

	case IdentityMsg:
		if msg.Name != "" {
			m.header.User = msg.Name
		}
		return m, nil

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.status.Spinner = m.spinner.View()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey routes key presses. Anything unbound goes to the input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Send):
		return m.submit()
	case key.Matches(msg, m.keys.NewChat):
		return m.newChat()
	case key.Matches(msg, m.keys.PrevThread):
		return m.switchThread(-1)
	case key.Matches(msg, m.keys.NextThread):
		return m.switchThread(1)
	case key.Matches(msg, m.keys.Like):
		return m.rateLast(true)
	case key.Matches(msg, m.keys.Dislike):
		return m.rateLast(false)
	case key.Matches(msg, m.keys.Copy):
		return m.copyLastResponse()
	case key.Matches(msg, m.keys.Export):
		return m.exportCurrent()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// LAYOUT
// =============================================================================

// sidebarVisible reports whether the thread list fits and is enabled.
func (m *Model) sidebarVisible() bool {
	return m.ui.ShowSidebar && m.theme.GetLayoutMode() != styles.LayoutNarrow
}

// resize recomputes component sizes for a width x height terminal.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)

	// header + status bar + input with its border
	bodyHeight := height - 2 - (inputHeight + 2)
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	vpWidth := width
	if m.sidebarVisible() {
		vpWidth -= components.SidebarWidth
	}
	if vpWidth < 10 {
		vpWidth = 10
	}

	if !m.ready {
		m.viewport = viewport.New(vpWidth, bodyHeight)
		m.ready = true
	} else {
		m.viewport.Width = vpWidth
		m.viewport.Height = bodyHeight
	}

	m.input.SetWidth(width - 4)
	m.header.SetWidth(width)
	m.status.Width = width
	m.sidebar.Height = bodyHeight
	m.renderer.SetWidth(m.contentWidth())
	m.cache = make(map[string]renderedMessage)
	m.refresh()
}

// applyUI applies a new [ui] section at runtime.
func (m *Model) applyUI(ui config.UIConfig) {
	m.ui = ui
	m.renderer.SetStyle(ui.MarkdownStyle)
	if m.ready {
		m.resize(m.width, m.height)
	}
	m.logger.Info("ui settings reloaded",
		"markdown_style", ui.MarkdownStyle, "word_wrap", ui.WordWrap, "sidebar", ui.ShowSidebar)
}

// refresh rebuilds the sidebar and the viewport from a store snapshot.
func (m *Model) refresh() {
	threads := m.store.Threads()
	entries := make([]components.ThreadEntry, 0, len(threads))
	for _, t := range threads {
		entries = append(entries, components.ThreadEntry{ID: t.ID, Title: t.GetTitle(), Messages: t.MessageCount()})
	}
	m.sidebar.Threads = entries

	current := m.store.Current()
	currentID := ""
	if current != nil {
		currentID = current.ID
	}
	m.sidebar.CurrentID = currentID

	if !m.ready {
		return
	}

	follow := m.viewport.AtBottom() || currentID != m.shownThread
	m.viewport.SetContent(m.renderThread(current))
	if follow {
		m.viewport.GotoBottom()
	}
	m.shownThread = currentID
}

// toast adds a toast and starts the tick loop if it is not running.
func (m *Model) toast(message string, kind components.ToastKind) tea.Cmd {
	m.toasts.Add(message, kind)
	if m.toastTicking {
		return nil
	}
	m.toastTicking = true
	return components.ToastTickCmd()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Streaming reports whether a submission is in progress.
func (m Model) Streaming() bool {
	return m.streaming
}

// InputValue returns the text in the input box.
func (m Model) InputValue() string {
	return m.input.Value()
}

// SetInputValue replaces the text in the input box.
func (m *Model) SetInputValue(s string) {
	m.input.SetValue(s)
}

// Toasts returns the visible toast messages.
func (m Model) Toasts() []string {
	toasts := m.toasts.Toasts()
	out := make([]string, 0, len(toasts))
	for _, t := range toasts {
		out = append(out, t.Message)
	}
	return out
}

// trimmedEmpty reports whether s has no visible characters.
func trimmedEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
