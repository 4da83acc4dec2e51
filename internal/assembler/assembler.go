// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assembler streams assistant responses into the conversation store.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jeranaias/petalmind/internal/chatapi"
	"github.com/jeranaias/petalmind/internal/metrics"
	"github.com/jeranaias/petalmind/internal/model"
	"github.com/jeranaias/petalmind/internal/store"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyInput is returned when the submitted text is blank.
	ErrEmptyInput = errors.New("empty input")

	// ErrBusy is returned when a response is already streaming.
	ErrBusy = errors.New("a response is already streaming")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Store is the subset of the conversation store the assembler mutates.
type Store interface {
	AppendUserMessage(text string) (string, []model.WireMessage, error)
	AppendAssistantPlaceholder(threadID string) (string, error)
	GrowAssistantMessage(threadID, messageID, fragment string) error
	SealAssistantMessage(threadID, messageID string) error
}

// Streamer opens the streamed response for a history.
type Streamer interface {
	ChatStream(ctx context.Context, messages []model.WireMessage) (io.ReadCloser, error)
}

// Notifier shows a transient notification to the user.
type Notifier interface {
	Notify(message string)
}

// Viewer is asked to scroll to the newest content when a stream ends.
type Viewer interface {
	ScrollToBottom()
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Notify calls f(message).
func (f NotifierFunc) Notify(message string) { f(message) }

// ViewerFunc adapts a function to Viewer.
type ViewerFunc func()

// ScrollToBottom calls f().
func (f ViewerFunc) ScrollToBottom() { f() }

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

type nopViewer struct{}

func (nopViewer) ScrollToBottom() {}

// =============================================================================
// STATE
// =============================================================================

// State is the assembler lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// =============================================================================
// ASSEMBLER
// =============================================================================

// Config wires an Assembler to its collaborators. Store and Streamer are
// required; everything else is optional.
type Config struct {
	Store    Store
	Streamer Streamer
	Format   chatapi.Format
	Notifier Notifier
	Viewer   Viewer
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// OnFragment, when set, is called with every fragment after it has been
	// folded into the store.
	OnFragment func(threadID, messageID, fragment string)
}

// Assembler admits one submission at a time and folds the streamed response
// into the store.
type Assembler struct {
	cfg      Config
	logger   *slog.Logger
	inFlight atomic.Bool
	state    atomic.Int32
}

// New creates an assembler.
func New(cfg Config) *Assembler {
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Viewer == nil {
		cfg.Viewer = nopViewer{}
	}
	if cfg.Format == "" {
		cfg.Format = chatapi.FormatText
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		cfg:    cfg,
		logger: logger.With("component", "assembler"),
	}
}

// Busy reports whether a response is streaming.
func (a *Assembler) Busy() bool {
	return a.inFlight.Load()
}

// State returns the current lifecycle state.
func (a *Assembler) State() State {
	return State(a.state.Load())
}

// Send appends text as a user message and streams the reply. Blank input and
// submissions while busy are rejected without touching the store.
func (a *Assembler) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		a.countRequest(metrics.OutcomeEmpty)
		return ErrEmptyInput
	}
	if !a.inFlight.CompareAndSwap(false, true) {
		a.countRequest(metrics.OutcomeBusy)
		return ErrBusy
	}

	threadID, history, err := a.cfg.Store.AppendUserMessage(text)
	if err != nil {
		a.inFlight.Store(false)
		return fmt.Errorf("append user message: %w", err)
	}
	return a.stream(ctx, threadID, history)
}

// Stream requests a reply for history and grows a new assistant message in
// threadID until the response ends.
func (a *Assembler) Stream(ctx context.Context, threadID string, history []model.WireMessage) error {
	if !a.inFlight.CompareAndSwap(false, true) {
		a.countRequest(metrics.OutcomeBusy)
		return ErrBusy
	}
	return a.stream(ctx, threadID, history)
}

// stream runs with the in-flight flag already claimed.
func (a *Assembler) stream(ctx context.Context, threadID string, history []model.WireMessage) (err error) {
	start := time.Now()
	a.state.Store(int32(StateStreaming))
	if a.cfg.Metrics != nil {
		a.cfg.Metrics.InFlight.Set(1)
	}

	var msgID string
	defer func() {
		if msgID != "" {
			if serr := a.cfg.Store.SealAssistantMessage(threadID, msgID); serr != nil {
				a.stale("seal", serr)
			}
		}
		if err != nil {
			a.fail(ctx, err)
		} else {
			a.countRequest(metrics.OutcomeSuccess)
		}
		if a.cfg.Metrics != nil {
			a.cfg.Metrics.InFlight.Set(0)
			a.cfg.Metrics.StreamDuration.Observe(time.Since(start).Seconds())
		}
		a.state.Store(int32(StateIdle))
		a.inFlight.Store(false)
		a.cfg.Viewer.ScrollToBottom()
	}()

	msgID, err = a.cfg.Store.AppendAssistantPlaceholder(threadID)
	if err != nil {
		msgID = ""
		return fmt.Errorf("append placeholder: %w", err)
	}

	body, err := a.cfg.Streamer.ChatStream(ctx, history)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	if body == nil {
		return fmt.Errorf("open stream: %w", chatapi.ErrNoBody)
	}
	defer body.Close()

	a.logger.Debug("stream opened", "thread", threadID, "message", msgID, "history", len(history))

	reader := chatapi.NewFragmentReader(a.cfg.Format, &countingReader{r: body, m: a.cfg.Metrics})
	fragments := 0
	for {
		frag, rerr := reader.Next()
		if frag != "" {
			fragments++
			if gerr := a.cfg.Store.GrowAssistantMessage(threadID, msgID, frag); gerr != nil {
				if !store.IsStale(gerr) {
					return fmt.Errorf("grow message: %w", gerr)
				}
				a.stale("grow", gerr)
			} else {
				if a.cfg.Metrics != nil {
					a.cfg.Metrics.FragmentsTotal.Inc()
				}
				if a.cfg.OnFragment != nil {
					a.cfg.OnFragment(threadID, msgID, frag)
				}
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read stream: %w", chatapi.ReadError(rerr))
		}
	}

	a.logger.Debug("stream complete", "thread", threadID, "message", msgID,
		"fragments", fragments, "duration", time.Since(start))
	return nil
}

// fail records a stream failure. Partial content stays in the store.
func (a *Assembler) fail(ctx context.Context, err error) {
	a.state.Store(int32(StateError))
	a.countRequest(metrics.OutcomeError)

	if ctx.Err() != nil {
		a.logger.Info("stream cancelled", "error", err)
		return
	}
	a.logger.Error("error fetching AI response", "error", err, "type", chatapi.ErrorTypeOf(err).String())
	a.cfg.Notifier.Notify(chatapi.Describe(err))
}

// stale logs and counts an update that targeted a missing or sealed entity.
func (a *Assembler) stale(op string, err error) {
	a.logger.Debug("stale update ignored", "op", op, "error", err)
	if a.cfg.Metrics != nil {
		a.cfg.Metrics.StaleUpdates.Inc()
	}
}

func (a *Assembler) countRequest(outcome string) {
	if a.cfg.Metrics != nil {
		a.cfg.Metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	}
}

// countingReader adds every byte read to BytesReceived.
type countingReader struct {
	r io.Reader
	m *metrics.Metrics
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 && c.m != nil {
		c.m.BytesReceived.Add(float64(n))
	}
	return n, err
}
