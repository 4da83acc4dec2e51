// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the in-memory conversation store.
package store

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/jeranaias/petalmind/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrThreadNotFound is returned when a thread id does not exist.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrMessageNotFound is returned when a message id does not exist in its thread.
	ErrMessageNotFound = errors.New("message not found")

	// ErrMessageSealed is returned when growing a message that finished streaming.
	ErrMessageSealed = errors.New("message sealed")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store closed")
)

// IsStale reports whether err is one of the informational stale-update
// errors that callers are expected to swallow.
func IsStale(err error) bool {
	return errors.Is(err, ErrThreadNotFound) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrMessageSealed)
}

// =============================================================================
// STORE
// =============================================================================

// subscriberBuffer is the channel capacity given to each subscriber.
const subscriberBuffer = 256

// Store is the single owner of all threads. Every read and mutation is
// executed as a command on the owner goroutine.
type Store struct {
	cmds      chan command
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger

	// Owned by the run goroutine only.
	threads []*model.Thread
	byID    map[string]*model.Thread
	current string
	subs    []chan Event
}

type command struct {
	fn   func()
	done chan struct{}
}

// New starts a store. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		cmds:    make(chan command),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  logger.With("component", "store"),
		byID:    make(map[string]*model.Thread),
	}
	go s.run()
	return s
}

func (s *Store) run() {
	defer close(s.stopped)
	for {
		select {
		case cmd := <-s.cmds:
			cmd.fn()
			close(cmd.done)
		case <-s.quit:
			for _, ch := range s.subs {
				close(ch)
			}
			s.subs = nil
			return
		}
	}
}

// do runs fn on the owner goroutine and waits for it to finish.
func (s *Store) do(fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case s.cmds <- cmd:
	case <-s.quit:
		return ErrClosed
	}
	<-cmd.done
	return nil
}

// Close stops the owner goroutine and closes all subscriber channels.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.stopped
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AppendUserMessage appends a user message to the current thread, creating
// and selecting a new thread when none is current. It returns the thread id
// and the full history including the new message.
func (s *Store) AppendUserMessage(text string) (string, []model.WireMessage, error) {
	var (
		threadID string
		history  []model.WireMessage
	)
	err := s.do(func() {
		th := s.byID[s.current]
		if th == nil {
			th = model.NewThread(text)
			s.threads = append(s.threads, th)
			s.byID[th.ID] = th
			s.current = th.ID
			s.publish(Event{Type: EventThreadCreated, ThreadID: th.ID})
			s.publish(Event{Type: EventCurrentChanged, ThreadID: th.ID})
		}
		msg := model.NewUserMessage(text)
		th.AddMessage(msg)
		s.publish(Event{Type: EventMessageAppended, ThreadID: th.ID, MessageID: msg.ID})

		threadID = th.ID
		history = th.History()
	})
	return threadID, history, err
}

// AppendAssistantPlaceholder appends an empty streaming assistant message to
// the given thread.
func (s *Store) AppendAssistantPlaceholder(threadID string) (string, error) {
	var (
		msgID string
		opErr error
	)
	err := s.do(func() {
		th := s.byID[threadID]
		if th == nil {
			opErr = ErrThreadNotFound
			return
		}
		msg := model.NewAssistantPlaceholder()
		th.AddMessage(msg)
		msgID = msg.ID
		s.publish(Event{Type: EventMessageAppended, ThreadID: threadID, MessageID: msg.ID})
	})
	if err != nil {
		return "", err
	}
	return msgID, opErr
}

// GrowAssistantMessage concatenates fragment onto a streaming message.
// Missing or sealed targets are left untouched.
func (s *Store) GrowAssistantMessage(threadID, messageID, fragment string) error {
	var opErr error
	err := s.do(func() {
		msg, e := s.lookup(threadID, messageID)
		if e != nil {
			opErr = e
			return
		}
		if !msg.Append(fragment) {
			opErr = ErrMessageSealed
			return
		}
		s.publish(Event{Type: EventMessageGrown, ThreadID: threadID, MessageID: messageID, Version: msg.Version})
	})
	if err != nil {
		return err
	}
	return opErr
}

// SealAssistantMessage marks a streamed message as complete.
func (s *Store) SealAssistantMessage(threadID, messageID string) error {
	var opErr error
	err := s.do(func() {
		msg, e := s.lookup(threadID, messageID)
		if e != nil {
			opErr = e
			return
		}
		if !msg.Streaming {
			return
		}
		msg.Seal()
		s.publish(Event{Type: EventMessageSealed, ThreadID: threadID, MessageID: messageID, Version: msg.Version})
	})
	if err != nil {
		return err
	}
	return opErr
}

// NewThread clears the current thread; the next user message starts a new one.
func (s *Store) NewThread() error {
	return s.do(func() {
		if s.current == "" {
			return
		}
		s.current = ""
		s.publish(Event{Type: EventCurrentChanged})
	})
}

// SelectThread makes an existing thread current.
func (s *Store) SelectThread(threadID string) error {
	var opErr error
	err := s.do(func() {
		if s.byID[threadID] == nil {
			opErr = ErrThreadNotFound
			return
		}
		if s.current == threadID {
			return
		}
		s.current = threadID
		s.publish(Event{Type: EventCurrentChanged, ThreadID: threadID})
	})
	if err != nil {
		return err
	}
	return opErr
}

// SetFeedback sets or toggles the like/dislike flag of a message.
func (s *Store) SetFeedback(threadID, messageID string, f model.Feedback) error {
	var opErr error
	err := s.do(func() {
		msg, e := s.lookup(threadID, messageID)
		if e != nil {
			opErr = e
			return
		}
		msg.SetFeedback(f)
		s.publish(Event{Type: EventFeedback, ThreadID: threadID, MessageID: messageID, Version: msg.Version})
	})
	if err != nil {
		return err
	}
	return opErr
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Threads returns copies of all threads in creation order.
func (s *Store) Threads() []*model.Thread {
	var out []*model.Thread
	_ = s.do(func() {
		out = make([]*model.Thread, len(s.threads))
		for i, th := range s.threads {
			out[i] = th.Clone()
		}
	})
	return out
}

// Thread returns a copy of one thread.
func (s *Store) Thread(threadID string) (*model.Thread, error) {
	var (
		out   *model.Thread
		opErr error
	)
	err := s.do(func() {
		th := s.byID[threadID]
		if th == nil {
			opErr = ErrThreadNotFound
			return
		}
		out = th.Clone()
	})
	if err != nil {
		return nil, err
	}
	return out, opErr
}

// Current returns a copy of the current thread, or nil when none is selected.
func (s *Store) Current() *model.Thread {
	var out *model.Thread
	_ = s.do(func() {
		if th := s.byID[s.current]; th != nil {
			out = th.Clone()
		}
	})
	return out
}

// CurrentID returns the id of the current thread, or "".
func (s *Store) CurrentID() string {
	var id string
	_ = s.do(func() {
		id = s.current
	})
	return id
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) lookup(threadID, messageID string) (*model.Message, error) {
	th := s.byID[threadID]
	if th == nil {
		return nil, ErrThreadNotFound
	}
	msg := th.MessageByID(messageID)
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	return msg, nil
}
