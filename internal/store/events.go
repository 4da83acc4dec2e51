// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

// EventType identifies what changed in the store.
type EventType int

const (
	EventThreadCreated EventType = iota
	EventMessageAppended
	EventMessageGrown
	EventMessageSealed
	EventCurrentChanged
	EventFeedback
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventThreadCreated:
		return "thread_created"
	case EventMessageAppended:
		return "message_appended"
	case EventMessageGrown:
		return "message_grown"
	case EventMessageSealed:
		return "message_sealed"
	case EventCurrentChanged:
		return "current_changed"
	case EventFeedback:
		return "feedback"
	default:
		return "unknown"
	}
}

// Event is a change notification. Version is the message version after the
// change, when MessageID is set.
type Event struct {
	Type      EventType
	ThreadID  string
	MessageID string
	Version   uint64
}

// Subscribe returns a channel of change events. Delivery never blocks the
// store: a full channel drops the event. The channel is closed by Close.
func (s *Store) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	if err := s.do(func() {
		s.subs = append(s.subs, ch)
	}); err != nil {
		close(ch)
	}
	return ch
}

// publish must be called on the owner goroutine.
func (s *Store) publish(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Debug("subscriber full, event dropped", "event", ev.Type.String())
		}
	}
}
