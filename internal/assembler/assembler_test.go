// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assembler

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/petalmind/internal/chatapi"
	"github.com/jeranaias/petalmind/internal/metrics"
	"github.com/jeranaias/petalmind/internal/model"
	"github.com/jeranaias/petalmind/internal/store"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// scriptedBody returns one chunk per Read, then err (io.EOF by default).
type scriptedBody struct {
	chunks [][]byte
	err    error
	closed bool
}

func (b *scriptedBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	b.chunks[0] = b.chunks[0][n:]
	if len(b.chunks[0]) == 0 {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *scriptedBody) Close() error {
	b.closed = true
	return nil
}

// fakeStreamer records every request and returns a prepared body.
type fakeStreamer struct {
	mu       sync.Mutex
	body     io.ReadCloser
	err      error
	gate     chan struct{}
	requests [][]model.WireMessage
}

func (f *fakeStreamer) ChatStream(ctx context.Context, messages []model.WireMessage) (io.ReadCloser, error) {
	f.mu.Lock()
	f.requests = append(f.requests, messages)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	return f.body, f.err
}

func (f *fakeStreamer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func body(err error, parts ...string) *scriptedBody {
	b := &scriptedBody{err: err}
	for _, p := range parts {
		b.chunks = append(b.chunks, []byte(p))
	}
	return b
}

// recorder implements Notifier and Viewer.
type recorder struct {
	mu      sync.Mutex
	notes   []string
	scrolls int
}

func (r *recorder) Notify(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, message)
}

func (r *recorder) ScrollToBottom() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrolls++
}

type harness struct {
	store    *store.Store
	streamer *fakeStreamer
	rec      *recorder
	metrics  *metrics.Metrics
	asm      *Assembler
}

func newHarness(t *testing.T, streamer *fakeStreamer) *harness {
	t.Helper()
	s := store.New(nil)
	t.Cleanup(s.Close)
	rec := &recorder{}
	m := metrics.New()
	return &harness{
		store:    s,
		streamer: streamer,
		rec:      rec,
		metrics:  m,
		asm: New(Config{
			Store:    s,
			Streamer: streamer,
			Notifier: rec,
			Viewer:   rec,
			Metrics:  m,
		}),
	}
}

// =============================================================================
// SEND
// =============================================================================

func TestSend_ExplainRecursion(t *testing.T) {
	h := newHarness(t, &fakeStreamer{body: body(nil, "Recursion is ", "a function calling itself.")})

	require.NoError(t, h.asm.Send(context.Background(), "Explain recursion"))

	threads := h.store.Threads()
	require.Len(t, threads, 1)
	th := threads[0]
	assert.Equal(t, "Explain recursion", th.Title)
	assert.Equal(t, th.ID, h.store.CurrentID())

	require.Len(t, th.Messages, 2)
	assert.Equal(t, model.RoleUser, th.Messages[0].Role)
	assert.Equal(t, "Explain recursion", th.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, th.Messages[1].Role)
	assert.Equal(t, "Recursion is a function calling itself.", th.Messages[1].Content)
	assert.False(t, th.Messages[1].Streaming)

	require.Equal(t, 1, h.streamer.calls())
	assert.Equal(t, []model.WireMessage{{Role: model.RoleUser, Content: "Explain recursion"}}, h.streamer.requests[0])

	assert.False(t, h.asm.Busy())
	assert.Equal(t, StateIdle, h.asm.State())
	assert.Equal(t, 1, h.rec.scrolls)
	assert.Empty(t, h.rec.notes)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.FragmentsTotal))
}

func TestSend_SecondTurnCarriesHistory(t *testing.T) {
	streamer := &fakeStreamer{body: body(nil, "first answer")}
	h := newHarness(t, streamer)

	require.NoError(t, h.asm.Send(context.Background(), "one"))
	streamer.body = body(nil, "second answer")
	require.NoError(t, h.asm.Send(context.Background(), "two"))

	require.Equal(t, 2, streamer.calls())
	assert.Equal(t, []model.WireMessage{
		{Role: model.RoleUser, Content: "one"},
		{Role: model.RoleAssistant, Content: "first answer"},
		{Role: model.RoleUser, Content: "two"},
	}, streamer.requests[1])

	th := h.store.Current()
	require.Len(t, th.Messages, 4)
	assert.Equal(t, "second answer", th.Messages[3].Content)
}

func TestSend_EmptyInput(t *testing.T) {
	h := newHarness(t, &fakeStreamer{body: body(nil, "unused")})

	for _, in := range []string{"", "   ", "\n\t"} {
		err := h.asm.Send(context.Background(), in)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}

	assert.Empty(t, h.store.Threads())
	assert.Zero(t, h.streamer.calls())
	assert.Zero(t, h.rec.scrolls)
}

func TestSend_BusyRejected(t *testing.T) {
	gate := make(chan struct{})
	streamer := &fakeStreamer{body: body(nil, "done"), gate: gate}
	h := newHarness(t, streamer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.asm.Send(context.Background(), "first")
	}()

	require.Eventually(t, func() bool { return streamer.calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, h.asm.Busy())
	assert.Equal(t, StateStreaming, h.asm.State())

	before := h.store.Current()
	err := h.asm.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	after := h.store.Current()
	assert.Equal(t, len(before.Messages), len(after.Messages))

	close(gate)
	require.NoError(t, <-errCh)

	assert.False(t, h.asm.Busy())
	th := h.store.Current()
	require.Len(t, th.Messages, 2)
	assert.Equal(t, "done", th.Messages[1].Content)
	assert.Equal(t, 1, streamer.calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeBusy)))
}

// =============================================================================
// STREAM DECODING
// =============================================================================

func TestStream_ConcatenatesChunks(t *testing.T) {
	h := newHarness(t, &fakeStreamer{body: body(nil, "Hel", "lo world")})

	require.NoError(t, h.asm.Send(context.Background(), "hi"))
	assert.Equal(t, "Hello world", h.store.Current().Messages[1].Content)
}

func TestStream_MultibyteAcrossChunks(t *testing.T) {
	// "ü" is 0xC3 0xBC, "→" is 0xE2 0x86 0x92.
	h := newHarness(t, &fakeStreamer{body: body(nil, "Gr\xc3", "\xbc\xc3\x9fe \xe2\x86", "\x92 ok")})

	require.NoError(t, h.asm.Send(context.Background(), "hi"))
	assert.Equal(t, "Grüße → ok", h.store.Current().Messages[1].Content)
}

func TestStream_MidStreamFailureKeepsPartial(t *testing.T) {
	b := body(errors.New("connection reset by peer"), "partial ", "answer")
	h := newHarness(t, &fakeStreamer{body: b})

	err := h.asm.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	th := h.store.Current()
	require.Len(t, th.Messages, 2)
	assert.Equal(t, "partial answer", th.Messages[1].Content)
	assert.False(t, th.Messages[1].Streaming)

	assert.False(t, h.asm.Busy())
	assert.Equal(t, StateIdle, h.asm.State())
	assert.True(t, b.closed)
	assert.Equal(t, []string{"Failed to get AI response"}, h.rec.notes)
	assert.Equal(t, 1, h.rec.scrolls)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeError)))

	// Not retried; a new submission is accepted.
	h.streamer.body = body(nil, "recovered")
	require.NoError(t, h.asm.Send(context.Background(), "again"))
	assert.Equal(t, "recovered", h.store.Current().Messages[3].Content)
}

func TestStream_TransportErrorMidStreamIsClassified(t *testing.T) {
	reset := &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}
	for name, readErr := range map[string]error{
		"unexpected eof":   io.ErrUnexpectedEOF,
		"connection reset": reset,
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, &fakeStreamer{body: body(readErr, "Hel")})

			err := h.asm.Send(context.Background(), "hi")
			require.Error(t, err)
			assert.True(t, chatapi.IsConnection(err), "got %v", err)
			assert.ErrorIs(t, err, readErr)

			assert.Equal(t, "Hel", h.store.Current().Messages[1].Content)
			assert.Equal(t, []string{"Cannot reach the chat server"}, h.rec.notes)
			assert.False(t, h.asm.Busy())
		})
	}
}

func TestStream_OpenFailure(t *testing.T) {
	h := newHarness(t, &fakeStreamer{err: &chatapi.ClientError{Type: chatapi.ErrTypeConnection, Message: "dial"}})

	err := h.asm.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, chatapi.IsConnection(err))

	th := h.store.Current()
	require.Len(t, th.Messages, 2)
	assert.Empty(t, th.Messages[1].Content)
	assert.False(t, th.Messages[1].Streaming)
	assert.Equal(t, []string{"Cannot reach the chat server"}, h.rec.notes)
	assert.False(t, h.asm.Busy())
}

func TestStream_MissingBody(t *testing.T) {
	h := newHarness(t, &fakeStreamer{})

	err := h.asm.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, chatapi.ErrTypeNoBody, chatapi.ErrorTypeOf(err))
	assert.False(t, h.asm.Busy())
}

func TestStream_UnknownThreadFails(t *testing.T) {
	h := newHarness(t, &fakeStreamer{body: body(nil, "x")})

	err := h.asm.Stream(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, store.ErrThreadNotFound)
	assert.Zero(t, h.streamer.calls())
	assert.False(t, h.asm.Busy())
}

func TestStream_CancelledContextNoToast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newHarness(t, &fakeStreamer{body: body(context.Canceled, "a")})

	err := h.asm.Send(ctx, "hi")
	require.Error(t, err)
	assert.Empty(t, h.rec.notes)
	assert.Equal(t, "a", h.store.Current().Messages[1].Content)
}

// staleStore wraps a real store and reports every growth as stale.
type staleStore struct {
	*store.Store
}

func (s staleStore) GrowAssistantMessage(threadID, messageID, fragment string) error {
	return store.ErrMessageNotFound
}

func TestStream_StaleUpdatesSwallowed(t *testing.T) {
	s := store.New(nil)
	defer s.Close()
	m := metrics.New()
	asm := New(Config{
		Store:    staleStore{s},
		Streamer: &fakeStreamer{body: body(nil, "a", "b")},
		Metrics:  m,
	})

	require.NoError(t, asm.Send(context.Background(), "hi"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StaleUpdates))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FragmentsTotal))
}

func TestStream_OnFragment(t *testing.T) {
	var got []string
	s := store.New(nil)
	defer s.Close()
	asm := New(Config{
		Store:      s,
		Streamer:   &fakeStreamer{body: body(nil, "one ", "two")},
		OnFragment: func(_, _, frag string) { got = append(got, frag) },
	})

	require.NoError(t, asm.Send(context.Background(), "hi"))
	assert.Equal(t, "one two", strings.Join(got, ""))
}

// =============================================================================
// END TO END
// =============================================================================

func TestStream_HTTPEndToEnd(t *testing.T) {
	tests := []struct {
		name   string
		format chatapi.Format
		parts  []string
		want   string
	}{
		{
			name:   "text",
			format: chatapi.FormatText,
			parts:  []string{"Hel", "lo world"},
			want:   "Hello world",
		},
		{
			name:   "ndjson",
			format: chatapi.FormatNDJSON,
			parts: []string{
				`{"message":{"content":"Hel"},"done":false}` + "\n",
				`{"message":{"content":"lo world"},"done":false}` + "\n" + `{"done":true}` + "\n",
			},
			want: "Hello world",
		},
		{
			name:   "sse",
			format: chatapi.FormatSSE,
			parts: []string{
				"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n",
				"data: {\"choices\":[{\"delta\":{\"content\":\"lo world\"}}]}\n\ndata: [DONE]\n\n",
			},
			want: "Hello world",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				flusher, _ := w.(http.Flusher)
				w.WriteHeader(http.StatusOK)
				for _, p := range tc.parts {
					_, _ = io.WriteString(w, p)
					if flusher != nil {
						flusher.Flush()
					}
				}
			}))
			defer srv.Close()

			s := store.New(nil)
			defer s.Close()
			asm := New(Config{
				Store:    s,
				Streamer: chatapi.NewClientWithConfig(&chatapi.ClientConfig{BaseURL: srv.URL}),
				Format:   tc.format,
			})

			require.NoError(t, asm.Send(context.Background(), "hi"))
			assert.Equal(t, tc.want, s.Current().Messages[1].Content)
		})
	}
}

func TestStream_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := store.New(nil)
	defer s.Close()
	rec := &recorder{}
	asm := New(Config{
		Store:    s,
		Streamer: chatapi.NewClientWithConfig(&chatapi.ClientConfig{BaseURL: srv.URL}),
		Notifier: rec,
	})

	err := asm.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, 500, chatapi.StatusCode(err))
	assert.Equal(t, []string{"The chat server returned HTTP 500"}, rec.notes)
	assert.Empty(t, s.Current().Messages[1].Content)
}
