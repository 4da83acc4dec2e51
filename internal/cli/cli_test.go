// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/petalmind/internal/config"
	"github.com/jeranaias/petalmind/internal/model"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// echoServer replies "Echo: <last message>" as plain text in two chunks.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []model.WireMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		last := req.Messages[len(req.Messages)-1]
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Echo: "))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte(last.Content))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// isolate points the config directory at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PETALMIND_HOME", dir)
	return dir
}

// run executes the root command with args and stdin, returning stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_StreamsReply(t *testing.T) {
	isolate(t)
	srv := echoServer(t)

	out, err := run(t, "", "ask", "--base-url", srv.URL, "Explain", "recursion")
	require.NoError(t, err)
	assert.Equal(t, "Echo: Explain recursion\n", out)
}

func TestAsk_NDJSON(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":"Hi"},"done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"message":{"content":" there"},"done":true}` + "\n"))
	}))
	defer srv.Close()

	out, err := run(t, "", "ask", "--base-url", srv.URL, "--format", "ndjson", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there\n", out)
}

func TestAsk_ServerError(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := run(t, "", "ask", "--base-url", srv.URL, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Empty(t, out)
}

func TestAsk_BlankQuestion(t *testing.T) {
	isolate(t)
	srv := echoServer(t)

	_, err := run(t, "", "ask", "--base-url", srv.URL, "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestFlags_InvalidFormatRejected(t *testing.T) {
	isolate(t)

	_, err := run(t, "", "ask", "--format", "xml", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.stream_format")
}

// =============================================================================
// REPL
// =============================================================================

func TestChat_Commands(t *testing.T) {
	isolate(t)
	srv := echoServer(t)
	exportPath := filepath.Join(t.TempDir(), "chat.md")

	input := strings.Join([]string{
		"hello",
		"/threads",
		"/new",
		"second question",
		"/threads",
		"/switch 1",
		"/export " + exportPath,
		"/switch 9",
		"/bogus",
		"/quit",
		"never sent",
	}, "\n") + "\n"

	out, err := run(t, input, "chat", "--base-url", srv.URL)
	require.NoError(t, err)

	assert.Contains(t, out, "PetalMind: Echo: hello")
	assert.Contains(t, out, "PetalMind: Echo: second question")
	assert.Contains(t, out, "[New chat]")
	assert.Contains(t, out, "1. hello (2 messages)")
	assert.Contains(t, out, "2. second question (2 messages)")
	assert.Contains(t, out, "[Switched] hello")
	assert.Contains(t, out, "[Exported] "+exportPath)
	assert.Contains(t, out, "no chat 9 (have 2)")
	assert.Contains(t, out, "unknown command: /bogus")
	assert.NotContains(t, out, "never sent")

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# hello")
	assert.Contains(t, string(data), "Echo: hello")
	assert.NotContains(t, string(data), "second question")
}

func TestChat_ExportWithoutThread(t *testing.T) {
	isolate(t)
	srv := echoServer(t)

	out, err := run(t, "/export out.md\n", "chat", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "no current chat to export")
}

func TestChat_ConnectionFailureShowsError(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out, err := run(t, "hello\n/threads\n", "chat", "--base-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "[Error] Cannot reach the chat server")
	// The user message and the empty placeholder stay in the thread.
	assert.Contains(t, out, "1. hello (2 messages)")
}

func TestRoot_RedirectedInputRunsREPL(t *testing.T) {
	isolate(t)
	srv := echoServer(t)

	out, err := run(t, "hi\n", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Type /help for commands")
	assert.Contains(t, out, "Signed in as Guest")
	assert.Contains(t, out, "PetalMind: Echo: hi")
}

// =============================================================================
// CONFIG & VERSION
// =============================================================================

func TestConfig_Get(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "config", "get", "api.endpoint")
	require.NoError(t, err)
	assert.Equal(t, "/api/chat\n", out)

	out, err = run(t, "", "config", "get", "api.base_url", "--base-url", "http://10.0.0.2:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:8080\n", out)

	_, err = run(t, "", "config", "get", "api.nope")
	assert.Error(t, err)
}

func TestConfig_ShowRedactsToken(t *testing.T) {
	isolate(t)
	t.Setenv("PETALMIND_TOKEN", "very-secret")

	out, err := run(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "base_url")
	assert.NotContains(t, out, "very-secret")
}

func TestConfig_InitAndPath(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom", "config.toml")

	out, err := run(t, "", "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	_, err = run(t, "", "--config", path, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = run(t, "", "--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, "", "--config", path, "config", "init", "--force")
	require.NoError(t, err)

	out, err = run(t, "", "--config", path, "config", "get", "ui.show_sidebar")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestWatchConfig_ReappliesFlags(t *testing.T) {
	dir := isolate(t)
	config.ResetGlobalForTesting()
	defer config.ResetGlobalForTesting()

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\nshow_sidebar = true\n"), 0o600))

	flags := &globalFlags{configPath: path, baseURL: "http://10.0.0.9:3000", format: "ndjson"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, flags, nil)
	require.NoError(t, err)
	defer a.Close()

	changes := make(chan *config.Config, 4)
	watchConfig(ctx, a, flags, func(c *config.Config) { changes <- c })

	require.NoError(t, os.WriteFile(path, []byte("[ui]\nshow_sidebar = false\n"), 0o600))

	select {
	case cfg := <-changes:
		assert.False(t, cfg.UI.ShowSidebar)
		assert.Equal(t, "http://10.0.0.9:3000", cfg.API.BaseURL)
		assert.Equal(t, "ndjson", cfg.API.StreamFormat)
		assert.Equal(t, a.cfg.API.BaseURL, config.Global().API.BaseURL)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "petalmind "+Version))
}
