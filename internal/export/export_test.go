// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/petalmind/internal/model"
)

func sampleThread() *model.Thread {
	th := model.NewThread("Explain recursion")
	th.AddMessage(model.NewUserMessage("Explain recursion"))
	reply := model.NewAssistantPlaceholder()
	reply.Append("A function that calls **itself**.")
	reply.Seal()
	reply.SetFeedback(model.FeedbackLike)
	th.AddMessage(reply)
	return th
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleThread())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: Explain recursion\n"))
	assert.Contains(t, md, "# Explain recursion")
	assert.Contains(t, md, "### You <sub>")
	assert.Contains(t, md, "### PetalMind <sub>")
	assert.Contains(t, md, "A function that calls **itself**.")
	assert.Contains(t, md, "Feedback: liked")
	assert.Less(t, strings.Index(md, "### You"), strings.Index(md, "### PetalMind"))
}

func TestMarkdownExporter_NoMetadata(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{}).Export(sampleThread())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Explain recursion"))
	assert.Contains(t, md, "### You\n\n")
}

func TestJSONAndYAMLExporters(t *testing.T) {
	th := sampleThread()

	data, err := NewJSONExporter(nil).Export(th)
	require.NoError(t, err)
	var fromJSON model.Thread
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, th.ID, fromJSON.ID)
	require.Len(t, fromJSON.Messages, 2)
	assert.True(t, fromJSON.Messages[1].Liked)
	assert.NotContains(t, string(data), "Streaming")

	data, err = NewYAMLExporter(nil).Export(th)
	require.NoError(t, err)
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, "Explain recursion", fromYAML["title"])
}

func TestExporters_NilThread(t *testing.T) {
	for _, e := range []Exporter{NewMarkdownExporter(nil), NewJSONExporter(nil), NewYAMLExporter(nil)} {
		_, err := e.Export(nil)
		assert.ErrorIs(t, err, ErrNilThread)
	}
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path    string
		ext     string
		wantErr bool
	}{
		{"a.md", ".md", false},
		{"a.MARKDOWN", ".md", false},
		{"a.json", ".json", false},
		{"a.yml", ".yaml", false},
		{"a.yaml", ".yaml", false},
		{"a.html", "", true},
		{"noext", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			e, err := ForPath(tc.path, nil)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.ext, e.FileExtension())
		})
	}
}

func TestToFileAndToDir(t *testing.T) {
	dir := t.TempDir()
	th := sampleThread()

	path, err := ToFile(th, filepath.Join(dir, "out.json"), nil)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), th.ID)

	path, err = ToDir(th, filepath.Join(dir, "sub"), NewMarkdownExporter(nil))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "petalmind_Explain_recursion_"))
	assert.Equal(t, ".md", filepath.Ext(path))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b_c", sanitizeFilename("a/b c"))
	assert.Equal(t, "thread", sanitizeFilename("   "))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("é", 60))), 40)
}
