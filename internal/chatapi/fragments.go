// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// FORMATS
// =============================================================================

// Format names the streamed payload encoding.
type Format string

const (
	// FormatText is raw UTF-8 text; every chunk is appended as-is.
	FormatText Format = "text"

	// FormatNDJSON is one JSON object per line, {"message":{"content":..},"done":..}.
	FormatNDJSON Format = "ndjson"

	// FormatSSE is text/event-stream with OpenAI style delta payloads.
	FormatSSE Format = "sse"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatNDJSON, FormatSSE}

// ParseFormat validates a format name. Empty means FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatNDJSON, FormatSSE:
		return f, nil
	default:
		return "", fmt.Errorf("unknown stream format %q", s)
	}
}

// =============================================================================
// FRAGMENT READER
// =============================================================================

// FragmentReader yields decoded text fragments in arrival order.
// Next returns io.EOF when the stream ends normally.
type FragmentReader interface {
	Next() (string, error)
}

// NewFragmentReader wraps a response body in the reader for format.
func NewFragmentReader(format Format, r io.Reader) FragmentReader {
	switch format {
	case FormatNDJSON:
		return newNDJSONReader(r)
	case FormatSSE:
		return newSSEReader(r)
	default:
		return newTextReader(r)
	}
}

// =============================================================================
// TEXT
// =============================================================================

// textReader decodes raw UTF-8. Incomplete sequences at the end of a chunk
// are held until the next chunk; invalid bytes become U+FFFD.
type textReader struct {
	r   io.Reader
	buf []byte
}

func newTextReader(r io.Reader) *textReader {
	return &textReader{
		r:   transform.NewReader(r, unicode.UTF8.NewDecoder()),
		buf: make([]byte, 4096),
	}
}

func (t *textReader) Next() (string, error) {
	for {
		n, err := t.r.Read(t.buf)
		if n > 0 {
			return string(t.buf[:n]), nil
		}
		if err != nil {
			return "", err
		}
	}
}

// =============================================================================
// NDJSON
// =============================================================================

type ndjsonReader struct {
	reader *bufio.Reader
	done   bool
}

func newNDJSONReader(r io.Reader) *ndjsonReader {
	return &ndjsonReader{reader: bufio.NewReader(r)}
}

// ndjsonChunk covers both the chat ({"message":..}) and generate
// ({"response":..}) line shapes.
type ndjsonChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (n *ndjsonReader) Next() (string, error) {
	for {
		if n.done {
			return "", io.EOF
		}
		line, err := n.reader.ReadBytes('\n')
		if err != nil && (err != io.EOF || len(line) == 0) {
			return "", err
		}
		atEOF := err == io.EOF

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if atEOF {
				return "", io.EOF
			}
			continue
		}

		var chunk ndjsonChunk
		if jerr := json.Unmarshal(line, &chunk); jerr != nil {
			// Skip malformed lines
			if atEOF {
				return "", io.EOF
			}
			continue
		}
		if chunk.Error != "" {
			return "", &ClientError{Type: ErrTypeUnknown, Message: "stream error", Body: chunk.Error}
		}

		n.done = chunk.Done || atEOF
		content := chunk.Message.Content + chunk.Response
		if content != "" {
			return content, nil
		}
	}
}

// =============================================================================
// SERVER-SENT EVENTS
// =============================================================================

type sseReader struct {
	reader *bufio.Reader
	done   bool
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{reader: bufio.NewReader(r)}
}

// readEvent returns the joined data lines of the next event.
func (s *sseReader) readEvent() ([]byte, error) {
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				line = bytes.TrimRight(line, "\r\n")
				if bytes.HasPrefix(line, []byte("data:")) {
					dataLines = append(dataLines, trimData(line))
				}
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line ends the event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, trimData(line))
		}
		// Ignore other fields (event:, id:, retry:, comments starting with :)
	}
}

func trimData(line []byte) []byte {
	data := line[len("data:"):]
	if len(data) > 0 && data[0] == ' ' {
		data = data[1:]
	}
	return data
}

type sseDelta struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (s *sseReader) Next() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}
		data, err := s.readEvent()
		if err != nil {
			return "", err
		}

		if bytes.Equal(bytes.TrimSpace(data), []byte("[DONE]")) {
			s.done = true
			return "", io.EOF
		}

		if content, ok := decodeSSEData(data); ok {
			if content != "" {
				return content, nil
			}
			continue
		}
		return string(data), nil
	}
}

// decodeSSEData extracts text from an OpenAI style delta or a JSON string.
// ok is false when data is not JSON and should be used verbatim.
func decodeSSEData(data []byte) (string, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", true
	}
	switch trimmed[0] {
	case '{':
		var delta sseDelta
		if err := json.Unmarshal(trimmed, &delta); err != nil {
			return "", false
		}
		var sb strings.Builder
		for _, c := range delta.Choices {
			sb.WriteString(c.Delta.Content)
		}
		return sb.String(), true
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return s, true
	default:
		return "", false
	}
}
