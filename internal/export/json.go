// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/petalmind/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports threads to JSON. It always writes the complete thread.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter. Options are accepted for
// consistency with the other exporters.
func NewJSONExporter(*Options) *JSONExporter {
	return &JSONExporter{}
}

// Export converts a thread to indented JSON.
func (e *JSONExporter) Export(thread *model.Thread) ([]byte, error) {
	if thread == nil {
		return nil, ErrNilThread
	}
	data, err := json.MarshalIndent(thread, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

// =============================================================================
// YAML EXPORTER
// =============================================================================

// YAMLExporter exports threads to YAML with the same fields as JSON.
type YAMLExporter struct{}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter(*Options) *YAMLExporter {
	return &YAMLExporter{}
}

// Export converts a thread to YAML.
func (e *YAMLExporter) Export(thread *model.Thread) ([]byte, error) {
	if thread == nil {
		return nil, ErrNilThread
	}
	return yaml.Marshal(thread)
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string {
	return ".yaml"
}

// MimeType returns the MIME type for YAML.
func (e *YAMLExporter) MimeType() string {
	return "application/yaml"
}
