package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnknownFormat is returned for an output format other than json or yaml.
var ErrUnknownFormat = errors.New("manifest: unknown format")

// FormatForPath picks the format from a file extension, defaulting to JSON.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Write encodes m to w. JSON is indented with two spaces.
func Write(w io.Writer, m *Manifest, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("manifest: encode json: %w", err)
		}
		return nil
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("manifest: encode yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

// WriteFile writes m to path, creating parent directories.
func WriteFile(path string, m *Manifest, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("manifest: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("manifest: create output: %w", err)
	}
	if err := Write(f, m, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read decodes a manifest written by Write.
func Read(r io.Reader, format string) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(format) {
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("manifest: decode json: %w", err)
		}
	case FormatYAML, "yml":
		if err := yaml.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("manifest: decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	return &m, nil
}

// ReadFile reads a manifest, picking the format from the extension.
func ReadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open: %w", err)
	}
	defer f.Close()
	return Read(f, FormatForPath(path))
}
