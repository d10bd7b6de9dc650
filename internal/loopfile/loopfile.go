// Package loopfile reads and writes loop collections as JSON or YAML.
package loopfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tOgg1/loopline/internal/models"
)

// Format is a supported file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for unknown file extensions or formats.
var ErrUnsupportedFormat = errors.New("unsupported loop file format")

// Document is the on-disk shape of a loop collection.
type Document struct {
	MediaID        string        `json:"media_id,omitempty" yaml:"media_id,omitempty"`
	Title          string        `json:"title,omitempty" yaml:"title,omitempty"`
	TimelineLength *float64      `json:"timeline_length,omitempty" yaml:"timeline_length,omitempty"`
	Loops          []models.Loop `json:"loops" yaml:"loops"`
}

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Read loads a document from path.
func Read(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open loop file: %w", err)
	}
	defer f.Close()

	doc, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return doc, nil
}

// Decode parses a document. A bare list of loops is accepted as well as the
// full document form.
func Decode(r io.Reader, format Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	doc := &Document{}
	switch format {
	case FormatJSON:
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			err = json.Unmarshal(data, &doc.Loops)
		} else {
			err = json.Unmarshal(data, doc)
		}
	case FormatYAML:
		var node yaml.Node
		if err = yaml.Unmarshal(data, &node); err == nil && len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			err = node.Decode(&doc.Loops)
		} else if err == nil {
			err = yaml.Unmarshal(data, doc)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}

	if doc.Loops == nil {
		doc.Loops = []models.Loop{}
	}
	return doc, nil
}

// Encode writes doc to w.
func Encode(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Write stores doc at path, creating parent directories.
func Write(path string, doc *Document) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create loop file: %w", err)
	}
	if err := Encode(f, doc, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
