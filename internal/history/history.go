// Package history reads and writes conversation histories on disk.
//
// Three layouts are supported, chosen by file extension:
//   - .json: a single array of messages
//   - .jsonl: one message object per line
//   - .yaml / .yml: a sequence of messages
//
// Message content may be a plain string or a list of typed blocks in every
// layout. Messages without an id are assigned a random one on load.
package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"ctxwin/internal/message"
)

// Format identifies an on-disk history layout.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 16 * 1024 * 1024

// FormatFor returns the layout implied by path's extension.
func FormatFor(path string) (Format, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads the history stored at path.
func Load(path string) ([]message.Message, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	msgs, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return msgs, nil
}

// Decode reads messages in the given layout from r.
func Decode(r io.Reader, format Format) ([]message.Message, error) {
	var (
		msgs []message.Message
		err  error
	)
	switch format {
	case FormatJSON:
		msgs, err = decodeJSON(r)
	case FormatJSONL:
		msgs, err = decodeJSONL(r)
	case FormatYAML:
		msgs, err = decodeYAML(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	for i := range msgs {
		if err := validateRole(msgs[i].Role); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		if msgs[i].ID == "" {
			msgs[i].ID = uuid.NewString()
		}
	}
	return msgs, nil
}

// Save writes msgs to path in the layout implied by its extension.
func Save(path string, msgs []message.Message) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, msgs, format); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Encode writes msgs to w in the given layout.
func Encode(w io.Writer, msgs []message.Message, format Format) error {
	if msgs == nil {
		msgs = []message.Message{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(msgs)
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for i, m := range msgs {
			if err := enc.Encode(m); err != nil {
				return fmt.Errorf("encode message %d: %w", i, err)
			}
		}
		return nil
	case FormatYAML:
		return encodeYAML(w, msgs)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func decodeJSON(r io.Reader) ([]message.Message, error) {
	var msgs []message.Message
	if err := json.NewDecoder(r).Decode(&msgs); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return msgs, nil
}

func decodeJSONL(r io.Reader) ([]message.Message, error) {
	var msgs []message.Message
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var m message.Message
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode jsonl line %d: %w", line, err)
		}
		msgs = append(msgs, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return msgs, nil
}

// decodeYAML converts the YAML document to JSON so that block content goes
// through the same codec as the JSON layouts.
func decodeYAML(r io.Reader) ([]message.Message, error) {
	var doc []any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	var msgs []message.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decode yaml messages: %w", err)
	}
	return msgs, nil
}

func encodeYAML(w io.Writer, msgs []message.Message) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	var doc []any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("convert messages: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func validateRole(r message.Role) error {
	switch r {
	case message.RoleSystem, message.RoleUser, message.RoleAssistant:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, r)
	}
}
