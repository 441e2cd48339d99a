// Package message defines the conversation data model consumed by the context engine.
package message

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

// Role constants.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry of a conversation history.
//
// Content is either plain text (Blocks == nil) or an ordered list of content
// blocks. Messages are owned by the caller and treated as immutable here.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Text      string         `json:"-"`
	Blocks    []ContentBlock `json:"-"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewText creates a plain-text message with a fresh ID.
func NewText(role Role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewBlocks creates a block-list message with a fresh ID.
func NewBlocks(role Role, blocks ...ContentBlock) Message {
	if blocks == nil {
		blocks = []ContentBlock{}
	}
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Blocks:    blocks,
		Timestamp: time.Now(),
	}
}

// HasBlocks reports whether the content is a block list rather than plain text.
func (m Message) HasBlocks() bool {
	return m.Blocks != nil
}

// IsSystem reports whether the message has the system role.
func (m Message) IsSystem() bool {
	return m.Role == RoleSystem
}

// HasToolContent reports whether the block list contains a tool_use or tool_result block.
func (m Message) HasToolContent() bool {
	for _, b := range m.Blocks {
		switch b.(type) {
		case ToolUseBlock, ToolResultBlock:
			return true
		}
	}
	return false
}

// ToolNames returns the names of tool_use blocks in order.
func (m Message) ToolNames() []string {
	var names []string
	for _, b := range m.Blocks {
		if v, ok := b.(ToolUseBlock); ok {
			names = append(names, v.Name)
		}
	}
	return names
}

// PlainText returns the human-readable text of the message: the plain content,
// or the text blocks joined by newlines. Tool and thinking blocks are ignored.
func (m Message) PlainText() string {
	if !m.HasBlocks() {
		return m.Text
	}
	parts := make([]string, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		if v, ok := b.(TextBlock); ok {
			parts = append(parts, v.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Flatten returns the full content as one string for token accounting.
// Text and thinking blocks emit their text, tool blocks emit their canonical
// JSON form, and unrecognized blocks emit nothing.
func (m Message) Flatten() string {
	if !m.HasBlocks() {
		return m.Text
	}
	parts := make([]string, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		parts = append(parts, flattenBlock(b))
	}
	return strings.Join(parts, "\n")
}

func flattenBlock(b ContentBlock) string {
	switch v := b.(type) {
	case TextBlock:
		return v.Text
	case ThinkingBlock:
		return v.Thinking
	case ToolUseBlock, ToolResultBlock:
		data, err := marshalBlock(b)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return ""
	}
}

// wireMessage is the JSON shape of a Message; content is a string or a block array.
type wireMessage struct {
	ID        string          `json:"id,omitempty"`
	Role      Role            `json:"role"`
	Content   json.RawMessage `json:"content"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

// MarshalJSON encodes content as a string or an array of typed blocks.
func (m Message) MarshalJSON() ([]byte, error) {
	var content []byte
	var err error
	if m.HasBlocks() {
		raw := make([]json.RawMessage, 0, len(m.Blocks))
		for _, b := range m.Blocks {
			data, err := marshalBlock(b)
			if err != nil {
				return nil, err
			}
			raw = append(raw, data)
		}
		content, err = json.Marshal(raw)
	} else {
		content, err = json.Marshal(m.Text)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{
		ID:        m.ID,
		Role:      m.Role,
		Content:   content,
		Timestamp: m.Timestamp,
	})
}

// UnmarshalJSON accepts content as a string, an array of blocks, or null.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.ID = w.ID
	m.Role = w.Role
	m.Timestamp = w.Timestamp
	m.Text = ""
	m.Blocks = nil

	trimmed := strings.TrimSpace(string(w.Content))
	switch {
	case trimmed == "" || trimmed == "null":
		return nil
	case strings.HasPrefix(trimmed, "["):
		var raw []json.RawMessage
		if err := json.Unmarshal(w.Content, &raw); err != nil {
			return err
		}
		m.Blocks = make([]ContentBlock, 0, len(raw))
		for _, r := range raw {
			m.Blocks = append(m.Blocks, unmarshalBlock(r))
		}
		return nil
	default:
		return json.Unmarshal(w.Content, &m.Text)
	}
}
