package message

import (
	"encoding/json"
)

// BlockType is the discriminator of a content block.
type BlockType string

// Block types.
const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockThinking   BlockType = "thinking"
)

// ContentBlock is one element of a block-list message. The concrete types are
// TextBlock, ToolUseBlock, ToolResultBlock, ThinkingBlock and UnknownBlock.
type ContentBlock interface {
	Type() BlockType
}

// TextBlock carries plain text.
type TextBlock struct {
	Text string `json:"text"`
}

// ToolUseBlock is a tool invocation issued by the assistant.
type ToolUseBlock struct {
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolResultBlock is the output of a tool invocation.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ThinkingBlock carries model reasoning text.
type ThinkingBlock struct {
	Thinking string `json:"thinking"`
}

// UnknownBlock preserves a block whose type is not recognized.
type UnknownBlock struct {
	Kind BlockType
	Raw  json.RawMessage
}

func (TextBlock) Type() BlockType       { return BlockText }
func (ToolUseBlock) Type() BlockType    { return BlockToolUse }
func (ToolResultBlock) Type() BlockType { return BlockToolResult }
func (ThinkingBlock) Type() BlockType   { return BlockThinking }
func (b UnknownBlock) Type() BlockType  { return b.Kind }

// marshalBlock encodes a block in its canonical form: the block fields plus a
// leading "type" discriminator.
func marshalBlock(b ContentBlock) ([]byte, error) {
	switch v := b.(type) {
	case TextBlock:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			TextBlock
		}{BlockText, v})
	case ToolUseBlock:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			ToolUseBlock
		}{BlockToolUse, v})
	case ToolResultBlock:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			ToolResultBlock
		}{BlockToolResult, v})
	case ThinkingBlock:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			ThinkingBlock
		}{BlockThinking, v})
	case UnknownBlock:
		if len(v.Raw) > 0 {
			return v.Raw, nil
		}
		return json.Marshal(map[string]BlockType{"type": v.Kind})
	default:
		return []byte("null"), nil
	}
}

// unmarshalBlock decodes one block. Anything that cannot be decoded into a
// known shape becomes an UnknownBlock.
func unmarshalBlock(raw json.RawMessage) ContentBlock {
	var head struct {
		Type BlockType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return UnknownBlock{Raw: raw}
	}

	var (
		block ContentBlock
		err   error
	)
	switch head.Type {
	case BlockText:
		var b TextBlock
		err = json.Unmarshal(raw, &b)
		block = b
	case BlockToolUse:
		var b ToolUseBlock
		err = json.Unmarshal(raw, &b)
		block = b
	case BlockToolResult:
		var b ToolResultBlock
		err = unmarshalToolResult(raw, &b)
		block = b
	case BlockThinking:
		var b ThinkingBlock
		err = json.Unmarshal(raw, &b)
		block = b
	default:
		return UnknownBlock{Kind: head.Type, Raw: raw}
	}
	if err != nil {
		return UnknownBlock{Kind: head.Type, Raw: raw}
	}
	return block
}

// unmarshalToolResult accepts content either as a string or as a list of text
// blocks, which are joined with newlines.
func unmarshalToolResult(raw json.RawMessage, out *ToolResultBlock) error {
	var w struct {
		ToolUseID string          `json:"tool_use_id"`
		Content   json.RawMessage `json:"content"`
		IsError   bool            `json:"is_error"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return err
	}
	out.ToolUseID = w.ToolUseID
	out.IsError = w.IsError
	if len(w.Content) == 0 || string(w.Content) == "null" {
		return nil
	}
	if err := json.Unmarshal(w.Content, &out.Content); err == nil {
		return nil
	}
	var parts []TextBlock
	if err := json.Unmarshal(w.Content, &parts); err != nil {
		return err
	}
	for i, p := range parts {
		if i > 0 {
			out.Content += "\n"
		}
		out.Content += p.Text
	}
	return nil
}
