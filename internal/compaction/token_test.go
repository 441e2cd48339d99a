package compaction

import (
	"testing"

	"ctxwin/internal/message"
)

func TestTokenEstimator_Estimate(t *testing.T) {
	e := NewTokenEstimator(DefaultTokensPerChar)

	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{
			name:     "empty text",
			text:     "",
			expected: 0,
		},
		{
			name:     "short English text",
			text:     "hello",
			expected: 2,
		},
		{
			name:     "exact multiple of four",
			text:     "abcdefgh",
			expected: 2,
		},
		{
			name:     "Chinese text",
			text:     "你好",
			expected: 3,
		},
		{
			name:     "mixed English and Chinese",
			text:     "Hello 你好",
			expected: 5,
		},
		{
			name:     "single character",
			text:     "a",
			expected: 1,
		},
		{
			name:     "non-CJK multibyte counts as other",
			text:     "héllo",
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Estimate(tt.text)
			if got != tt.expected {
				t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.expected)
			}
		})
	}
}

func TestTokenEstimator_CustomRate(t *testing.T) {
	e := NewTokenEstimator(0.5)
	if got := e.Estimate("hello"); got != 3 {
		t.Errorf("Estimate(hello) at 0.5 = %d, want 3", got)
	}

	fallback := NewTokenEstimator(0)
	if fallback.TokensPerChar() != DefaultTokensPerChar {
		t.Errorf("non-positive rate should fall back to default, got %v", fallback.TokensPerChar())
	}
}

func TestTokenEstimator_NonEmptyIsPositive(t *testing.T) {
	e := NewTokenEstimator(DefaultTokensPerChar)
	for _, text := range []string{" ", "x", "\n", "中", "a b c", "🙂"} {
		if got := e.Estimate(text); got <= 0 {
			t.Errorf("Estimate(%q) = %d, want > 0", text, got)
		}
	}
}

func TestTokenEstimator_EstimateMessages(t *testing.T) {
	e := NewTokenEstimator(DefaultTokensPerChar)

	tests := []struct {
		name     string
		messages []message.Message
		expected int
	}{
		{
			name:     "empty messages",
			messages: []message.Message{},
			expected: 0,
		},
		{
			name: "single simple message",
			messages: []message.Message{
				{Role: message.RoleUser, Text: "hello"},
			},
			expected: 6,
		},
		{
			name: "multiple messages",
			messages: []message.Message{
				{Role: message.RoleUser, Text: "hello"},
				{Role: message.RoleAssistant, Text: "Hi there!"},
			},
			expected: 13,
		},
		{
			name: "empty block list costs only overhead",
			messages: []message.Message{
				{Role: message.RoleAssistant, Blocks: []message.ContentBlock{}},
			},
			expected: 4,
		},
		{
			name: "text blocks joined by newline",
			messages: []message.Message{
				{Role: message.RoleAssistant, Blocks: []message.ContentBlock{
					message.TextBlock{Text: "abc"},
					message.TextBlock{Text: "def"},
				}},
			},
			// "abc\ndef" = 7 chars -> ceil(1.75) = 2, plus overhead
			expected: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.EstimateMessages(tt.messages)
			if got != tt.expected {
				t.Errorf("EstimateMessages() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestTokenEstimator_ToolBlocksAreCounted(t *testing.T) {
	e := NewTokenEstimator(DefaultTokensPerChar)
	bare := message.Message{Role: message.RoleAssistant, Blocks: []message.ContentBlock{}}
	withTool := message.Message{Role: message.RoleAssistant, Blocks: []message.ContentBlock{
		message.ToolUseBlock{Name: "read_file"},
	}}
	if e.EstimateMessage(withTool) <= e.EstimateMessage(bare) {
		t.Error("tool_use block should add tokens")
	}
}
