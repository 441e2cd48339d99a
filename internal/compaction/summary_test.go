package compaction

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"ctxwin/internal/message"
)

func TestSummaryGenerator_Summarize(t *testing.T) {
	g := NewSummaryGenerator(nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	longAssistant := strings.Repeat("a", 100)
	msgs := []message.Message{
		{Role: message.RoleSystem, Text: "You are helpful."},
		{Role: message.RoleUser, Text: "fix the login bug"},
		{Role: message.RoleAssistant, Blocks: []message.ContentBlock{
			message.TextBlock{Text: "looking"},
			message.ToolUseBlock{Name: "read_file"},
			message.ToolUseBlock{Name: "grep"},
		}},
		{Role: message.RoleAssistant, Text: longAssistant},
		{Role: message.RoleAssistant, Text: "short reply"},
	}

	s := g.Summarize(msgs)

	want := strings.Join([]string{
		"user: fix the login bug",
		"executed tool: read_file",
		"executed tool: grep",
		"assistant: " + longAssistant[:77] + "...",
	}, "\n")
	if s.Content != want {
		t.Errorf("Content =\n%s\nwant\n%s", s.Content, want)
	}
	if s.MessageCount != 5 {
		t.Errorf("MessageCount = %d, want 5", s.MessageCount)
	}
	if s.OriginalTokens != NewTokenEstimator(DefaultTokensPerChar).EstimateMessages(msgs) {
		t.Errorf("OriginalTokens = %d", s.OriginalTokens)
	}
	if s.SummaryTokens != NewTokenEstimator(DefaultTokensPerChar).Estimate(want) {
		t.Errorf("SummaryTokens = %d", s.SummaryTokens)
	}
	if !s.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", s.CreatedAt, fixed)
	}
}

func TestSummaryGenerator_KeepsLastTenLines(t *testing.T) {
	g := NewSummaryGenerator(nil)

	var msgs []message.Message
	for i := 0; i < 15; i++ {
		msgs = append(msgs, message.Message{Role: message.RoleUser, Text: fmt.Sprintf("question %d", i)})
	}

	s := g.Summarize(msgs)
	lines := strings.Split(s.Content, "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 lines, got %d", len(lines))
	}
	if lines[0] != "user: question 5" {
		t.Errorf("first kept line = %q, want oldest dropped first", lines[0])
	}
	if lines[9] != "user: question 14" {
		t.Errorf("last line = %q", lines[9])
	}
}

func TestSummaryGenerator_UserTruncation(t *testing.T) {
	g := NewSummaryGenerator(nil)
	text := strings.Repeat("x", 150)
	s := g.Summarize([]message.Message{{Role: message.RoleUser, Text: text}})
	want := "user: " + strings.Repeat("x", 97) + "..."
	if s.Content != want {
		t.Errorf("Content = %q, want %q", s.Content, want)
	}
}

func TestSummaryGenerator_Empty(t *testing.T) {
	g := NewSummaryGenerator(nil)
	s := g.Summarize(nil)
	if s.Content != "" || s.MessageCount != 0 || s.OriginalTokens != 0 || s.SummaryTokens != 0 {
		t.Errorf("expected zeroed summary, got %+v", s)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"你好世界你好世界", 5, "你好..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
