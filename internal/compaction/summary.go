package compaction

import (
	"strings"
	"time"
	"unicode/utf8"

	"ctxwin/internal/message"
)

const (
	maxSummaryLines      = 10
	userLineLimit        = 100
	assistantLineLimit   = 80
	assistantMinTextSize = 50

	// SummaryHeader prefixes the content of a synthesized summary message.
	SummaryHeader = "[conversation summary]"
)

// ConversationSummary is an extractive synopsis of a run of messages.
type ConversationSummary struct {
	Content        string    `json:"content"`
	MessageCount   int       `json:"message_count"`
	OriginalTokens int       `json:"original_tokens"`
	SummaryTokens  int       `json:"summary_tokens"`
	CreatedAt      time.Time `json:"created_at"`
}

// SummaryGenerator condenses messages into short bullet-like lines.
type SummaryGenerator struct {
	estimator *TokenEstimator
	now       func() time.Time
}

// NewSummaryGenerator creates a SummaryGenerator.
func NewSummaryGenerator(estimator *TokenEstimator) *SummaryGenerator {
	if estimator == nil {
		estimator = NewTokenEstimator(DefaultTokensPerChar)
	}
	return &SummaryGenerator{estimator: estimator, now: time.Now}
}

// Summarize builds a summary of messages. User messages contribute their
// text, assistant messages contribute executed tools and any substantial
// text. Only the last ten lines are kept.
func (g *SummaryGenerator) Summarize(messages []message.Message) ConversationSummary {
	var lines []string
	for _, msg := range messages {
		switch msg.Role {
		case message.RoleUser:
			text := strings.TrimSpace(msg.PlainText())
			if text != "" {
				lines = append(lines, "user: "+truncate(text, userLineLimit))
			}
		case message.RoleAssistant:
			for _, name := range msg.ToolNames() {
				lines = append(lines, "executed tool: "+name)
			}
			text := strings.TrimSpace(msg.PlainText())
			if utf8.RuneCountInString(text) > assistantMinTextSize {
				lines = append(lines, "assistant: "+truncate(text, assistantLineLimit))
			}
		}
	}

	if len(lines) > maxSummaryLines {
		lines = lines[len(lines)-maxSummaryLines:]
	}
	content := strings.Join(lines, "\n")

	return ConversationSummary{
		Content:        content,
		MessageCount:   len(messages),
		OriginalTokens: g.estimator.EstimateMessages(messages),
		SummaryTokens:  g.estimator.Estimate(content),
		CreatedAt:      g.now(),
	}
}

// truncate shortens s to n runes, replacing the tail with "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
