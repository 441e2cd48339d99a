package compaction

import (
	"math"

	"ctxwin/internal/message"
)

const (
	// DefaultTokensPerChar is the cost of one non-CJK character (~4 chars per token).
	DefaultTokensPerChar = 0.25

	// cjkTokensPerChar is the cost of one CJK ideograph.
	cjkTokensPerChar = 1.5

	// messageOverhead covers role tagging and separators per message.
	messageOverhead = 4
)

// TokenEstimator approximates token counts for text and messages.
type TokenEstimator struct {
	tokensPerChar float64
}

// NewTokenEstimator creates a TokenEstimator. A non-positive tokensPerChar
// falls back to DefaultTokensPerChar.
func NewTokenEstimator(tokensPerChar float64) *TokenEstimator {
	if tokensPerChar <= 0 {
		tokensPerChar = DefaultTokensPerChar
	}
	return &TokenEstimator{tokensPerChar: tokensPerChar}
}

// TokensPerChar returns the configured cost of a non-CJK character.
func (e *TokenEstimator) TokensPerChar() float64 {
	return e.tokensPerChar
}

// Estimate estimates the token count for a given text.
// CJK ideographs cost 1.5 tokens each, every other code point costs
// tokensPerChar, and the sum is rounded up.
func (e *TokenEstimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	cjk, other := 0, 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	return int(math.Ceil(float64(cjk)*cjkTokensPerChar + float64(other)*e.tokensPerChar))
}

// EstimateMessage estimates a single message: flattened content plus the
// fixed per-message overhead.
func (e *TokenEstimator) EstimateMessage(msg message.Message) int {
	return e.Estimate(msg.Flatten()) + messageOverhead
}

// EstimateMessages estimates the total token count for a slice of messages.
func (e *TokenEstimator) EstimateMessages(messages []message.Message) int {
	total := 0
	for _, msg := range messages {
		total += e.EstimateMessage(msg)
	}
	return total
}

// isCJK reports whether r is in the CJK Unified Ideographs block.
func isCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}
