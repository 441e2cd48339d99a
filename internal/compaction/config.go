package compaction

import (
	"fmt"
	"strings"
)

// Strategy selects how a message list is reduced to fit a token budget.
type Strategy string

// Compression strategies.
const (
	// StrategyRemoveOld keeps system messages and as much of the recent tail as fits.
	StrategyRemoveOld Strategy = "remove_old"

	// StrategySummarize keeps system and recent messages and replaces the rest with a summary.
	StrategySummarize Strategy = "summarize"

	// StrategyTruncate keeps the newest messages that fit, scanning backwards.
	StrategyTruncate Strategy = "truncate"

	// StrategySmart keeps important older messages that fit and summarizes the remainder.
	StrategySmart Strategy = "smart"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{StrategyRemoveOld, StrategySummarize, StrategyTruncate, StrategySmart}

// ParseStrategy converts a name to a Strategy. Matching ignores case and
// surrounding whitespace; an empty name yields StrategySmart.
func ParseStrategy(name string) (Strategy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return StrategySmart, nil
	}
	for _, s := range Strategies {
		if string(s) == n {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Valid reports whether s is a supported strategy.
func (s Strategy) Valid() bool {
	for _, known := range Strategies {
		if s == known {
			return true
		}
	}
	return false
}

// Options configures a single compression pass.
type Options struct {
	// Strategy is the reduction policy. Default: smart
	Strategy Strategy `json:"strategy" yaml:"strategy"`

	// TargetTokens is the token budget for the returned messages.
	TargetTokens int `json:"target_tokens" yaml:"target_tokens"`

	// KeepRecentMessages is the number of trailing non-system messages that
	// are always kept by summarize and smart. Default: 10
	KeepRecentMessages int `json:"keep_recent_messages" yaml:"keep_recent_messages"`

	// KeepSystemMessages pins system messages so they are never dropped.
	// Default: true
	KeepSystemMessages bool `json:"keep_system_messages" yaml:"keep_system_messages"`

	// GenerateSummary enables the synthesized summary message for summarize and smart.
	// Default: true
	GenerateSummary bool `json:"generate_summary" yaml:"generate_summary"`
}

// DefaultOptions returns Options with default values for the given budget.
func DefaultOptions(targetTokens int) Options {
	return Options{
		Strategy:           StrategySmart,
		TargetTokens:       targetTokens,
		KeepRecentMessages: 10,
		KeepSystemMessages: true,
		GenerateSummary:    true,
	}
}
