// Package context manages the token budget of a conversation: it measures
// how full the context window is, decides when to compress, and exposes the
// compression, summarization, scoring and fragment extraction primitives
// through a single Manager.
package context

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"ctxwin/internal/compaction"
	"ctxwin/internal/fragment"
	"ctxwin/internal/message"
)

// Config holds configuration for the Context Manager.
type Config struct {
	// MaxTokens is the size of the model context window.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// ToolOutputReserveRatio is the share of MaxTokens held back for tool output.
	ToolOutputReserveRatio float64 `json:"tool_output_reserve_ratio" yaml:"tool_output_reserve_ratio"`

	// CompressionThreshold is the usage fraction at which compression is needed.
	CompressionThreshold float64 `json:"compression_threshold" yaml:"compression_threshold"`

	DefaultCompressionStrategy compaction.Strategy `json:"default_compression_strategy" yaml:"default_compression_strategy"`
	KeepRecentMessages         int                 `json:"keep_recent_messages" yaml:"keep_recent_messages"`
	TokensPerChar              float64             `json:"tokens_per_char" yaml:"tokens_per_char"`

	// TargetCompressionRatio sizes the default compression target as a share of MaxTokens.
	TargetCompressionRatio float64 `json:"target_compression_ratio" yaml:"target_compression_ratio"`

	Fragments fragment.Options `json:"fragments" yaml:"fragments"`
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		MaxTokens:                  200000,
		ToolOutputReserveRatio:     0.2,
		CompressionThreshold:       0.8,
		DefaultCompressionStrategy: compaction.StrategySmart,
		KeepRecentMessages:         10,
		TokensPerChar:              compaction.DefaultTokensPerChar,
		TargetCompressionRatio:     0.5,
		Fragments:                  fragment.DefaultOptions(),
	}
}

// TokenCount breaks down the token usage of a prospective request.
type TokenCount struct {
	Total             int `json:"total"`
	SystemPrompt      int `json:"system_prompt"`
	Messages          int `json:"messages"`
	ToolOutputReserve int `json:"tool_output_reserve"`
	Available         int `json:"available"`
}

// ContextWindowState describes how full the context window is.
type ContextWindowState struct {
	MaxTokens         int     `json:"max_tokens"`
	UsedTokens        int     `json:"used_tokens"`
	UsagePercent      float64 `json:"usage_percent"`
	NearLimit         bool    `json:"near_limit"`
	NeedsCompression  bool    `json:"needs_compression"`
	ToolOutputReserve int     `json:"tool_output_reserve"`
}

// AutoManageResult is returned by AutoManageContext. Result is nil when no
// compression took place.
type AutoManageResult struct {
	Messages   []message.Message  `json:"messages"`
	Compressed bool               `json:"compressed"`
	Result     *compaction.Result `json:"result,omitempty"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for the manager and its engine.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithClock sets the time source used for summaries.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager is the entry point for context window management. It owns the
// history of summaries produced by its compression passes.
//
// A Manager is not safe for concurrent use; use one per conversation.
type Manager struct {
	config    Config
	estimator *compaction.TokenEstimator
	engine    *compaction.Engine
	extractor *fragment.Extractor
	logger    zerolog.Logger
	now       func() time.Time

	summaries []compaction.ConversationSummary
}

// NewManager creates a new Context Manager.
func NewManager(config Config, opts ...Option) *Manager {
	if !config.DefaultCompressionStrategy.Valid() {
		config.DefaultCompressionStrategy = compaction.StrategySmart
	}

	m := &Manager{
		config: config,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.estimator = compaction.NewTokenEstimator(config.TokensPerChar)
	engineOpts := []compaction.EngineOption{compaction.WithLogger(m.logger)}
	if m.now != nil {
		engineOpts = append(engineOpts, compaction.WithClock(m.now))
	}
	m.engine = compaction.NewEngine(m.estimator, engineOpts...)
	m.extractor = fragment.NewExtractor(config.Fragments)
	return m
}

// Config returns the manager configuration.
func (m *Manager) Config() Config {
	return m.config
}

// Estimator returns the token estimator shared by all components.
func (m *Manager) Estimator() *compaction.TokenEstimator {
	return m.estimator
}

// toolOutputReserve is the fixed share of the window held back for tool output.
func (m *Manager) toolOutputReserve() int {
	return int(math.Floor(float64(m.config.MaxTokens) * m.config.ToolOutputReserveRatio))
}

// CountTokens estimates the tokens used by messages plus an optional system prompt.
func (m *Manager) CountTokens(messages []message.Message, systemPrompt string) TokenCount {
	sys := m.estimator.Estimate(systemPrompt)
	msgs := m.estimator.EstimateMessages(messages)
	reserve := m.toolOutputReserve()
	total := sys + msgs

	return TokenCount{
		Total:             total,
		SystemPrompt:      sys,
		Messages:          msgs,
		ToolOutputReserve: reserve,
		Available:         max(0, m.config.MaxTokens-total-reserve),
	}
}

// GetContextWindowState reports how full the window is for messages and systemPrompt.
func (m *Manager) GetContextWindowState(messages []message.Message, systemPrompt string) ContextWindowState {
	count := m.CountTokens(messages, systemPrompt)

	var usage float64
	switch {
	case m.config.MaxTokens > 0:
		usage = float64(count.Total) / float64(m.config.MaxTokens) * 100
	case count.Total > 0:
		usage = 100
	}
	needs := usage >= m.config.CompressionThreshold*100

	return ContextWindowState{
		MaxTokens:         m.config.MaxTokens,
		UsedTokens:        count.Total,
		UsagePercent:      usage,
		NearLimit:         needs,
		NeedsCompression:  needs,
		ToolOutputReserve: count.ToolOutputReserve,
	}
}

// NeedsCompression reports whether usage has reached the compression threshold.
func (m *Manager) NeedsCompression(messages []message.Message, systemPrompt string) bool {
	return m.GetContextWindowState(messages, systemPrompt).NeedsCompression
}

// DefaultOptions returns compression options derived from the configuration.
func (m *Manager) DefaultOptions() compaction.Options {
	target := int(math.Floor(float64(m.config.MaxTokens) * m.config.TargetCompressionRatio))
	opts := compaction.DefaultOptions(target)
	opts.Strategy = m.config.DefaultCompressionStrategy
	opts.KeepRecentMessages = m.config.KeepRecentMessages
	return opts
}

// CompressMessages runs one compression pass. A produced summary is added to
// the manager's summary history.
func (m *Manager) CompressMessages(messages []message.Message, opts compaction.Options) compaction.Result {
	result := m.engine.Compress(messages, opts)
	if result.Summary != nil {
		m.summaries = append(m.summaries, *result.Summary)
	}
	return result
}

// AutoManageContext compresses messages with the default strategy when the
// window has reached the compression threshold, and returns them unchanged
// otherwise. The system prompt's tokens are subtracted from the target.
func (m *Manager) AutoManageContext(messages []message.Message, systemPrompt string) AutoManageResult {
	state := m.GetContextWindowState(messages, systemPrompt)
	if !state.NeedsCompression {
		return AutoManageResult{Messages: messages}
	}

	opts := m.DefaultOptions()
	opts.TargetTokens = max(0, opts.TargetTokens-m.estimator.Estimate(systemPrompt))

	result := m.CompressMessages(messages, opts)

	m.logger.Info().
		Str("strategy", string(result.Strategy)).
		Float64("usage_percent", state.UsagePercent).
		Int("original_tokens", result.OriginalTokens).
		Int("compressed_tokens", result.CompressedTokens).
		Int("removed", result.RemovedCount).
		Msg("context compressed")

	return AutoManageResult{
		Messages:   result.Messages,
		Compressed: true,
		Result:     &result,
	}
}

// GenerateSummary summarizes messages without recording the summary.
func (m *Manager) GenerateSummary(messages []message.Message) compaction.ConversationSummary {
	return m.engine.Summarizer().Summarize(messages)
}

// ExtractFragments returns the fragments of fileText most relevant to query
// using the configured fragment options.
func (m *Manager) ExtractFragments(fileText, path, query string) []fragment.Fragment {
	return m.extractor.Extract(fileText, path, query)
}

// ExtractFragmentsWith is ExtractFragments with explicit options. Zero fields
// fall back to the configured values.
func (m *Manager) ExtractFragmentsWith(fileText, path, query string, opts fragment.Options) []fragment.Fragment {
	if opts.MaxFragments <= 0 {
		opts.MaxFragments = m.config.Fragments.MaxFragments
	}
	if opts.MaxLinesPerFragment <= 0 {
		opts.MaxLinesPerFragment = m.config.Fragments.MaxLinesPerFragment
	}
	return fragment.NewExtractor(opts).Extract(fileText, path, query)
}

// ScoreMessage scores msg at position index in a conversation of total messages.
func (m *Manager) ScoreMessage(msg message.Message, index, total int) compaction.ScoredMessage {
	return m.engine.Scorer().Score(msg, index, total)
}

// ScoreMessages scores every message by its position in messages.
func (m *Manager) ScoreMessages(messages []message.Message) []compaction.ScoredMessage {
	return m.engine.Scorer().ScoreAll(messages)
}

// Summaries returns a copy of the summaries recorded by compression passes.
func (m *Manager) Summaries() []compaction.ConversationSummary {
	out := make([]compaction.ConversationSummary, len(m.summaries))
	copy(out, m.summaries)
	return out
}

// ClearSummaries discards the recorded summaries.
func (m *Manager) ClearSummaries() {
	m.summaries = nil
}
