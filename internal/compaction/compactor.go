package compaction

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ctxwin/internal/message"
)

// Result is the outcome of a compression pass.
type Result struct {
	Messages         []message.Message    `json:"messages"`
	Summary          *ConversationSummary `json:"summary,omitempty"`
	Strategy         Strategy             `json:"strategy"`
	RemovedCount     int                  `json:"removed_count"`
	SavedTokens      int                  `json:"saved_tokens"`
	OriginalTokens   int                  `json:"original_tokens"`
	CompressedTokens int                  `json:"compressed_tokens"`
}

// Ratio returns compressed tokens over original tokens, or 1 for an empty input.
func (r Result) Ratio() float64 {
	if r.OriginalTokens == 0 {
		return 1
	}
	return float64(r.CompressedTokens) / float64(r.OriginalTokens)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for per-pass debug output.
func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the time source for summaries and synthesized messages.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
			e.summarizer.now = now
		}
	}
}

// Engine reduces message lists using one of the compression strategies.
// It holds no state between passes.
type Engine struct {
	estimator  *TokenEstimator
	scorer     *Scorer
	summarizer *SummaryGenerator
	logger     zerolog.Logger
	now        func() time.Time
}

// NewEngine creates an Engine whose scorer and summarizer share estimator.
func NewEngine(estimator *TokenEstimator, opts ...EngineOption) *Engine {
	if estimator == nil {
		estimator = NewTokenEstimator(DefaultTokensPerChar)
	}
	e := &Engine{
		estimator:  estimator,
		scorer:     NewScorer(estimator),
		summarizer: NewSummaryGenerator(estimator),
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimator returns the engine's token estimator.
func (e *Engine) Estimator() *TokenEstimator { return e.estimator }

// Scorer returns the engine's importance scorer.
func (e *Engine) Scorer() *Scorer { return e.scorer }

// Summarizer returns the engine's summary generator.
func (e *Engine) Summarizer() *SummaryGenerator { return e.summarizer }

// entry is a message tagged with its position in the input and its cost.
type entry struct {
	msg    message.Message
	pos    int
	tokens int
	pinned bool
}

// partition splits entries into pinned system messages, the recent tail of
// the conversation and the older remainder.
type partition struct {
	pinned []entry
	recent []entry
	old    []entry
}

// Compress reduces messages according to opts.Strategy. An unrecognized
// strategy is treated as smart.
func (e *Engine) Compress(messages []message.Message, opts Options) Result {
	strategy := opts.Strategy
	if !strategy.Valid() {
		if strategy != "" {
			e.logger.Warn().Str("strategy", string(strategy)).Msg("compaction: unknown strategy, using smart")
		}
		strategy = StrategySmart
	}

	entries := e.entries(messages, opts.KeepSystemMessages)
	original := sumTokens(entries)

	var (
		kept    []entry
		summary *ConversationSummary
	)
	switch strategy {
	case StrategyRemoveOld:
		kept = e.removeOld(e.split(entries, opts.KeepRecentMessages), opts.TargetTokens)
	case StrategyTruncate:
		kept = e.truncate(entries, opts.TargetTokens)
	case StrategySummarize:
		kept, summary = e.summarize(e.split(entries, opts.KeepRecentMessages), opts.GenerateSummary)
	default:
		kept, summary = e.smart(e.split(entries, opts.KeepRecentMessages), len(messages), opts)
	}

	out := e.assemble(kept, summary)
	compressed := e.estimator.EstimateMessages(out)

	removed := len(messages) - len(out)
	if strategy == StrategySmart && summary != nil {
		removed++
	}

	result := Result{
		Messages:         out,
		Summary:          summary,
		Strategy:         strategy,
		RemovedCount:     removed,
		SavedTokens:      original - compressed,
		OriginalTokens:   original,
		CompressedTokens: compressed,
	}

	e.logger.Debug().
		Str("strategy", string(strategy)).
		Int("original_messages", len(messages)).
		Int("kept_messages", len(out)).
		Int("original_tokens", original).
		Int("compressed_tokens", compressed).
		Bool("summarized", summary != nil).
		Msg("compaction: pass completed")

	return result
}

func (e *Engine) entries(messages []message.Message, keepSystem bool) []entry {
	entries := make([]entry, len(messages))
	for i, msg := range messages {
		entries[i] = entry{
			msg:    msg,
			pos:    i,
			tokens: e.estimator.EstimateMessage(msg),
			pinned: keepSystem && msg.IsSystem(),
		}
	}
	return entries
}

// split separates pinned entries and divides the rest into old and recent.
func (e *Engine) split(entries []entry, keepRecent int) partition {
	var p partition
	var conv []entry
	for _, en := range entries {
		if en.pinned {
			p.pinned = append(p.pinned, en)
		} else {
			conv = append(conv, en)
		}
	}

	if keepRecent < 0 {
		keepRecent = 0
	}
	if keepRecent > len(conv) {
		keepRecent = len(conv)
	}
	p.old = conv[:len(conv)-keepRecent]
	p.recent = conv[len(conv)-keepRecent:]
	return p
}

// removeOld keeps pinned entries and the newest contiguous run of recent
// entries that fits the budget. Old entries are dropped without a summary.
func (e *Engine) removeOld(p partition, target int) []entry {
	running := sumTokens(p.pinned)
	kept := append([]entry(nil), p.pinned...)
	for i := len(p.recent) - 1; i >= 0; i-- {
		en := p.recent[i]
		if running+en.tokens > target {
			break
		}
		running += en.tokens
		kept = append(kept, en)
	}
	return kept
}

// truncate walks from newest to oldest keeping what fits. Pinned entries are
// always kept; once a conversational entry overflows the budget no further
// conversational entries are admitted.
func (e *Engine) truncate(entries []entry, target int) []entry {
	var kept []entry
	running := 0
	exhausted := false
	for i := len(entries) - 1; i >= 0; i-- {
		en := entries[i]
		if en.pinned {
			running += en.tokens
			kept = append(kept, en)
			continue
		}
		if exhausted {
			continue
		}
		if running+en.tokens > target {
			exhausted = true
			continue
		}
		running += en.tokens
		kept = append(kept, en)
	}
	return kept
}

// summarize keeps pinned and recent entries and summarizes all old entries.
func (e *Engine) summarize(p partition, generate bool) ([]entry, *ConversationSummary) {
	kept := make([]entry, 0, len(p.pinned)+len(p.recent))
	kept = append(kept, p.pinned...)
	kept = append(kept, p.recent...)

	if len(p.old) == 0 || !generate {
		return kept, nil
	}
	s := e.summarizer.Summarize(messagesOf(p.old))
	return kept, &s
}

// smart keeps pinned and recent entries, admits the highest scoring
// critical or high old entries that fit the remaining budget, and summarizes
// the old entries that were not admitted.
func (e *Engine) smart(p partition, total int, opts Options) ([]entry, *ConversationSummary) {
	kept := make([]entry, 0, len(p.pinned)+len(p.recent)+len(p.old))
	kept = append(kept, p.pinned...)
	kept = append(kept, p.recent...)

	if len(p.old) == 0 {
		return kept, nil
	}

	type candidate struct {
		entry
		score int
	}
	var candidates []candidate
	for _, en := range p.old {
		scored := e.scorer.Score(en.msg, en.pos, total)
		if scored.Importance.Retained() {
			candidates = append(candidates, candidate{entry: en, score: scored.Score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	available := opts.TargetTokens - sumTokens(p.pinned) - sumTokens(p.recent)
	admitted := make(map[int]bool, len(candidates))
	used := 0
	for _, c := range candidates {
		if used+c.tokens > available {
			continue
		}
		used += c.tokens
		admitted[c.pos] = true
		kept = append(kept, c.entry)
	}

	var rest []entry
	for _, en := range p.old {
		if !admitted[en.pos] {
			rest = append(rest, en)
		}
	}
	if len(rest) == 0 || !opts.GenerateSummary {
		return kept, nil
	}
	s := e.summarizer.Summarize(messagesOf(rest))
	return kept, &s
}

// assemble restores the original relative order of kept entries and places
// the summary message, if any, before the first conversational entry.
func (e *Engine) assemble(kept []entry, summary *ConversationSummary) []message.Message {
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].pos < kept[j].pos
	})

	size := len(kept)
	if summary != nil {
		size++
	}
	out := make([]message.Message, 0, size)
	inserted := summary == nil
	for _, en := range kept {
		if !inserted && !en.pinned {
			out = append(out, e.summaryMessage(*summary))
			inserted = true
		}
		out = append(out, en.msg)
	}
	if !inserted {
		out = append(out, e.summaryMessage(*summary))
	}
	return out
}

func (e *Engine) summaryMessage(s ConversationSummary) message.Message {
	return message.Message{
		ID:        "summary-" + uuid.NewString(),
		Role:      message.RoleSystem,
		Text:      SummaryHeader + "\n" + s.Content,
		Timestamp: e.now(),
	}
}

func sumTokens(entries []entry) int {
	total := 0
	for _, en := range entries {
		total += en.tokens
	}
	return total
}

func messagesOf(entries []entry) []message.Message {
	msgs := make([]message.Message, len(entries))
	for i, en := range entries {
		msgs[i] = en.msg
	}
	return msgs
}
