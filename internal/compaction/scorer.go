package compaction

import (
	"ctxwin/internal/message"
)

// Importance is the discrete tier derived from a message score.
type Importance string

// Importance tiers.
const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
	ImportanceLow      Importance = "low"
)

// Scoring weights.
const (
	baseScore          = 50
	systemRoleWeight   = 40
	userRoleWeight     = 20
	assistantWeight    = 10
	maxRecencyWeight   = 20
	toolContentWeight  = 15
	criticalScoreFloor = 80
	highScoreFloor     = 60
	mediumScoreFloor   = 40
)

// ScoredMessage is a message annotated by a scoring pass.
type ScoredMessage struct {
	Message         message.Message `json:"message"`
	Score           int             `json:"score"`
	Importance      Importance      `json:"importance"`
	EstimatedTokens int             `json:"estimated_tokens"`
}

// Scorer assigns importance scores to messages.
type Scorer struct {
	estimator *TokenEstimator
}

// NewScorer creates a Scorer that uses estimator for token annotations.
func NewScorer(estimator *TokenEstimator) *Scorer {
	if estimator == nil {
		estimator = NewTokenEstimator(DefaultTokensPerChar)
	}
	return &Scorer{estimator: estimator}
}

// Score rates msg at position index of a list of totalCount messages.
// Later positions score higher; wall-clock timestamps are not consulted.
func (s *Scorer) Score(msg message.Message, index, totalCount int) ScoredMessage {
	score := baseScore

	switch msg.Role {
	case message.RoleSystem:
		score += systemRoleWeight
	case message.RoleUser:
		score += userRoleWeight
	case message.RoleAssistant:
		score += assistantWeight
	}

	if totalCount > 0 && index > 0 {
		score += index * maxRecencyWeight / totalCount
	}

	if msg.HasToolContent() {
		score += toolContentWeight
	}

	score = clamp(score, 0, 100)
	return ScoredMessage{
		Message:         msg,
		Score:           score,
		Importance:      TierFor(score),
		EstimatedTokens: s.estimator.EstimateMessage(msg),
	}
}

// ScoreAll scores every message with its position in messages, preserving order.
func (s *Scorer) ScoreAll(messages []message.Message) []ScoredMessage {
	scored := make([]ScoredMessage, len(messages))
	for i, msg := range messages {
		scored[i] = s.Score(msg, i, len(messages))
	}
	return scored
}

// TierFor maps a score to its importance tier.
func TierFor(score int) Importance {
	switch {
	case score >= criticalScoreFloor:
		return ImportanceCritical
	case score >= highScoreFloor:
		return ImportanceHigh
	case score >= mediumScoreFloor:
		return ImportanceMedium
	default:
		return ImportanceLow
	}
}

// Retained reports whether the tier is eligible for keeping by the smart strategy.
func (i Importance) Retained() bool {
	return i == ImportanceCritical || i == ImportanceHigh
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
