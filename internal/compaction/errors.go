// Package compaction reduces conversation history to fit a token budget.
package compaction

import "errors"

// Compaction errors.
var (
	// ErrUnknownStrategy indicates that a strategy name is not recognized.
	ErrUnknownStrategy = errors.New("compaction: unknown strategy")
)
