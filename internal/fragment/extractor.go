// Package fragment extracts query-relevant excerpts from file text.
package fragment

import (
	"sort"
	"strings"
)

const (
	keywordWeight    = 10
	definitionWeight = 5

	// maxSnapUp is how far above a window start a definition line is searched for.
	maxSnapUp = 10
	// maxExtraLines caps how far a window is extended to close an open block.
	maxExtraLines = 20
)

// Fragment is a contiguous excerpt of a file. Line numbers are 1-based and inclusive.
type Fragment struct {
	Path           string `json:"path"`
	Content        string `json:"content"`
	StartLine      int    `json:"start_line"`
	EndLine        int    `json:"end_line"`
	RelevanceScore int    `json:"relevance_score"`
}

// Options configures extraction.
type Options struct {
	// MaxFragments is the maximum number of fragments returned. Default: 3
	MaxFragments int `json:"max_fragments" yaml:"max_fragments"`

	// MaxLinesPerFragment sizes the window around a matched line. Default: 50
	MaxLinesPerFragment int `json:"max_lines_per_fragment" yaml:"max_lines_per_fragment"`
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		MaxFragments:        3,
		MaxLinesPerFragment: 50,
	}
}

// Extractor selects relevant fragments from file text.
type Extractor struct {
	opts Options
}

// NewExtractor creates an Extractor. Non-positive option values fall back to defaults.
func NewExtractor(opts Options) *Extractor {
	def := DefaultOptions()
	if opts.MaxFragments <= 0 {
		opts.MaxFragments = def.MaxFragments
	}
	if opts.MaxLinesPerFragment <= 0 {
		opts.MaxLinesPerFragment = def.MaxLinesPerFragment
	}
	return &Extractor{opts: opts}
}

// Options returns the effective options.
func (x *Extractor) Options() Options {
	return x.opts
}

type candidate struct {
	line  int
	score int
}

// Extract returns up to MaxFragments non-overlapping fragments of fileText
// ranked by relevance to query. Lines score for each query keyword they
// contain and for looking like a declaration. Each window is widened to the
// nearest preceding declaration and to the end of an open brace block. When
// nothing scores, the head of the file is returned with a zero score.
func (x *Extractor) Extract(fileText, path, query string) []Fragment {
	if fileText == "" {
		return nil
	}
	lines := splitLines(fileText)
	keywords := ExtractKeywords(query)

	var candidates []candidate
	for i, line := range lines {
		if s := scoreLine(line, keywords); s > 0 {
			candidates = append(candidates, candidate{line: i, score: s})
		}
	}

	if len(candidates) == 0 {
		end := min(x.opts.MaxLinesPerFragment, len(lines))
		return []Fragment{newFragment(path, lines, 0, end-1, 0)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	half := x.opts.MaxLinesPerFragment / 2
	claimed := make([]bool, len(lines))
	var fragments []Fragment
	for _, c := range candidates {
		if len(fragments) >= x.opts.MaxFragments {
			break
		}
		start := max(0, c.line-half)
		end := min(len(lines)-1, c.line+half)
		if anyClaimed(claimed, start, end) {
			continue
		}

		start = snapStart(lines, claimed, start)
		end = snapEnd(lines, claimed, start, end)

		for i := start; i <= end; i++ {
			claimed[i] = true
		}
		fragments = append(fragments, newFragment(path, lines, start, end, c.score))
	}
	return fragments
}

// scoreLine rates a single line against the keywords.
func scoreLine(line string, keywords []string) int {
	score := 0
	lower := strings.ToLower(line)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			score += keywordWeight
		}
	}
	if isDefinition(line) {
		score += definitionWeight
	}
	return score
}

// snapStart moves start up to the nearest declaration within maxSnapUp
// lines, never crossing a claimed line.
func snapStart(lines []string, claimed []bool, start int) int {
	for j := start; j >= 0 && j >= start-maxSnapUp; j-- {
		if claimed[j] {
			break
		}
		if isDefinition(lines[j]) {
			return j
		}
	}
	return start
}

// snapEnd extends end until the braces opened since start are closed, by at
// most maxExtraLines lines and never into a claimed line. If the block does
// not close within that range the original end is kept.
func snapEnd(lines []string, claimed []bool, start, end int) int {
	limit := min(len(lines)-1, end+maxExtraLines)
	balance := 0
	for j := start; j <= limit; j++ {
		if j > end && claimed[j] {
			return end
		}
		balance += braceDelta(lines[j])
		if j >= end && balance <= 0 {
			return j
		}
	}
	return end
}

func anyClaimed(claimed []bool, start, end int) bool {
	for i := start; i <= end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func newFragment(path string, lines []string, start, end, score int) Fragment {
	return Fragment{
		Path:           path,
		Content:        strings.Join(lines[start:end+1], "\n"),
		StartLine:      start + 1,
		EndLine:        end + 1,
		RelevanceScore: score,
	}
}

// splitLines splits text into lines, dropping one trailing newline and any
// carriage returns before line breaks.
func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
