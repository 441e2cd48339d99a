package fragment

import (
	"regexp"
	"strings"
)

// keywordPattern splits a lowercased query into contiguous CJK runs and
// ASCII alphanumeric runs; underscores and other punctuation separate tokens.
var keywordPattern = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+|[a-z0-9]+`)

// stopWords are dropped from queries before matching.
var stopWords = map[string]struct{}{
	// English
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "were": {}, "been": {},
	"with": {}, "from": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"its": {}, "how": {}, "what": {}, "where": {}, "when": {}, "why": {},
	"which": {}, "who": {}, "does": {}, "did": {}, "can": {}, "could": {},
	"should": {}, "would": {}, "will": {}, "into": {}, "about": {}, "all": {},
	"any": {}, "not": {}, "has": {}, "have": {}, "had": {}, "there": {},
	"their": {}, "then": {}, "than": {}, "some": {}, "you": {}, "your": {},
	"please": {}, "show": {}, "find": {}, "let": {},
	// Chinese
	"的": {}, "了": {}, "是": {}, "在": {}, "和": {}, "与": {}, "或": {},
	"这": {}, "那": {}, "有": {}, "我": {}, "你": {}, "他": {}, "它": {},
	"吗": {}, "呢": {}, "吧": {}, "请": {}, "如何": {}, "怎么": {},
	"什么": {}, "哪里": {}, "哪些": {}, "为什么": {}, "一个": {}, "这个": {},
	"那个": {}, "代码": {}, "文件": {},
}

// ExtractKeywords returns the distinct lowercase search terms of query in
// order of first appearance. CJK runs are kept at any length; ASCII tokens
// must be purely alphabetic and longer than two characters.
func ExtractKeywords(query string) []string {
	matches := keywordPattern.FindAllString(strings.ToLower(query), -1)

	seen := make(map[string]bool, len(matches))
	var keywords []string
	for _, m := range matches {
		if _, stop := stopWords[m]; stop {
			continue
		}
		if m[0] < 0x80 && (len(m) <= 2 || !isAlpha(m)) {
			continue
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		keywords = append(keywords, m)
	}
	return keywords
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
