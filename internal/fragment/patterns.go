package fragment

import (
	"regexp"
	"strings"
)

// definitionPatterns recognize declaration lines across common languages.
// The list is heuristic; languages without a matching form are simply not
// snapped to a definition boundary.
var definitionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*(export\s+)?(default\s+)?(async\s+)?function\b`),
	regexp.MustCompile(`^\s*(export\s+)?(default\s+)?(abstract\s+)?class\s+\w`),
	regexp.MustCompile(`^\s*(export\s+)?interface\s+\w`),
	regexp.MustCompile(`^\s*(export\s+)?type\s+\w+`),
	regexp.MustCompile(`^\s*(export\s+)?const\s+\w+\s*(:[^=]+)?=`),
	regexp.MustCompile(`^\s*(public|private|protected)\s+(static\s+)?(async\s+)?([\w<>\[\],]+\s+)*\w+\s*\(`),
	regexp.MustCompile(`^\s*func\s`),
	regexp.MustCompile(`^\s*(async\s+)?def\s+\w+`),
}

// isDefinition reports whether line looks like a declaration.
func isDefinition(line string) bool {
	for _, p := range definitionPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// braceDelta returns opening minus closing braces on line.
func braceDelta(line string) int {
	return strings.Count(line, "{") - strings.Count(line, "}")
}
