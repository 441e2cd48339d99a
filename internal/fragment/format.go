package fragment

import (
	"fmt"
	"strings"
)

// Format renders fragments as a single block suitable for prompt inclusion.
// Each fragment is preceded by a "// path:start-end" header line.
func Format(fragments []Fragment) string {
	if len(fragments) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, f := range fragments {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "// %s:%d-%d\n", f.Path, f.StartLine, f.EndLine)
		sb.WriteString(f.Content)
	}
	return sb.String()
}
