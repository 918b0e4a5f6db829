package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes extracted page text: line endings become "\n", runs of
// horizontal whitespace collapse to one space, and blank-line runs collapse to one
// blank line so paragraph breaks survive for the splitter.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = collapseSpaces(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func collapseSpaces(line string) string {
	var b strings.Builder
	wasSpace := false
	for _, r := range strings.TrimSpace(line) {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
