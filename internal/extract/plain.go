package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlainPages returns content split on form feeds, one entry per page.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlainPages(content []byte) []string {
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return strings.Split(text, "\f")
}
