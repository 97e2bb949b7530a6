package generation

import (
	"regexp"
	"strings"
)

var (
	markupChars   = regexp.MustCompile("[*_`<>]")
	extraNewlines = regexp.MustCompile(`\n{3,}`)
	numberedLine  = regexp.MustCompile(`^\d+[).]\s*(.+)$`)
)

// CleanText strips markdown/HTML control characters that break plain
// Telegram messages and collapses runs of blank lines.
func CleanText(text string) string {
	text = markupChars.ReplaceAllString(text, "")
	text = extraNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ParseNumbered extracts the items of a "1) item" list, in order.
func ParseNumbered(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if item := CleanText(m[1]); item != "" {
			items = append(items, item)
		}
	}
	return items
}
