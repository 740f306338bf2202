package cancellation

import (
	"regexp"
	"strings"
)

var (
	liCloseRe  = regexp.MustCompile(`(?i)</li>`)
	liOpenRe   = regexp.MustCompile(`(?i)<li[^>]*>`)
	tagRe      = regexp.MustCompile(`<[^>]+>`)
	blankRe    = regexp.MustCompile(`\n\s*\n`)
	spaceRunRe = regexp.MustCompile(`[ \t]+`)
)

// StripHTML converts vendor cancellation-policy markup to plain text. List
// items become "• " bullets separated by newlines, every other tag is
// removed, and blank lines and space runs collapse.
func StripHTML(text string) string {
	if text == "" {
		return text
	}
	text = liCloseRe.ReplaceAllString(text, "\n")
	text = liOpenRe.ReplaceAllString(text, "• ")
	text = tagRe.ReplaceAllString(text, "")
	text = blankRe.ReplaceAllString(text, "\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
