package memory

import (
	"regexp"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Sanitize strips model reasoning blocks and surrounding whitespace.
func Sanitize(text string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(text, ""))
}
