package ocr

import (
	"regexp"
	"strings"
)

var (
	reLineBreaks = regexp.MustCompile(`[\r\n]+`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
)

// NormalizeField collapses a raw OCR field value to a single trimmed line.
// Conservative: only whitespace is touched, the extracted text itself is
// kept verbatim.
func NormalizeField(s string) string {
	if s == "" {
		return s
	}
	s = reLineBreaks.ReplaceAllString(s, " ")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
