package extractor

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun  = regexp.MustCompile(`[\s\v\p{Z}\x{85}\x{1c}-\x{1f}]+`)
	disallowedRune = regexp.MustCompile(`[^\p{L}\p{N}_\s\v\p{Z}\x{85}\x{1c}-\x{1f}.,;:!?()\-]`)
	ellipsisRun    = regexp.MustCompile(`\.{3,}`)
)

// Normalize cleans extracted text. The steps run in a fixed order so the
// same input always produces the same output.
func Normalize(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = disallowedRune.ReplaceAllString(text, "")
	text = ellipsisRun.ReplaceAllString(text, "...")
	return strings.TrimSpace(text)
}
