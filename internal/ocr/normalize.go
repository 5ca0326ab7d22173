package ocr

import (
	"regexp"
	"strings"
)

var (
	blankRuns   = regexp.MustCompile(`\n{3,}`)
	trailingWS  = regexp.MustCompile(`[ \t]+\n`)
	boxNoise    = regexp.MustCompile(`[|¦]{2,}`)
	formFeedsRE = regexp.MustCompile(`\f+`)
)

// Normalize tidies raw recognizer output: form feeds become paragraph
// breaks, trailing whitespace is removed and blank-line runs collapse.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = formFeedsRE.ReplaceAllString(text, "\n\n")
	text = boxNoise.ReplaceAllString(text, "")
	text = trailingWS.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
