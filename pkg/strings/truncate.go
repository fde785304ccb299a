// Package strings holds text helpers shared by the console renderers.
package strings

import (
	"strings"
)

// ReasonMaxLen is the width of failure reasons in result tables.
const ReasonMaxLen = 60

// BodyMaxLen is the width of response bodies in outcome tables.
const BodyMaxLen = 100

// minTruncateLen leaves room for one rune plus "...".
const minTruncateLen = 4

// Truncate collapses s onto one line and cuts it to maxLen runes, marking
// the cut with "...". A maxLen below 4 is treated as 4.
func Truncate(s string, maxLen int) string {
	if maxLen < minTruncateLen {
		maxLen = minTruncateLen
	}
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
