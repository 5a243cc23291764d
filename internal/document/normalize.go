package document

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeSpaces applies NFC normalization, collapses whitespace runs
// inside each line to a single space and trims every line. Line breaks are
// kept; runs of blank lines collapse to one paragraph break and leading or
// trailing blank lines are dropped.
func NormalizeSpaces(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	b.Grow(len(s))
	pendingBreak := false
	for line := range strings.SplitSeq(s, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			if b.Len() > 0 {
				pendingBreak = true
			}
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
			if pendingBreak {
				b.WriteByte('\n')
			}
		}
		pendingBreak = false
		b.WriteString(strings.Join(fields, " "))
	}
	return b.String()
}
