package firewall

import "unicode"

// Truncate shortens content to at most maxLength code points using the
// firewall's boundary ratio and ellipsis.
func (f *Firewall) Truncate(content string, maxLength int) string {
	return truncateAtBoundary(content, maxLength, f.opts.BoundaryRatio, f.opts.Ellipsis)
}

// truncateAtBoundary prefers, in order: the rightmost sentence terminator,
// the rightmost space (plus ellipsis), a hard cut (plus ellipsis). A
// boundary only counts when it sits at or beyond ratio*maxLength.
// The ellipsis is counted against maxLength so the output never exceeds it
// and a second pass is a no-op.
func truncateAtBoundary(content string, maxLength int, ratio float64, ellipsis string) string {
	if maxLength <= 0 {
		return ""
	}
	runes := []rune(content)
	if len(runes) <= maxLength {
		return content
	}
	minBoundary := ratio * float64(maxLength)

	window := runes[:maxLength]
	for i := len(window) - 1; i >= 0; i-- {
		if isSentenceEnd(window[i]) {
			if float64(i) >= minBoundary {
				return string(window[:i+1])
			}
			break
		}
	}

	marker := []rune(ellipsis)
	room := maxLength - len(marker)
	if room <= 0 {
		return string(window)
	}
	for i := room - 1; i >= 0; i-- {
		if unicode.IsSpace(window[i]) {
			if float64(i) >= minBoundary {
				return string(window[:i]) + ellipsis
			}
			break
		}
	}
	return string(window[:room]) + ellipsis
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}
