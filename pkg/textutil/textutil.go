// Package textutil holds the small text normalization helpers shared by the
// dialogue engine and the oracle prompt builders.
package textutil

import "unicode"

// TruncationMarker is appended when a turn's text is cut for prompt context.
const TruncationMarker = "..."

// isInvisible covers code points unicode.IsSpace misses but speech-to-text
// output is known to carry: zero-width characters and BOM.
func isInvisible(r rune) bool {
	switch r {
	case 0x200B, // zero width space
		0x200C, // zero width non-joiner
		0x200D, // zero width joiner
		0x2060, // word joiner
		0xFEFF: // byte order mark
		return true
	}
	return false
}

// IsBlank reports whether s contains no visible content after Unicode
// whitespace normalization.
func IsBlank(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) && !isInvisible(r) {
			return false
		}
	}
	return true
}

// TruncateRunes bounds s to max code points, appending TruncationMarker when
// anything was cut. max <= 0 leaves s untouched.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + TruncationMarker
}
