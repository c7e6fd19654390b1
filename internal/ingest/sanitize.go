package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// truncationMark is appended when SanitizeForLog shortens a string.
const truncationMark = "...[truncated]"

// SanitizeForLog makes an untrusted string safe to embed in a log line.
//
// Three transformations, in order:
//
//  1. NFC normalization, so visually identical strings log identically and
//     cannot smuggle combining-character noise past log review.
//  2. Control characters (including CR/LF - the log forging vector) are
//     replaced with U+FFFD. Tabs too: column alignment in logs is a
//     formatting concern, not the input's.
//  3. Truncation to max runes with a marker. max <= 0 means no length cap.
//
// Invalid UTF-8 bytes are replaced rather than passed through.
func SanitizeForLog(s string, max int) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	s = norm.NFC.String(s)

	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return utf8.RuneError
		}
		return r
	}, s)

	if max > 0 && utf8.RuneCountInString(s) > max {
		runes := []rune(s)
		s = string(runes[:max]) + truncationMark
	}
	return s
}
