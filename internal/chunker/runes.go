package chunker

import (
	"unicode"
	"unicode/utf8"
)

// Sizes are counted in runes; offsets stay byte offsets into the source.

// advance returns the byte offset n runes past start, or len(text).
func advance(text string, start, n int) int {
	i := start
	for ; n > 0 && i < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return i
}

func runeLen(text string, start, end int) int {
	return utf8.RuneCountInString(text[start:end])
}

// cutAfter returns the offset limit runes past start. It is never equal to
// start while start < len(text), so callers always make progress.
func cutAfter(text string, start, limit int) int {
	return advance(text, start, max(limit, 1))
}

// wordCut is cutAfter but prefers to end just after the last whitespace in
// the second half of the window.
func wordCut(text string, start, limit int) int {
	cut := cutAfter(text, start, limit)
	if cut == len(text) {
		return cut
	}
	half := advance(text, start, limit/2)
	for i := cut; i > half; {
		r, size := utf8.DecodeLastRuneInString(text[start:i])
		if unicode.IsSpace(r) {
			return i
		}
		i -= size
	}
	return cut
}

// head returns the first n runes of s.
func head(s string, n int) string {
	return s[:advance(s, 0, n)]
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	i := len(s)
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}
