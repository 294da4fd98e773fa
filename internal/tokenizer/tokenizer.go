// Package tokenizer splits raw document and query text into words and
// validates them at the byte level. Bytes outside ASCII are accepted as-is,
// so multi-byte (UTF-8) text indexes without any language-specific handling.
package tokenizer

// Word delimiters, matching the whitespace classes the engine splits on.
const delimiters = " \r\n\t\v"

// QueryWord is a single parsed query token. A leading '-' marks the word as
// an exclusion and is stripped before validation.
type QueryWord struct {
	Word    string
	IsMinus bool
}

// SplitIntoWords breaks text into delimiter-separated tokens. It performs no
// validation; callers decide whether an invalid token fails the whole
// operation.
func SplitIntoWords(text string) []string {
	words := make([]string, 0)
	i := 0
	for i < len(text) {
		for i < len(text) && isDelimiter(text[i]) {
			i++
		}
		start := i
		for i < len(text) && !isDelimiter(text[i]) {
			i++
		}
		if i > start {
			words = append(words, text[start:i])
		}
	}
	return words
}

// IsValidWord reports whether word is well-formed: non-empty, free of
// control bytes, first byte alphabetic and the rest printable non-space.
// Bytes with the high bit set always pass, which lets multi-byte encoded
// words through untouched.
func IsValidWord(word string) bool {
	if len(word) == 0 {
		return false
	}
	for i := 0; i < len(word); i++ {
		if !isValidByte(word[i], i == 0) {
			return false
		}
	}
	return true
}

// ParseQueryWord classifies a query token, stripping a single leading minus.
// A bare "-" and a double-minus token are both malformed: after stripping,
// the remainder must still be a valid word.
func ParseQueryWord(text string) (QueryWord, bool) {
	if len(text) == 0 {
		return QueryWord{}, false
	}
	isMinus := false
	if text[0] == '-' {
		isMinus = true
		text = text[1:]
	}
	if !IsValidWord(text) {
		return QueryWord{}, false
	}
	return QueryWord{Word: text, IsMinus: isMinus}, true
}

func isDelimiter(b byte) bool {
	for i := 0; i < len(delimiters); i++ {
		if delimiters[i] == b {
			return true
		}
	}
	return false
}

func isValidByte(b byte, first bool) bool {
	if b >= 0x80 {
		return true
	}
	if b < 0x20 || b == 0x7f {
		return false
	}
	if first {
		return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
	}
	return b > 0x20 && b < 0x7f
}
