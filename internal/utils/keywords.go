package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ContainsKeyword reports whether keyword occurs in text starting at a word
// boundary. Keywords of three letters or fewer must also end at a boundary, so
// "set" matches "gaming set" but not "headset" or "settings". Longer keywords
// act as stems: "klawiatur" matches "klawiatura" and "klawiatury".
// Both arguments are compared case-insensitively.
func ContainsKeyword(text, keyword string) bool {
	text = strings.ToLower(text)
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return false
	}

	wholeWord := utf8.RuneCountInString(keyword) <= 3
	offset := 0
	for {
		idx := strings.Index(text[offset:], keyword)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(keyword)

		if boundaryBefore(text, start) && (!wholeWord || boundaryAfter(text, end)) {
			return true
		}
		offset = start + 1
		if offset >= len(text) {
			return false
		}
	}
}

// MatchAny returns the first keyword found in text
func MatchAny(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if ContainsKeyword(text, kw) {
			return kw, true
		}
	}
	return "", false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Tokens splits a free-text hint into distinct lowercase words of at least
// minLen runes. The original casing of the first occurrence is kept.
func Tokens(s string, minLen int) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !isWordRune(r) && r != '-' && r != '.'
	})

	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-.")
		if utf8.RuneCountInString(f) < minLen {
			continue
		}
		key := strings.ToLower(f)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}
