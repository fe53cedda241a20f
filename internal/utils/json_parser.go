package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedJSONRe    = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.+?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	controlCharsRe  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON decodes JSON produced by a language model into target.
// It accepts plain JSON, fenced markdown blocks, JSON embedded in prose and
// a few common syntax slips (trailing commas, bare keys, single quotes).
func ParseAIJSON(input string, target interface{}) error {
	input = strings.TrimSpace(strings.TrimPrefix(input, "\ufeff"))
	if input == "" {
		return fmt.Errorf("empty input")
	}

	for _, candidate := range jsonCandidates(input) {
		if candidate == "" {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), target); err == nil {
			return nil
		}
		if err := json.Unmarshal([]byte(repairJSON(candidate)), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to parse JSON from input: %s", truncateString(input, 100))
}

// DecodeObject parses model output that is expected to be a single JSON object
func DecodeObject(input string) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := ParseAIJSON(input, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("JSON value is not an object")
	}
	return out, nil
}

// jsonCandidates lists substrings worth trying, most specific first
func jsonCandidates(input string) []string {
	candidates := []string{input}

	if m := fencedJSONRe.FindStringSubmatch(input); len(m) > 1 {
		inner := strings.TrimSpace(m[1])
		if strings.HasPrefix(inner, "{") || strings.HasPrefix(inner, "[") {
			candidates = append(candidates, inner)
		}
	}

	if start := strings.IndexByte(input, '{'); start >= 0 {
		candidates = append(candidates, extractBalanced(input[start:], '{', '}'))
	}
	if start := strings.IndexByte(input, '['); start >= 0 {
		candidates = append(candidates, extractBalanced(input[start:], '[', ']'))
	}

	return candidates
}

// extractBalanced returns the prefix of input up to the bracket closing the first one
func extractBalanced(input string, open, close rune) string {
	depth := 0
	inString := false
	escaped := false

	for i, ch := range input {
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return input[:i+1]
			}
		}
	}

	return ""
}

// repairJSON fixes the syntax mistakes models make most often
func repairJSON(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = singleToDoubleQuotes(s)
	return controlCharsRe.ReplaceAllString(s, "")
}

// singleToDoubleQuotes rewrites single-quoted JSON strings as double-quoted ones.
// A single quote opens a string only where a JSON value or key may start, so
// apostrophes inside words are left alone.
func singleToDoubleQuotes(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	inDouble, inSingle, escaped := false, false, false
	var prev rune

	for _, ch := range input {
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case inSingle && ch == '\'':
			inSingle = false
			ch = '"'
		case inSingle && ch == '"':
			b.WriteRune('\\')
		case inSingle:
		case ch == '"':
			inDouble = !inDouble
		case ch == '\'' && !inDouble && (prev == 0 || strings.ContainsRune(":,[{", prev)):
			inSingle = true
			ch = '"'
		}
		b.WriteRune(ch)
		if ch != ' ' && ch != '\n' && ch != '\t' {
			prev = ch
		}
	}

	return b.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
