// File: internal/contract/cleaner.go
package contract

import "strings"

// The cleanup is an ordered pipeline of pure text transforms. Each stage must
// be a no-op on text that is already clean JSON, which makes the whole
// pipeline idempotent; new provider quirks are handled by appending a stage,
// not by touching existing ones.
type cleanStage func(string) string

var cleanPipeline = []cleanStage{
	stripBoxTokens,
	stripFences,
	stripInvisibleRunes,
	extractBalancedObject,
}

// Clean normalizes raw model output down to the JSON object it carries:
// provider wrapper tokens and markdown fences are stripped, invisible runes
// removed, and any surrounding prose discarded in favor of the first balanced
// {...} object. Clean(Clean(s)) == Clean(s) for all inputs.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	for _, stage := range cleanPipeline {
		s = strings.TrimSpace(stage(s))
	}
	return s
}

// boxTokens are wrapper markers some providers emit around structured output.
var boxTokens = []string{"<|begin_of_box|>", "<|end_of_box|>"}

func stripBoxTokens(s string) string {
	for _, tok := range boxTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	return s
}

// stripFences unwraps the first markdown code fence, dropping an optional
// language tag. Text without a fence passes through untouched.
func stripFences(s string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return s
	}
	end := strings.Index(s[start+3:], "```")
	if end == -1 {
		return s
	}
	inner := strings.TrimSpace(s[start+3 : start+3+end])
	inner = strings.TrimPrefix(inner, "json")
	return inner
}

// invisibleRunes are zero-width characters that break JSON decoding while
// being invisible in logs.
var invisibleRunes = map[rune]struct{}{
	'\u200b': {}, // zero width space
	'\u200c': {}, // zero width non-joiner
	'\u200d': {}, // zero width joiner
	'\u2060': {}, // word joiner
	'\ufeff': {}, // byte order mark
}

func stripInvisibleRunes(s string) string {
	return strings.Map(func(r rune) rune {
		if _, ok := invisibleRunes[r]; ok {
			return -1
		}
		return r
	}, s)
}

// extractBalancedObject returns the first balanced {...} object found in s,
// tracking string literals and escapes so braces inside values do not
// terminate the scan. Text already equal to a bare object is returned
// unchanged; text without a balanced object is also returned unchanged, so a
// later parse failure reports the original content.
func extractBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return s
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// Braces inside string values are content, not structure.
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s
}
