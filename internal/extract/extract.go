// Package extract recovers a JSON object from free-form model output.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	fencedBlock   = regexp.MustCompile("(?is)```(?:json)?(.*?)```")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// Object returns the first JSON object it can recover from text, trying in
// order: the whole text, fenced code blocks, the outermost {...} span,
// balanced-brace candidates, the outermost span with trailing commas
// removed, and finally a structural repair of that span.
//
// Object never fails. When nothing parses it returns an empty map and the
// caller is expected to apply its own defaults.
func Object(text string) map[string]any {
	if strings.TrimSpace(text) == "" {
		return map[string]any{}
	}

	if m, ok := parse(text); ok {
		return m
	}

	for _, match := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if m, ok := parse(strings.TrimSpace(match[1])); ok {
			return m
		}
	}

	span, hasSpan := outerSpan(text)
	if hasSpan {
		if m, ok := parse(span); ok {
			return m
		}
	}

	for _, candidate := range balanced(text) {
		if m, ok := parse(candidate); ok {
			return m
		}
	}

	if cleaned, ok := outerSpan(trailingComma.ReplaceAllString(text, "$1")); ok {
		if m, ok := parse(cleaned); ok {
			return m
		}
	}

	if hasSpan {
		if fixed, err := jsonrepair.JSONRepair(span); err == nil {
			if m, ok := parse(fixed); ok {
				return m
			}
		}
	}

	return map[string]any{}
}

func parse(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// outerSpan returns the substring from the first '{' to the last '}'.
func outerSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// balanced returns the non-overlapping brace-balanced substrings of s, left
// to right. Objects nested inside a candidate are not candidates themselves.
// Braces inside JSON string literals are ignored.
func balanced(s string) []string {
	var out []string
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		if end := matchBrace(s, i); end > 0 {
			out = append(out, s[i:end+1])
			i = end
		}
	}
	return out
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// String reads a non-empty string field, falling back to def.
func String(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

// List reads an array field. ok is false when the key is missing or the
// value is not an array.
func List(m map[string]any, key string) ([]any, bool) {
	v, ok := m[key].([]any)
	return v, ok
}

// Strings reads an array field keeping only string elements.
func Strings(m map[string]any, key string) []string {
	items, _ := List(m, key)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
