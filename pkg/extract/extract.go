// Package extract recovers JSON payloads from free-form model output.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	jsonFence = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	anyFence  = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
)

// Structured returns the first JSON object found in raw using, in order:
// the whole text, a ```json fenced block, and the first '{' .. last '}' span.
// When nothing parses the text is wrapped as {"analysis": raw}.
// The result is never nil.
func Structured(raw string) (out map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			out = map[string]any{
				"error":        fmt.Sprintf("failed to parse response: %v", r),
				"raw_response": raw,
			}
		}
	}()

	if m, ok := decodeObject(raw); ok {
		return m
	}
	if match := jsonFence.FindStringSubmatch(raw); match != nil {
		if m, ok := decodeObject(match[1]); ok {
			return m
		}
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		if m, ok := decodeObject(raw[start : end+1]); ok {
			return m
		}
	}
	return map[string]any{"analysis": raw}
}

// List recovers a JSON array from raw: the whole text, a fenced block, then
// the first '[' .. last ']' span. It reports false when no array parses.
func List(raw string) ([]any, bool) {
	candidates := []string{raw}
	if match := jsonFence.FindStringSubmatch(raw); match != nil {
		candidates = append(candidates, match[1])
	} else if match := anyFence.FindStringSubmatch(raw); match != nil {
		candidates = append(candidates, match[1])
	}
	if start, end := strings.Index(raw, "["), strings.LastIndex(raw, "]"); start >= 0 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}
	for _, c := range candidates {
		var list []any
		if err := unmarshal(c, &list); err == nil && list != nil {
			return list, true
		}
	}
	return nil, false
}

func decodeObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := unmarshal(s, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

func unmarshal(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(s)))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after json value")
	}
	return nil
}

// Map returns m[key] as a map, or an empty map.
func Map(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

// String returns m[key] rendered as text, or def when absent.
func String(m map[string]any, key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return def
		}
		return string(b)
	}
}

// Strings returns m[key] as a list of strings, or def when absent or not a list.
func Strings(m map[string]any, key string, def []string) []string {
	list, ok := m[key].([]any)
	if !ok {
		if s, ok := m[key].(string); ok && s != "" {
			return []string{s}
		}
		return def
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case nil:
		default:
			out = append(out, fmt.Sprint(s))
		}
	}
	return out
}

// Bool interprets m[key] as a boolean. Strings "true"/"yes" count as true.
func Bool(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "yes"
	default:
		return false
	}
}
