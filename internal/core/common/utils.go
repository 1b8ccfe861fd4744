package common

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractJSONObject returns the outermost JSON object embedded in an LLM
// response, tolerating markdown fences and prose around it.
func ExtractJSONObject(response string) (string, error) {
	start := strings.IndexByte(response, '{')
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response (missing '{')")
	}
	end := strings.LastIndexByte(response, '}')
	if end < start {
		return "", fmt.Errorf("no JSON object found in response (missing '}')")
	}

	jsonStr := response[start : end+1]
	if !gjson.Valid(jsonStr) {
		return "", fmt.Errorf("invalid JSON object in response: %s", Truncate(jsonStr, 200))
	}
	return jsonStr, nil
}

// StringList reads a JSON array of strings, accepting a lone string as a
// one-element list. Missing or null values yield an empty, non-nil slice.
func StringList(r gjson.Result) []string {
	out := []string{}
	switch {
	case r.IsArray():
		for _, v := range r.Array() {
			if s := strings.TrimSpace(v.String()); s != "" {
				out = append(out, s)
			}
		}
	case r.Type == gjson.String:
		if s := strings.TrimSpace(r.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Truncate shortens s to maxLen runes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
