package message

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// applyTemplate parses a JSON object template (plain or base64) and fills
// its string values. Unknown placeholders render as empty strings.
func applyTemplate(template string, vars map[string]string) (map[string]any, error) {
	raw := strings.TrimSpace(template)

	var tree any
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		decoded, decodeErr := base64.StdEncoding.DecodeString(raw)
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		if err := json.Unmarshal(decoded, &tree); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
	}

	obj, ok := fill(tree, vars).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: template must be a JSON object", ErrInvalidTemplate)
	}
	return obj, nil
}

func fill(node any, vars map[string]string) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = fill(child, vars)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = fill(child, vars)
		}
		return out
	case string:
		return placeholderPattern.ReplaceAllStringFunc(v, func(match string) string {
			name := placeholderPattern.FindStringSubmatch(match)[1]
			return vars[name]
		})
	default:
		return v
	}
}
