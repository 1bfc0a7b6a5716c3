package answer

import (
	"encoding/json"
	"fmt"
	"strings"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
)

// decodeJSON tries to unmarshal the raw model output into T after stripping
// fences and any prose around the outermost object.
func decodeJSON[T any](raw string) (*T, error) {
	clean := sanitizeJSON(raw)
	if clean == "" {
		return nil, fmt.Errorf("decode JSON: empty output: %w", errorskg.ErrGenerationParse)
	}
	var out T
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("decode JSON: %w: %v", errorskg.ErrGenerationParse, err)
	}
	return &out, nil
}

func sanitizeJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = trimmed[3:]
		trimmed = strings.TrimPrefix(trimmed, "json")
		trimmed = strings.TrimPrefix(trimmed, "JSON")
		if idx := strings.Index(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	if !strings.HasPrefix(trimmed, "{") {
		start := strings.Index(trimmed, "{")
		end := strings.LastIndex(trimmed, "}")
		if start >= 0 && end > start {
			trimmed = trimmed[start : end+1]
		}
	}
	return strings.TrimSpace(trimmed)
}
