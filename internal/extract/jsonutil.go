package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceOpen  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
)

// stripCodeFences removes a leading/trailing markdown fence commonly
// wrapped around model output.
func stripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = fenceOpen.ReplaceAllString(t, "")
		t = fenceClose.ReplaceAllString(t, "")
	}
	return strings.TrimSpace(t)
}

// extractFirstJSON pulls the first balanced JSON object or array out of a
// blob of model output. Returns "" when none parses.
func extractFirstJSON(text string) string {
	t := stripCodeFences(text)
	if t == "" {
		return ""
	}

	if strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		if json.Valid([]byte(t)) {
			return t
		}
	}

	starts := []int{}
	if i := strings.IndexByte(t, '{'); i >= 0 {
		starts = append(starts, i)
	}
	if i := strings.IndexByte(t, '['); i >= 0 {
		starts = append(starts, i)
	}
	if len(starts) == 0 {
		return ""
	}
	if len(starts) == 2 && starts[1] < starts[0] {
		starts[0], starts[1] = starts[1], starts[0]
	}

	for _, start := range starts {
		snippet := t[start:]
		decoder := json.NewDecoder(strings.NewReader(snippet))
		var value any
		if err := decoder.Decode(&value); err != nil {
			continue
		}
		end := decoder.InputOffset()
		candidate := strings.TrimSpace(snippet[:end])
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return ""
}
