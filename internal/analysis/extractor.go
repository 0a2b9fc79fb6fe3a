package analysis

import (
	"encoding/json"
	"strings"
)

// DefaultEmotion is the sentinel used when the model output yields no
// usable emotion label.
const DefaultEmotion = "neutrality"

// Reflection is the structured record extracted from raw model output.
type Reflection struct {
	Emotion    string `json:"emotion"`
	Reflection string `json:"reflection"`
	Advice     string `json:"advice"`
	FollowUp   string `json:"follow_up"`
	Crisis     bool   `json:"crisis"`
}

// ExtractReflection locates the first top-level structured block (first '{'
// through last '}') in raw model output and parses it. It never fails: on
// malformed or missing data it returns a record with defaulted fields. The
// emotion is lowercased but otherwise accepted verbatim; labels outside the
// closed vocabulary only affect which fallback bucket matches later.
func ExtractReflection(raw string) Reflection {
	defaulted := Reflection{Emotion: DefaultEmotion}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return defaulted
	}

	var parsed Reflection
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return defaulted
	}

	parsed.Emotion = strings.ToLower(strings.TrimSpace(parsed.Emotion))
	if parsed.Emotion == "" {
		parsed.Emotion = DefaultEmotion
	}
	parsed.Reflection = strings.TrimSpace(parsed.Reflection)
	parsed.Advice = strings.TrimSpace(parsed.Advice)
	parsed.FollowUp = strings.TrimSpace(parsed.FollowUp)
	return parsed
}
