package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ahrav/galley/internal/ports"
)

// responseFormat is appended to every prompt.
const responseFormat = "\n\nIMPORTANT: Respond with valid JSON in exactly this format:\n" +
	`{"decision": "pass" | "fail" | "needs_review", "rationale": "<one or two sentences>"}`

// llmResponse is the JSON object the model must return.
type llmResponse struct {
	Decision  string `json:"decision" validate:"required,oneof=pass fail needs_review"`
	Rationale string `json:"rationale" validate:"required,min=3"`
}

// parseResponse extracts and validates the decision object in response.
func (j *LLMJudge) parseResponse(response string) (llmResponse, error) {
	raw := extractJSON(response)
	if raw == "" {
		return llmResponse{}, fmt.Errorf("%w: no JSON object in response (%d chars)", ports.ErrInvalidResponse, len(response))
	}

	var out llmResponse
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return llmResponse{}, fmt.Errorf("%w: %v", ports.ErrInvalidResponse, err)
	}
	out.Decision = normalizeDecision(out.Decision)
	out.Rationale = strings.TrimSpace(out.Rationale)

	if err := j.validator.Struct(out); err != nil {
		return llmResponse{}, fmt.Errorf("%w: %v", ports.ErrInvalidResponse, err)
	}
	return out, nil
}

// normalizeDecision maps spellings such as "Needs Review" to "needs_review".
func normalizeDecision(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(d)
}

// extractJSON returns the first JSON object in response, looking inside
// markdown code fences first.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if _, after, found := strings.Cut(response, "```"); found {
		// Skip a language tag such as "json".
		if nl := strings.IndexByte(after, '\n'); nl >= 0 && !strings.HasPrefix(strings.TrimSpace(after[:nl]), "{") {
			after = after[nl+1:]
		}
		if body, _, closed := strings.Cut(after, "```"); closed {
			if body = strings.TrimSpace(body); strings.HasPrefix(body, "{") {
				return body
			}
		}
	}

	start := strings.IndexByte(response, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
