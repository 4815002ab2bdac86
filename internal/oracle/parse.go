package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseVerdict extracts the verdict JSON from an LLM response. Models wrap
// answers in fenced blocks or prose, and occasionally emit slightly broken
// JSON; a repair pass runs before giving up. A response that still does not
// yield the expected shape is an error so the caller fails closed.
func ParseVerdict(response string) (*Verdict, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	verdict, err := unmarshalVerdict(jsonStr)
	if err == nil {
		return verdict, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(jsonStr)
	if repairErr != nil {
		return nil, fmt.Errorf("failed to parse verdict: %w", err)
	}

	verdict, err = unmarshalVerdict(repaired)
	if err != nil {
		return nil, fmt.Errorf("failed to parse verdict after repair: %w", err)
	}
	return verdict, nil
}

func unmarshalVerdict(jsonStr string) (*Verdict, error) {
	type rawVerdict struct {
		Credible   *bool    `json:"credible"`
		Confidence *float64 `json:"confidence"`
		Rationale  string   `json:"rationale"`
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, err
	}
	if raw.Credible == nil {
		return nil, fmt.Errorf("verdict is missing the credible field")
	}

	verdict := &Verdict{
		Credible:  *raw.Credible,
		Rationale: strings.TrimSpace(raw.Rationale),
	}
	if raw.Confidence != nil {
		verdict.Confidence = clampConfidence(*raw.Confidence)
	}
	return verdict, nil
}

// extractJSON finds the JSON object in a response, preferring a fenced code
// block, then falling back to the outermost brace pair
func extractJSON(response string) string {
	if start := strings.Index(response, "```json"); start != -1 {
		rest := response[start+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if start := strings.Index(response, "```"); start != -1 {
		rest := response[start+3:]
		if end := strings.Index(rest, "```"); end != -1 {
			candidate := strings.TrimSpace(rest[:end])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	first := strings.Index(response, "{")
	last := strings.LastIndex(response, "}")
	if first == -1 || last <= first {
		return ""
	}
	return strings.TrimSpace(response[first : last+1])
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
