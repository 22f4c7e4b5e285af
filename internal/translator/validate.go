package translator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// candidateSchema validates loosely-typed candidate records at the boundary
// before they enter the scoring logic. Exported store rows and the fuse
// command's JSON input arrive as untyped maps; everything past ParseCandidate
// works with the strict Candidate shape.
const candidateSchema = `{
	"type": "object",
	"required": ["text", "confidence", "model_id", "provider_id"],
	"properties": {
		"text": {"type": "string", "minLength": 1},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"model_id": {"type": "string", "minLength": 1},
		"provider_id": {"type": "string", "minLength": 1},
		"reasoning": {"type": "string"},
		"tokens_used": {"type": "integer", "minimum": 0}
	}
}`

var compiledCandidateSchema = jsonschema.MustCompileString("candidate.json", candidateSchema)

// ParseCandidate validates record against the candidate schema and returns
// the typed Candidate. The record is not mutated.
func ParseCandidate(record map[string]any) (*Candidate, error) {
	if err := compiledCandidateSchema.Validate(record); err != nil {
		return nil, fmt.Errorf("invalid candidate record: %w", err)
	}

	// Round-trip through JSON so numeric types (int vs float64) and
	// optional fields are handled uniformly.
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("invalid candidate record: %w", err)
	}
	var cand Candidate
	if err := json.Unmarshal(raw, &cand); err != nil {
		return nil, fmt.Errorf("invalid candidate record: %w", err)
	}

	if strings.TrimSpace(cand.Text) == "" {
		return nil, fmt.Errorf("invalid candidate record: text is blank")
	}
	return &cand, nil
}

// ParseCandidates validates a batch of records, preserving input order.
// The first invalid record fails the whole batch.
func ParseCandidates(records []map[string]any) ([]Candidate, error) {
	out := make([]Candidate, 0, len(records))
	for i, rec := range records {
		cand, err := ParseCandidate(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, *cand)
	}
	return out, nil
}
