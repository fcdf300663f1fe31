package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phrazzld/campus-api/internal/assessment"
	"github.com/phrazzld/campus-api/internal/domain"
)

type suggestionList []string

// UnmarshalJSON accepts a list of strings or a single string.
func (s *suggestionList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("suggestions must be a string or a list of strings: %w", err)
	}
	*s = suggestionList{one}
	return nil
}

// extractFenced returns the body of the first ```json (or bare ```) block.
func extractFenced(text string) (string, bool) {
	start := strings.Index(text, "```json")
	if start >= 0 {
		start += len("```json")
	} else if start = strings.Index(text, "```"); start >= 0 {
		start += len("```")
	} else {
		return "", false
	}
	end := strings.Index(text[start:], "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}

// decodeResponse parses the model reply, falling back to a fenced block.
func decodeResponse(text string) (*responseSchema, error) {
	text = strings.TrimSpace(text)
	var resp responseSchema
	err := json.Unmarshal([]byte(text), &resp)
	if err != nil {
		body, ok := extractFenced(text)
		if !ok {
			return nil, fmt.Errorf("%w: failed to parse JSON response: %v", assessment.ErrInvalidResponse, err)
		}
		resp = responseSchema{}
		if err := json.Unmarshal([]byte(body), &resp); err != nil {
			return nil, fmt.Errorf("%w: failed to parse fenced JSON response: %v", assessment.ErrInvalidResponse, err)
		}
	}
	return &resp, nil
}

// toResult checks that every field the kind requires is present.
func (r *responseSchema) toResult(kind domain.SubmissionType) (*assessment.Result, error) {
	required := []struct {
		name  string
		value *float64
	}{
		{"overall_score", r.OverallScore},
		{"grammar_score", r.GrammarScore},
		{"vocabulary_score", r.VocabularyScore},
		{"coherence_score", r.CoherenceScore},
		{"fluency_score", r.FluencyScore},
	}
	if kind == domain.SubmissionSpeaking {
		required = append(required, struct {
			name  string
			value *float64
		}{"pronunciation_score", r.PronunciationScore})
	}
	for _, f := range required {
		if f.value == nil {
			return nil, fmt.Errorf("%w: missing required field %s", assessment.ErrInvalidResponse, f.name)
		}
		if *f.value < 0 || *f.value > 100 {
			return nil, fmt.Errorf("%w: %s out of range: %v", assessment.ErrInvalidResponse, f.name, *f.value)
		}
	}
	if r.FeedbackSummary == nil {
		return nil, fmt.Errorf("%w: missing required field feedback_summary", assessment.ErrInvalidResponse)
	}
	if r.Suggestions == nil {
		return nil, fmt.Errorf("%w: missing required field suggestions", assessment.ErrInvalidResponse)
	}

	result := &assessment.Result{
		Overall:         *r.OverallScore,
		Grammar:         *r.GrammarScore,
		Vocabulary:      *r.VocabularyScore,
		Coherence:       *r.CoherenceScore,
		Fluency:         *r.FluencyScore,
		FeedbackSummary: strings.TrimSpace(*r.FeedbackSummary),
		Suggestions:     []string(r.Suggestions),
	}
	if kind == domain.SubmissionSpeaking {
		p := *r.PronunciationScore
		result.Pronunciation = &p
	}
	return result, nil
}
