package gemini

// promptData is passed to the assessment templates.
type promptData struct {
	Topic           string
	Text            string
	WordCount       int
	DurationSeconds int
}

// responseSchema is the JSON object the model is asked to return. Pointers
// tell a missing score from a zero score.
type responseSchema struct {
	OverallScore       *float64 `json:"overall_score"`
	GrammarScore       *float64 `json:"grammar_score"`
	VocabularyScore    *float64 `json:"vocabulary_score"`
	CoherenceScore     *float64 `json:"coherence_score"`
	FluencyScore       *float64 `json:"fluency_score"`
	PronunciationScore *float64 `json:"pronunciation_score,omitempty"`
	FeedbackSummary    *string  `json:"feedback_summary"`
	// Suggestions is a list, but a bare string is accepted too.
	Suggestions suggestionList `json:"suggestions"`
}
