package assessment

import "errors"

var (
	// ErrAssessmentFailed is returned when scoring fails for any general reason.
	ErrAssessmentFailed = errors.New("failed to assess response")

	// ErrInvalidResponse is returned when the model output cannot be parsed or
	// lacks required fields.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the model refuses the content.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned when retries were exhausted on errors
	// that might resolve later.
	ErrTransientFailure = errors.New("transient error during assessment")

	// ErrInvalidConfig is returned when the assessor configuration is invalid.
	ErrInvalidConfig = errors.New("invalid assessor configuration")

	// ErrNoSpeech is returned when a recording transcribes to nothing.
	ErrNoSpeech = errors.New("no speech detected")

	// ErrEmptyInput is returned for requests without text to assess.
	ErrEmptyInput = errors.New("nothing to assess")
)
