package gemini

import "errors"

var (
	// ErrEmptyPrompt is returned when a prompt renders to nothing.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrEmptyAudio is returned for a missing or zero-length recording.
	ErrEmptyAudio = errors.New("audio file is empty")
)
