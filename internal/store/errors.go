package store

import (
	"errors"
	"fmt"
)

// Base store errors. Entity errors wrap one of them, so a single errors.Is
// check against the base covers every entity.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrDuplicate     = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")
)

// Not found errors.
var (
	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
	ErrLessonNotFound     = fmt.Errorf("%w: lesson", ErrNotFound)
	ErrWordNotFound       = fmt.Errorf("%w: word", ErrNotFound)
	ErrVideoNotFound      = fmt.Errorf("%w: video", ErrNotFound)
	ErrQuestionNotFound   = fmt.Errorf("%w: question", ErrNotFound)
	ErrTestNotFound       = fmt.Errorf("%w: reading test", ErrNotFound)
	ErrAttemptNotFound    = fmt.Errorf("%w: attempt", ErrNotFound)
	ErrSubmissionNotFound = fmt.Errorf("%w: submission", ErrNotFound)
	// ErrRatingNotFound means the user has not rated the lesson yet.
	ErrRatingNotFound = fmt.Errorf("%w: rating", ErrNotFound)
)

// ErrEmailExists is returned when the email is already registered.
var ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)

// IsDuplicateError reports whether err is a unique constraint conflict.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
