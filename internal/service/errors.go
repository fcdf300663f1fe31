package service

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the app services. The API layer maps each of them
// to a status code; their messages are safe to show to clients.
var (
	// ErrNotOwned indicates a resource belongs to another user.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrForbidden indicates the caller's role does not allow the operation.
	ErrForbidden = errors.New("permission denied")

	// ErrInvalidCredentials is returned by login for an unknown email or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrRoleNotAssignable is returned when an admin tries to assign a role
	// other than teacher or student.
	ErrRoleNotAssignable = errors.New("role must be teacher or student")

	// ErrNotEnrolled indicates the student has not joined the video lesson.
	ErrNotEnrolled = errors.New("you must be enrolled in this lesson")

	// ErrLessonNotPublished is returned for student actions on draft or
	// archived lessons.
	ErrLessonNotPublished = errors.New("lesson is not published")

	// ErrNoVideos blocks publishing a lesson without a video.
	ErrNoVideos = errors.New("lesson must have at least one video before publishing")

	// ErrAttemptClosed is returned for answers to a missing, foreign or
	// completed attempt.
	ErrAttemptClosed = errors.New("Attempt not found or already completed.")

	// ErrQuestionNotInTest indicates an answer names a question from another test.
	ErrQuestionNotInTest = errors.New("question does not belong to this test")

	// ErrInvalidAudio is returned when speaking audio cannot be decoded.
	ErrInvalidAudio = errors.New("invalid audio data")
)

// ServiceError adds the failing service and operation to an unexpected error.
// Sentinels stay reachable through errors.Is.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// NewServiceError wraps err for op of service.
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
	}
	return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}
