package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/campus-api/internal/api/shared"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/domain/srs"
	"github.com/phrazzld/campus-api/internal/importer"
	"github.com/phrazzld/campus-api/internal/media"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/phrazzld/campus-api/internal/service/auth"
	"github.com/phrazzld/campus-api/internal/store"
)

const defaultErrorMessage = "An unexpected error occurred"

// errorRule maps a sentinel to a status and client message. An empty message
// means the sentinel's own text is safe to show.
type errorRule struct {
	target  error
	status  int
	message string
}

// errorRules are matched in order with errors.Is; specific sentinels come
// before the generic ones they wrap.
var errorRules = []errorRule{
	// Authentication
	{auth.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
	{auth.ErrExpiredToken, http.StatusUnauthorized, "Invalid token"},
	{auth.ErrInvalidRefreshToken, http.StatusUnauthorized, "Invalid refresh token"},
	{auth.ErrExpiredRefreshToken, http.StatusUnauthorized, "Invalid refresh token"},
	{auth.ErrWrongTokenType, http.StatusUnauthorized, "Invalid refresh token"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},

	// Authorization
	{service.ErrNotOwned, http.StatusForbidden, "You do not own this resource"},
	{service.ErrForbidden, http.StatusForbidden, "You do not have permission to perform this action"},
	{service.ErrNotEnrolled, http.StatusForbidden, ""},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "Authentication required"},

	// Not found
	{service.ErrAttemptClosed, http.StatusNotFound, ""},
	{store.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{store.ErrLessonNotFound, http.StatusNotFound, "Lesson not found"},
	{store.ErrWordNotFound, http.StatusNotFound, "Word not found"},
	{store.ErrVideoNotFound, http.StatusNotFound, "Video not found"},
	{store.ErrQuestionNotFound, http.StatusNotFound, "Question not found"},
	{store.ErrTestNotFound, http.StatusNotFound, "Test not found"},
	{store.ErrAttemptNotFound, http.StatusNotFound, "Attempt not found"},
	{store.ErrSubmissionNotFound, http.StatusNotFound, "Submission not found"},
	{store.ErrRatingNotFound, http.StatusNotFound, "Rating not found"},
	{media.ErrNotFound, http.StatusNotFound, "Video file not found"},
	{store.ErrNotFound, http.StatusNotFound, "Resource not found"},

	// Conflict
	{store.ErrEmailExists, http.StatusConflict, "Email already exists"},
	{store.ErrDuplicate, http.StatusConflict, "Resource already exists"},

	// Too large
	{media.ErrTooLarge, http.StatusRequestEntityTooLarge, "File exceeds the upload limit"},

	// Rule violations whose text is written for clients
	{srs.ErrAlreadyReviewedToday, http.StatusBadRequest, ""},
	{srs.ErrReviewsComplete, http.StatusBadRequest, ""},
	{service.ErrRoleNotAssignable, http.StatusBadRequest, ""},
	{service.ErrLessonNotPublished, http.StatusBadRequest, ""},
	{service.ErrNoVideos, http.StatusBadRequest, ""},
	{service.ErrQuestionNotInTest, http.StatusBadRequest, ""},
	{importer.ErrUnsupportedFormat, http.StatusBadRequest, ""},
	{importer.ErrEmptyFile, http.StatusBadRequest, ""},
	{domain.ErrEmptyEmail, http.StatusBadRequest, ""},
	{domain.ErrInvalidEmail, http.StatusBadRequest, ""},
	{domain.ErrEmptyPassword, http.StatusBadRequest, ""},
	{domain.ErrPasswordTooShort, http.StatusBadRequest, ""},
	{domain.ErrPasswordTooLong, http.StatusBadRequest, ""},
	{domain.ErrInvalidRole, http.StatusBadRequest, ""},
	{domain.ErrEmptyLessonTitle, http.StatusBadRequest, ""},
	{domain.ErrEmptyTerm, http.StatusBadRequest, ""},
	{domain.ErrEmptyDefinition, http.StatusBadRequest, ""},
	{domain.ErrInvalidHistory, http.StatusBadRequest, ""},
	{domain.ErrInvalidCurrentDay, http.StatusBadRequest, ""},
	{domain.ErrInvalidLevel, http.StatusBadRequest, ""},
	{domain.ErrInvalidDuration, http.StatusBadRequest, ""},
	{domain.ErrInvalidScore, http.StatusBadRequest, ""},
	{domain.ErrQuestionTooShort, http.StatusBadRequest, ""},
	{domain.ErrAnswerTooShort, http.StatusBadRequest, ""},
	{domain.ErrInvalidTestMode, http.StatusBadRequest, ""},
	{domain.ErrInvalidQuestionType, http.StatusBadRequest, ""},
	{domain.ErrEmptyChoices, http.StatusBadRequest, ""},
	{domain.ErrAnswerNotInChoices, http.StatusBadRequest, ""},
	{domain.ErrEmptyResponse, http.StatusBadRequest, ""},
	{domain.ErrInvalidCategoryType, http.StatusBadRequest, ""},
	{domain.ErrInvalidID, http.StatusBadRequest, "Invalid ID"},
	{store.ErrInvalidEntity, http.StatusBadRequest, "Invalid entity data"},

	// Server side, with a message the client can act on
	{service.ErrInvalidAudio, http.StatusInternalServerError, "Invalid audio data"},
}

// matchRule returns the first rule err matches.
func matchRule(err error) (errorRule, bool) {
	for _, rule := range errorRules {
		if errors.Is(err, rule.target) {
			return rule, true
		}
	}
	return errorRule{}, false
}

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking their types to clients.
func MapErrorToStatusCode(err error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		if rule, ok := matchRule(ve.Err); ok {
			return rule.status
		}
		return http.StatusBadRequest
	}
	if rule, ok := matchRule(err); ok {
		return rule.status
	}
	return http.StatusInternalServerError
}

// GetSafeErrorMessage returns a client-safe message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return defaultErrorMessage
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if msg := shared.ValidationMessage(err); msg != "" {
		return msg
	}
	rule, ok := matchRule(err)
	switch {
	case !ok:
		return defaultErrorMessage
	case rule.message != "":
		return rule.message
	default:
		return rule.target.Error()
	}
}

// HandleAPIError writes the mapped status and safe message for err and logs
// the redacted error. fallback replaces the generic 500 message when set.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && message == defaultErrorMessage && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// respondBadRequest answers a malformed or invalid payload with 400. Struct
// validation failures are rendered field by field.
func respondBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	message := shared.ValidationMessage(err)
	if message == "" {
		message = "Invalid request format"
	}
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, message, err)
}
