package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/domain/srs"
	"github.com/phrazzld/campus-api/internal/importer"
	"github.com/phrazzld/campus-api/internal/service/vocab"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVocab struct {
	vocab.Service
	listLessons func(userID uuid.UUID, search, ordering string) ([]*vocab.Lesson, error)
	createWord  func(userID, lessonID uuid.UUID, term, definition string) (*domain.Word, error)
	listWords   func(userID uuid.UUID, q vocab.WordQuery) ([]*domain.Word, error)
	getWord     func(userID, wordID uuid.UUID) (*domain.Word, error)
	deleteWord  func(userID, wordID uuid.UUID) error
	review      func(userID, wordID uuid.UUID, correct bool) (*domain.Word, error)
	importWords func(userID, lessonID uuid.UUID, filename string, data []byte) (*vocab.ImportResult, error)
	stats       func(userID uuid.UUID) (*store.VocabStats, error)
}

func (f *fakeVocab) ListLessons(_ context.Context, userID uuid.UUID, search, ordering string) ([]*vocab.Lesson, error) {
	return f.listLessons(userID, search, ordering)
}

func (f *fakeVocab) CreateWord(_ context.Context, userID, lessonID uuid.UUID, term, definition string) (*domain.Word, error) {
	return f.createWord(userID, lessonID, term, definition)
}

func (f *fakeVocab) ListWords(_ context.Context, userID uuid.UUID, q vocab.WordQuery) ([]*domain.Word, error) {
	return f.listWords(userID, q)
}

func (f *fakeVocab) GetWord(_ context.Context, userID, wordID uuid.UUID) (*domain.Word, error) {
	return f.getWord(userID, wordID)
}

func (f *fakeVocab) DeleteWord(_ context.Context, userID, wordID uuid.UUID) error {
	return f.deleteWord(userID, wordID)
}

func (f *fakeVocab) Review(_ context.Context, userID, wordID uuid.UUID, correct bool) (*domain.Word, error) {
	return f.review(userID, wordID, correct)
}

func (f *fakeVocab) ImportWords(_ context.Context, userID, lessonID uuid.UUID, filename string, r io.Reader) (*vocab.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return f.importWords(userID, lessonID, filename, data)
}

func (f *fakeVocab) Stats(_ context.Context, userID uuid.UUID) (*store.VocabStats, error) {
	return f.stats(userID)
}

func TestVocabHandler_Ping(t *testing.T) {
	t.Parallel()

	rec := doJSON(t, newTestRouter(NewVocabHandler(&fakeVocab{}, nil), nil), http.MethodGet, "/ping", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"team": "vocabulary", "ok": true}, decodeBody(t, rec))
}

func TestVocabHandler_ListLessons(t *testing.T) {
	t.Parallel()

	var gotSearch, gotOrdering string
	svc := &fakeVocab{listLessons: func(userID uuid.UUID, search, ordering string) ([]*vocab.Lesson, error) {
		assert.Equal(t, studentActor.ID, userID)
		gotSearch, gotOrdering = search, ordering
		return nil, nil
	}}

	rec := doJSON(t, newTestRouter(NewVocabHandler(svc, nil), &studentActor), http.MethodGet, "/lessons?search=verbs&ordering=-created_at", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, "verbs", gotSearch)
	assert.Equal(t, "-created_at", gotOrdering)
}

func TestVocabHandler_ListWordsFilters(t *testing.T) {
	t.Parallel()

	lessonID := uuid.New()
	var got vocab.WordQuery
	svc := &fakeVocab{listWords: func(_ uuid.UUID, q vocab.WordQuery) ([]*domain.Word, error) {
		got = q
		return []*domain.Word{{ID: uuid.New(), LessonID: lessonID, Term: "apple"}}, nil
	}}
	router := newTestRouter(NewVocabHandler(svc, nil), &studentActor)

	rec := doJSON(t, router, http.MethodGet,
		"/words?lesson="+lessonID.String()+"&is_learned=false&current_day=3&to_review=true&search=app", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, got.LessonID)
	assert.Equal(t, lessonID, *got.LessonID)
	require.NotNil(t, got.IsLearned)
	assert.False(t, *got.IsLearned)
	require.NotNil(t, got.CurrentDay)
	assert.Equal(t, 3, *got.CurrentDay)
	assert.True(t, got.ToReview)
	assert.False(t, got.TodayReview)
	assert.Equal(t, "app", got.Search)

	rec = doJSON(t, router, http.MethodGet, "/words?current_day=three", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "current_day: must be an integer", errorMessage(t, rec))
}

func TestVocabHandler_CreateWord(t *testing.T) {
	t.Parallel()

	lessonID := uuid.New()
	svc := &fakeVocab{createWord: func(_, lid uuid.UUID, term, definition string) (*domain.Word, error) {
		if lid != lessonID {
			return nil, store.ErrLessonNotFound
		}
		return &domain.Word{ID: uuid.New(), LessonID: lid, Term: term, Definition: definition}, nil
	}}
	router := newTestRouter(NewVocabHandler(svc, nil), &studentActor)

	tests := []struct {
		name       string
		body       WordRequest
		wantStatus int
		wantError  string
	}{
		{"created", WordRequest{LessonID: lessonID.String(), Term: "apple", Definition: "a fruit"}, http.StatusCreated, ""},
		{"lesson required", WordRequest{Term: "apple", Definition: "a fruit"}, http.StatusBadRequest, "lesson: is required"},
		{"term required", WordRequest{LessonID: lessonID.String(), Definition: "a fruit"}, http.StatusBadRequest, "term is a required field"},
		{"unknown lesson", WordRequest{LessonID: uuid.NewString(), Term: "apple", Definition: "a fruit"}, http.StatusNotFound, "Lesson not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, router, http.MethodPost, "/words", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorMessage(t, rec))
			}
		})
	}
}

func TestVocabHandler_GetAndDeleteWord(t *testing.T) {
	t.Parallel()

	owned := uuid.New()
	svc := &fakeVocab{
		getWord: func(_, wordID uuid.UUID) (*domain.Word, error) {
			if wordID != owned {
				return nil, store.ErrWordNotFound
			}
			return &domain.Word{ID: wordID, Term: "apple"}, nil
		},
		deleteWord: func(_, wordID uuid.UUID) error {
			if wordID != owned {
				return store.ErrWordNotFound
			}
			return nil
		},
	}
	router := newTestRouter(NewVocabHandler(svc, nil), &studentActor)

	rec := doJSON(t, router, http.MethodGet, "/words/"+owned.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/words/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Word not found", errorMessage(t, rec))

	rec = doJSON(t, router, http.MethodDelete, "/words/"+owned.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestVocabHandler_Review(t *testing.T) {
	t.Parallel()

	today := domain.Today()
	wordID := uuid.New()

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"correct answer", `{"is_correct": true}`, nil, http.StatusOK, ""},
		{"wrong answer", `{"is_correct": false}`, nil, http.StatusOK, ""},
		{"missing field", `{}`, nil, http.StatusBadRequest, "is_correct field is required"},
		{"malformed", `{"is_correct":`, nil, http.StatusBadRequest, "Invalid request format"},
		{"already reviewed", `{"is_correct": true}`, srs.ErrAlreadyReviewedToday, http.StatusBadRequest, srs.ErrAlreadyReviewedToday.Error()},
		{"schedule complete", `{"is_correct": true}`, srs.ErrReviewsComplete, http.StatusBadRequest, srs.ErrReviewsComplete.Error()},
		{"foreign word", `{"is_correct": true}`, store.ErrWordNotFound, http.StatusNotFound, "Word not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotCorrect bool
			svc := &fakeVocab{review: func(_, id uuid.UUID, correct bool) (*domain.Word, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				gotCorrect = correct
				history := "0"
				if correct {
					history = "1"
				}
				return &domain.Word{ID: id, CurrentDay: 2, ReviewHistory: history, NextReviewDate: &today}, nil
			}}
			router := newTestRouter(NewVocabHandler(svc, nil), &studentActor)

			rec := doJSON(t, router, http.MethodPost, "/words/"+wordID.String()+"/review", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorMessage(t, rec))
				return
			}
			body := decodeBody(t, rec)
			assert.Equal(t, "Review recorded successfully", body["message"])
			assert.EqualValues(t, 2, body["current_day"])
			assert.Equal(t, strings.Contains(tt.body, "true"), gotCorrect)
		})
	}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("note", "ignored"))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestVocabHandler_ImportWords(t *testing.T) {
	t.Parallel()

	lessonID := uuid.New()
	csv := []byte("term,definition\napple,a fruit\n")

	tests := []struct {
		name       string
		field      string
		filename   string
		content    []byte
		err        error
		wantStatus int
		wantError  string
	}{
		{"csv imported", "file", "words.csv", csv, nil, http.StatusOK, ""},
		{"missing file", "", "", nil, nil, http.StatusBadRequest, "A file field is required"},
		{"unsupported format", "file", "words.pdf", csv, importer.ErrUnsupportedFormat, http.StatusBadRequest, importer.ErrUnsupportedFormat.Error()},
		{"too large", "file", "words.csv", bytes.Repeat([]byte("a"), MaxImportBytes+1), nil, http.StatusRequestEntityTooLarge, "File exceeds the upload limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotName string
			var gotData []byte
			svc := &fakeVocab{importWords: func(_, lid uuid.UUID, filename string, data []byte) (*vocab.ImportResult, error) {
				assert.Equal(t, lessonID, lid)
				if tt.err != nil {
					return nil, tt.err
				}
				gotName, gotData = filename, data
				return &vocab.ImportResult{Imported: 1}, nil
			}}
			router := newTestRouter(NewVocabHandler(svc, nil), &studentActor)

			body, contentType := multipartBody(t, tt.field, tt.filename, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/lessons/"+lessonID.String()+"/import", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorMessage(t, rec))
				return
			}
			assert.Equal(t, "words.csv", gotName)
			assert.Equal(t, csv, gotData)
			assert.JSONEq(t, `{"imported":1,"skipped":0}`, rec.Body.String())
		})
	}
}

func TestVocabHandler_Stats(t *testing.T) {
	t.Parallel()

	svc := &fakeVocab{stats: func(uuid.UUID) (*store.VocabStats, error) {
		return &store.VocabStats{}, nil
	}}

	rec := doJSON(t, newTestRouter(NewVocabHandler(svc, nil), &studentActor), http.MethodGet, "/stats", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, newTestRouter(NewVocabHandler(svc, nil), nil), http.MethodGet, "/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
