package mocks

import (
	"context"

	"github.com/phrazzld/campus-api/internal/assessment"
)

// MockAssessor implements assessment.Assessor and assessment.Transcriber.
type MockAssessor struct {
	AssessFn     func(ctx context.Context, req assessment.Request) (*assessment.Result, error)
	TranscribeFn func(ctx context.Context, audioPath string) (string, error)

	Result     *assessment.Result
	Transcript string
	Err        error

	Requests   []assessment.Request
	AudioPaths []string
}

var (
	_ assessment.Assessor    = (*MockAssessor)(nil)
	_ assessment.Transcriber = (*MockAssessor)(nil)
)

// Assess implements assessment.Assessor.
func (m *MockAssessor) Assess(ctx context.Context, req assessment.Request) (*assessment.Result, error) {
	m.Requests = append(m.Requests, req)
	if m.AssessFn != nil {
		return m.AssessFn(ctx, req)
	}
	return m.Result, m.Err
}

// Transcribe implements assessment.Transcriber.
func (m *MockAssessor) Transcribe(ctx context.Context, audioPath string) (string, error) {
	m.AudioPaths = append(m.AudioPaths, audioPath)
	if m.TranscribeFn != nil {
		return m.TranscribeFn(ctx, audioPath)
	}
	return m.Transcript, m.Err
}
