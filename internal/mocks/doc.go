// Package mocks holds the test doubles shared by service, task and API tests.
//
// Store mocks (UserStore, VocabStore, VideoStore, ReadingStore, ToeflStore,
// ReportStore) are testify mocks: set expectations with On and check them
// with AssertExpectations. Their WithTx returns the mock itself, so code that
// runs inside store.RunInTransaction hits the same expectations.
//
// Collaborators with small surfaces (MockJWTService, MockPasswordVerifier,
// MockAssessor) use function fields with default return values instead:
//
//	jwt := &mocks.MockJWTService{Token: "access", RefreshToken: "refresh"}
//	assessor := &mocks.MockAssessor{Err: assessment.ErrTransientFailure}
package mocks
