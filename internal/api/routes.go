package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/campus-api/internal/api/middleware"
	"github.com/phrazzld/campus-api/internal/domain"
)

// Middleware is the chi middleware signature.
type Middleware = func(http.Handler) http.Handler

var authorRoles = []domain.Role{domain.RoleTeacher, domain.RoleAdmin}

// Routes mounts /auth, /me and /admin. authenticate guards every route but
// the auth endpoints.
func (h *AuthHandler) Routes(r chi.Router, authenticate Middleware) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.RefreshToken)

	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/me", h.Me)
		r.Put("/me/notifications", h.UpdateNotifications)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Get("/users", h.ListUsers)
			r.Put("/users/{id}/role", h.ChangeRole)
		})
	})
}

// Routes mounts the vocabulary app.
func (h *VocabHandler) Routes(r chi.Router, authenticate Middleware) {
	r.Get("/ping", Ping("vocabulary"))

	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/lessons", h.ListLessons)
		r.Post("/lessons", h.CreateLesson)
		r.Get("/lessons/{id}", h.GetLesson)
		r.Put("/lessons/{id}", h.UpdateLesson)
		r.Delete("/lessons/{id}", h.DeleteLesson)
		r.Post("/lessons/{id}/import", h.ImportWords)

		r.Get("/words", h.ListWords)
		r.Post("/words", h.CreateWord)
		r.Get("/words/{id}", h.GetWord)
		r.Put("/words/{id}", h.UpdateWord)
		r.Delete("/words/{id}", h.DeleteWord)
		r.Post("/words/{id}/review", h.Review)

		r.Get("/stats", h.Stats)
	})
}

// Routes mounts the video lesson app.
func (h *VideoHandler) Routes(r chi.Router, authenticate Middleware) {
	r.Get("/ping", Ping("video"))

	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/lessons", h.Browse)
		r.With(middleware.RequireRole(authorRoles...)).Post("/lessons", h.CreateLesson)
		r.Get("/lessons/{id}", h.GetLesson)
		r.Post("/lessons/{id}/publish", h.Publish)
		r.Post("/lessons/{id}/videos", h.UploadVideo)
		r.Get("/lessons/{id}/videos", h.ListVideos)
		r.Post("/lessons/{id}/enroll", h.Enroll)
		r.Post("/lessons/{id}/rate", h.Rate)
		r.Get("/lessons/{id}/ratings", h.Ratings)
		r.Post("/lessons/{id}/questions", h.AskQuestion)
		r.Get("/lessons/{id}/questions", h.Questions)
		r.Get("/lessons/{id}/stats", h.LessonStats)

		r.Get("/videos/{id}/watch", h.Watch)
		r.Get("/videos/{id}/stream", h.Stream)
		r.Post("/videos/{id}/views", h.RecordView)

		r.Post("/questions/{id}/answers", h.Answer)

		r.With(middleware.RequireRole(authorRoles...)).Get("/dashboard/teacher", h.TeacherDashboard)
		r.Get("/dashboard/student", h.StudentDashboard)
	})
}

// Routes mounts the reading comprehension app.
func (h *ReadingHandler) Routes(r chi.Router, authenticate Middleware) {
	r.Get("/ping", Ping("reading"))

	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/tests", h.ListTests)
		r.With(middleware.RequireRole(authorRoles...)).Post("/tests", h.CreateTest)
		r.Get("/tests/{id}", h.GetTest)
		r.Post("/tests/{id}/attempts", h.StartAttempt)

		r.Get("/attempts", h.History)
		r.Get("/attempts/{id}", h.Result)
		r.Post("/attempts/{id}/answers", h.Answer)
		r.Post("/attempts/{id}/submit", h.Submit)
		r.Post("/attempts/{id}/finish", h.Finish)

		r.Get("/dashboard", h.Dashboard)
	})
}

// Routes mounts the TOEFL app.
func (h *ToeflHandler) Routes(r chi.Router, authenticate Middleware) {
	r.Get("/ping", Ping("toefl"))

	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/categories", h.ListCategories)
		r.With(middleware.RequireRole(authorRoles...)).Post("/categories", h.CreateCategory)
		r.With(middleware.RequireRole(authorRoles...)).Post("/questions", h.CreateQuestion)
		r.Get("/questions/random", h.RandomQuestion)

		r.Post("/submissions/writing", h.SubmitWriting)
		r.Post("/submissions/speaking", h.SubmitSpeaking)
		r.Get("/submissions", h.History)
		r.Get("/submissions/{id}", h.Detail)
		r.Get("/submissions/{id}/status", h.Status)

		r.Get("/dashboard", h.Dashboard)
	})
}
