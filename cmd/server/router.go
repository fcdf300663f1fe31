package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/campus-api/internal/api"
	apiMiddleware "github.com/phrazzld/campus-api/internal/api/middleware"
)

// setupRouter mounts every app under /api plus the health check.
func (app *application) setupRouter() http.Handler {
	return newRouter(routerDeps{
		logger:   app.logger,
		reporter: app.reporter,
		auth:     api.NewAuthHandler(app.userService, app.logger),
		vocab:    api.NewVocabHandler(app.vocabService, app.logger),
		video:    api.NewVideoHandler(app.videoService, app.config.Media.MaxUploadMB<<20, app.logger),
		reading:  api.NewReadingHandler(app.readingService, app.logger),
		toefl:    api.NewToeflHandler(app.toeflService, app.logger),
		authenticate: apiMiddleware.NewAuthMiddleware(app.jwtService, app.userStore, app.logger).
			Authenticate,
	})
}

// routerDeps are the handlers and middleware the router mounts.
type routerDeps struct {
	logger       *slog.Logger
	reporter     apiMiddleware.ErrorReporter
	authenticate api.Middleware

	auth    *api.AuthHandler
	vocab   *api.VocabHandler
	video   *api.VideoHandler
	reading *api.ReadingHandler
	toefl   *api.ToeflHandler
}

func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(deps.logger))
	r.Use(apiMiddleware.ReportServerErrors(deps.reporter))

	r.Route("/api", func(r chi.Router) {
		deps.auth.Routes(r, deps.authenticate)
		r.Route("/vocab", func(r chi.Router) { deps.vocab.Routes(r, deps.authenticate) })
		r.Route("/video", func(r chi.Router) { deps.video.Routes(r, deps.authenticate) })
		r.Route("/reading", func(r chi.Router) { deps.reading.Routes(r, deps.authenticate) })
		r.Route("/toefl", func(r chi.Router) { deps.toefl.Routes(r, deps.authenticate) })
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			deps.logger.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})

	return r
}
