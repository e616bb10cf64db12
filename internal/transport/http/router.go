package http

import (
	"context"
	"net/http"
	"time"

	"decaquiz-service/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// RateLimiter limits an action per client key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RouterConfig wires the handler into a chi router.
type RouterConfig struct {
	Handler     *Handler
	Logger      *logrus.Logger
	BasePath    string
	JoinLimiter RateLimiter
}

// NewRouter serves the API at the root and, when set, below BasePath.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Not Found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Message: "Method Not Allowed"})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	api := func(r chi.Router) {
		h := cfg.Handler
		r.Route("/quizzes", func(r chi.Router) {
			r.Post("/", h.CreateQuiz)
			r.Post("/upload-file", h.UploadFile)
			r.Post("/import-url", h.ImportURL)
			r.Route("/{code}", func(r chi.Router) {
				r.Get("/", h.GetQuiz)
				r.With(limitJoins(cfg.JoinLimiter)).Post("/join", h.JoinQuiz)
				r.Post("/progress", h.RecordProgress)
				r.Post("/submissions", h.FinalizeSubmission)
				r.Get("/leaderboard", h.GetLeaderboard)
			})
		})
	}

	r.Group(api)
	if cfg.BasePath != "" && cfg.BasePath != "/" {
		r.Route(cfg.BasePath, api)
	}
	return r
}

func requestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := logger.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
			})
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(config.ContextWithLogger(r.Context(), entry)))

			entry.WithFields(logrus.Fields{
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).String(),
			}).Info("request completed")
		})
	}
}
