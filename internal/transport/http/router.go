package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// NewRouter wires every endpoint behind the authenticator.
func NewRouter(svc Services, auth *Authenticator, logger *slog.Logger) *mux.Router {
	api := NewAPIHandler(svc, logger)
	ws := NewWSHandler(svc.Trivia, logger)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/avatars/{path:.+}", api.Avatar).Methods(http.MethodGet)

	authed := r.NewRoute().Subrouter()
	authed.Use(requestLogger(logger), auth.Middleware)

	authed.HandleFunc("/ws/trivia", ws.ServeWS)

	v := authed.PathPrefix("/api").Subrouter()
	v.HandleFunc("/rewards", api.Rewards).Methods(http.MethodGet)
	v.HandleFunc("/rewards/{id}/redeem", api.Redeem).Methods(http.MethodPost)
	v.HandleFunc("/leaderboard", api.Leaderboard).Methods(http.MethodGet)

	v.HandleFunc("/news", api.LatestNews).Methods(http.MethodGet)
	v.HandleFunc("/news/feed", api.Feed).Methods(http.MethodGet)
	v.HandleFunc("/news/{id}", api.Article).Methods(http.MethodGet)
	v.HandleFunc("/news/{id}/reactions", api.Reactions).Methods(http.MethodGet)
	v.HandleFunc("/news/{id}/reactions", api.React).Methods(http.MethodPost)
	v.HandleFunc("/news/{id}/comments", api.Comments).Methods(http.MethodGet)
	v.HandleFunc("/news/{id}/comments", api.Comment).Methods(http.MethodPost)
	v.HandleFunc("/facts/random", api.RandomFact).Methods(http.MethodGet)
	v.HandleFunc("/cta", api.CallsToAction).Methods(http.MethodGet)

	v.HandleFunc("/profile", api.Profile).Methods(http.MethodGet)
	v.HandleFunc("/profile", api.UpdateProfile).Methods(http.MethodPut)
	v.HandleFunc("/profile/avatar", api.UploadAvatar).Methods(http.MethodPut)
	v.HandleFunc("/profile/badges", api.Badges).Methods(http.MethodGet)
	v.HandleFunc("/profile/categories", api.UserCategories).Methods(http.MethodGet)
	v.HandleFunc("/profile/categories", api.SaveCategories).Methods(http.MethodPut)
	v.HandleFunc("/categories", api.Categories).Methods(http.MethodGet)

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/ws/trivia" {
				// The upgrader needs the raw writer to hijack it.
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
		})
	}
}
