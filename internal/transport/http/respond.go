package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"notiplay/internal/domain"
)

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps domain errors to HTTP statuses. Anything unknown is a failure of the
// remote data service.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrRewardNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrArticleNotFound),
		errors.Is(err, domain.ErrAvatarNotFound),
		errors.Is(err, domain.ErrNoFacts):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInFlight),
		errors.Is(err, domain.ErrDuplicateReaction):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAlreadyRedeemed),
		errors.Is(err, domain.ErrInsufficientPoints):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusBadGateway {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = "service temporarily unavailable, try again"
	}
	writeJSON(w, status, errorBody{Message: msg})
}
