package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"trivia-rank-service/internal/domain"
)

type errorPayload struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrNoQuestions):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrQuestionInUse):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStoreFailure):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorPayload{Message: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.InvalidInput("malformed body: %v", err)
	}
	return nil
}
