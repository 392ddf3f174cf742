package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avtoshkola/lesson-scheduler/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondServiceError отображает доменные ошибки в HTTP-статусы.
// Неизвестные ошибки — 500 без деталей.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrRuleNotFound),
		errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrCoachNotFound),
		errors.Is(err, service.ErrNoCoachAvailable):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidTimeWindow):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSchedulingConflict),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrTooLateToCancel):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
