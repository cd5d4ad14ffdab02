package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kromedia/neo/internal/neo"
	"github.com/kromedia/neo/internal/repository"
	"github.com/kromedia/neo/internal/service/inspection"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps inspection service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var fe *neo.FetchError
	switch {
	case errors.Is(err, neo.ErrEmptyTarget), errors.Is(err, inspection.ErrInvalidInterval), errors.Is(err, repository.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "inspection not found")
	case errors.Is(err, inspection.ErrNotActive):
		writeError(w, http.StatusConflict, "inspection session not active")
	case errors.Is(err, inspection.ErrFetchInFlight):
		writeError(w, http.StatusConflict, "report fetch in flight")
	case errors.As(err, &fe):
		writeError(w, http.StatusBadGateway, neo.UserMessage(err))
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
